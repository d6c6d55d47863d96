package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "bitparse") {
		t.Errorf("GetConfigDir() = %v, should contain 'bitparse'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	default:
		if configDir != filepath.Join("/tmp/xdg", "bitparse") {
			t.Errorf("GetConfigDir() = %v, want /tmp/xdg/bitparse", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if diff := pretty.Compare(cfg, NewConfig()); diff != "" {
		t.Errorf("missing file should give defaults (-got +want):\n%s", diff)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.LogLevel = "debug"
	cfg.DefaultFormat = "tcp"
	cfg.Output = OutputJSON
	cfg.HexDumpLimit = 64

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# bitparse configuration file") {
		t.Errorf("config file missing header comment:\n%s", data)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if diff := pretty.Compare(loaded, cfg); diff != "" {
		t.Errorf("round trip diff (-got +want):\n%s", diff)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\noutput: yaml\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	want := NewConfig()
	want.Output = OutputYAML
	if diff := pretty.Compare(cfg, want); diff != "" {
		t.Errorf("partial file diff (-got +want):\n%s", diff)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "version: [1", "failed to parse"},
		{"wrong version", "version: 2\n", "unsupported config version"},
		{"bad output", "version: 1\noutput: xml\n", "invalid output"},
		{"bad log level", "version: 1\nlog_level: loud\n", "invalid log_level"},
		{"bad color", "version: 1\ncolor: sometimes\n", "invalid color"},
		{"negative dump limit", "version: 1\nhex_dump_limit: -1\n", "must not be negative"},
		{"negative log backups", "version: 1\nlog_file:\n  path: /tmp/x.log\n  max_backups: -1\n", "log_file limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFromFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFile() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := NewConfig()
	cfg.Color = ColorNever
	cfg.LogLevel = "info"
	cfg.LogFile = LogFile{Path: "/var/log/bitparse.log", MaxSizeMB: 5, MaxBackups: 2, Compress: true}

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `color = "never"`) || !strings.Contains(string(data), "[log_file]") {
		t.Errorf("file is not TOML:\n%s", data)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if diff := pretty.Compare(loaded, cfg); diff != "" {
		t.Errorf("round trip diff (-got +want):\n%s", diff)
	}
}

func TestLoadTOMLPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "version = 1\ndefault_format = \"stun\"\n\n[log_file]\npath = \"/tmp/bitparse.log\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	want := NewConfig()
	want.DefaultFormat = "stun"
	want.LogFile = LogFile{Path: "/tmp/bitparse.log", MaxSizeMB: DefaultLogMaxSizeMB}
	if diff := pretty.Compare(cfg, want); diff != "" {
		t.Errorf("partial file diff (-got +want):\n%s", diff)
	}
}

func TestSaveToFileRejectsInvalid(t *testing.T) {
	cfg := NewConfig()
	cfg.Output = "xml"
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := cfg.SaveToFile(path); err == nil {
		t.Fatal("SaveToFile() should reject an invalid config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid config was written")
	}
}

func TestLoadConfigUsesConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := NewConfig()
	cfg.DefaultFormat = "stun"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := ReloadConfig()
	if err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if loaded.DefaultFormat != "stun" {
		t.Errorf("DefaultFormat = %q, want stun", loaded.DefaultFormat)
	}

	again, _ := LoadConfig()
	if again != loaded {
		t.Error("LoadConfig() should return the cached instance")
	}
}
