// Package config provides user configuration management for bitparse.
//
// This package manages a YAML configuration file holding CLI preferences: the
// default format and output style, the log level and optional log file, terminal
// color mode and the size of debug hex dumps. The file follows OS-specific
// conventions for its storage location. Files named *.toml are read and written
// as TOML instead.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/bitparse/config.yaml or $HOME/.config/bitparse/config.yaml
//   - macOS: $HOME/.config/bitparse/config.yaml
//   - Windows: %LOCALAPPDATA%\bitparse\config.yaml
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg.Output = config.OutputYAML
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global config uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
