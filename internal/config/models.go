package config

import (
	"fmt"
	"slices"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Output formats for decoded messages
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Color modes for terminal output
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	validOutputs   = []string{OutputText, OutputJSON, OutputYAML}
	validColors    = []string{ColorAuto, ColorAlways, ColorNever}
	validLogLevels = []string{"", "debug", "info", "warn", "warning", "error"}
)

// Config holds the user preferences of the bitparse CLI.
// Command line flags override every field.
type Config struct {
	Version       int     `yaml:"version" toml:"version"`
	LogLevel      string  `yaml:"log_level,omitempty" toml:"log_level,omitempty"`           // Empty keeps logging silent
	LogFile       LogFile `yaml:"log_file,omitempty" toml:"log_file,omitempty"`             // Optional rotating log file
	DefaultFormat string  `yaml:"default_format,omitempty" toml:"default_format,omitempty"` // Format used when --format is absent
	Output        string  `yaml:"output,omitempty" toml:"output,omitempty"`                 // text, json or yaml
	Color         string  `yaml:"color,omitempty" toml:"color,omitempty"`                   // auto, always or never
	HexDumpLimit  int     `yaml:"hex_dump_limit,omitempty" toml:"hex_dump_limit,omitempty"` // Bytes included in debug hex dumps
}

// DefaultLogMaxSizeMB is the rotation size used when a log file has none set
const DefaultLogMaxSizeMB = 10

// LogFile configures the rotating log file. Logs go to stderr only when Path is empty.
type LogFile struct {
	Path       string `yaml:"path,omitempty" toml:"path,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" toml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty" toml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" toml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty" toml:"compress,omitempty"`
}

// NewConfig returns a config with default values
func NewConfig() *Config {
	return &Config{
		Version:       CurrentVersion,
		DefaultFormat: "pdu",
		Output:        OutputText,
		Color:         ColorAuto,
		HexDumpLimit:  256,
	}
}

// applyDefaults fills fields left empty in a config file
func (c *Config) applyDefaults() {
	def := NewConfig()
	if c.DefaultFormat == "" {
		c.DefaultFormat = def.DefaultFormat
	}
	if c.Output == "" {
		c.Output = def.Output
	}
	if c.Color == "" {
		c.Color = def.Color
	}
	if c.HexDumpLimit == 0 {
		c.HexDumpLimit = def.HexDumpLimit
	}
	if c.LogFile.Path != "" && c.LogFile.MaxSizeMB == 0 {
		c.LogFile.MaxSizeMB = DefaultLogMaxSizeMB
	}
}

// Validate checks that every field holds a supported value
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if !slices.Contains(validOutputs, c.Output) {
		return fmt.Errorf("invalid output %q (expected one of %v)", c.Output, validOutputs)
	}
	if !slices.Contains(validColors, c.Color) {
		return fmt.Errorf("invalid color %q (expected one of %v)", c.Color, validColors)
	}
	if c.HexDumpLimit < 0 {
		return fmt.Errorf("hex_dump_limit must not be negative, got %d", c.HexDumpLimit)
	}
	if c.LogFile.MaxSizeMB < 0 || c.LogFile.MaxBackups < 0 || c.LogFile.MaxAgeDays < 0 {
		return fmt.Errorf("log_file limits must not be negative")
	}
	return nil
}
