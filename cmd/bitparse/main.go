// Bitparse decodes bit-granular binary protocol headers.
//
// It reads a message from hex arguments, a file or stdin, decodes it with one
// of the built-in formats (UDP, TCP, STUN, the Smartap device frame and the
// simple version headers) and prints the decoded record as a styled tree,
// JSON or YAML.
//
// Usage:
//
//	bitparse [command] [flags]
//
// See 'bitparse --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/bitparse/internal/config"
	"github.com/muurk/bitparse/internal/logging"
	"github.com/muurk/bitparse/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	logFile    string
)

// cfg is the loaded configuration, set before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bitparse",
	Short: "Bit-level protocol header decoder",
	Long: `Decode binary protocol headers field by field, down to single bits.

Built-in formats cover UDP, TCP with options, STUN with attributes, the
Smartap device frame and two simple version headers. The "pdu" format
classifies a message as whichever dispatched format decodes it completely.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		file := cfg.LogFile
		if cmd.Flags().Changed("log-file") {
			file.Path = logFile
		}
		if err := logging.InitializeWithFile(level, logFileConfig(file)); err != nil {
			return err
		}
		logging.SetHexDumpLimit(cfg.HexDumpLimit)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this rotating file")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file at path, or the default location when path is empty
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		c, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return c, nil
	}
	c, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return c, nil
}

func logFileConfig(f config.LogFile) logging.FileConfig {
	size := f.MaxSizeMB
	if f.Path != "" && size == 0 {
		size = config.DefaultLogMaxSizeMB
	}
	return logging.FileConfig{
		Path:       f.Path,
		MaxSizeMB:  size,
		MaxBackups: f.MaxBackups,
		MaxAgeDays: f.MaxAgeDays,
		Compress:   f.Compress,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "bitparse %s (commit: %s, %s %s)\n",
			info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}
