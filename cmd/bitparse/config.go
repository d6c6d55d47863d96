package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/bitparse/internal/config"
	"github.com/muurk/bitparse/internal/ui"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath(configPath)
		if err != nil {
			return err
		}
		return showConfig(cmd.OutOrStdout(), path, cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Long: `Write a configuration file with default values.

If a file already exists you are asked before it is overwritten.`,
	Example: `  # Create the default config file
  bitparse config init

  # Overwrite without asking
  bitparse config init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath(configPath)
		if err != nil {
			return err
		}
		return initConfig(cmd.InOrStdin(), cmd.OutOrStdout(), path, forceInit)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file without asking")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.GetConfigPath()
}

func showConfig(out io.Writer, path string, c *config.Config) error {
	if c == nil {
		c = config.NewConfig()
	}
	status := "not found, using defaults"
	if _, err := os.Stat(path); err == nil {
		status = "loaded"
	}
	fmt.Fprintf(out, "# %s (%s)\n", path, status)

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

func initConfig(in io.Reader, out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		ok := ui.Confirm(in, out, "Config file exists",
			[]string{path, "Current settings will be replaced with defaults"},
			"Overwrite it?")
		if !ok {
			return nil
		}
	}

	if err := config.NewConfig().SaveToFile(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintln(out, ui.NewSuccessResult("Config written", ui.Param{Key: "Path", Value: path}).Render())
	return nil
}
