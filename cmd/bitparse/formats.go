package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/muurk/bitparse/internal/protocol"
	"github.com/muurk/bitparse/internal/ui"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the built-in message formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.SetColorMode(cfg.Color)
		return listFormats(cmd.OutOrStdout(), cfg.DefaultFormat)
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

// listFormats prints one line per format, marking the configured default
func listFormats(out io.Writer, def string) error {
	width := 0
	for _, name := range protocol.FormatNames() {
		width = max(width, len(name))
	}

	fmt.Fprintln(out, ui.HeaderTitleStyle.Render("FORMATS"))
	for _, f := range protocol.Formats() {
		marker := " "
		if f.Name == def {
			marker = "*"
		}
		kind := "record"
		if f.Dispatch != nil {
			kind = "dispatch"
		}
		fmt.Fprintf(out, "  %s %s  %-8s %s\n",
			marker,
			ui.FieldNameStyle.Render(fmt.Sprintf("%-*s", width, f.Name)),
			kind,
			ui.HeaderCommandStyle.Render(f.Description),
		)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.HeaderCommandStyle.Render("* default format"))
	return nil
}
