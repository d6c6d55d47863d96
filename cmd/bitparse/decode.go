package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/bitparse/internal/bitcursor"
	"github.com/muurk/bitparse/internal/config"
	"github.com/muurk/bitparse/internal/decode"
	"github.com/muurk/bitparse/internal/logging"
	"github.com/muurk/bitparse/internal/protocol"
	"github.com/muurk/bitparse/internal/ui"
)

// errReported marks a failure that has already been written to the output
var errReported = errors.New("decode failed")

// decodeOptions holds the resolved settings of one decode run
type decodeOptions struct {
	Format       string
	Input        inputSource
	DeclaredBits uint64
	HasDeclared  bool   // DeclaredBits was given; otherwise every bit after Offset
	Offset       uint64 // Bit offset the message starts at
	Output       string
	Color        string
	MaxBytes     int
}

var decodeFlags decodeOptions

var decodeCmd = &cobra.Command{
	Use:   "decode [hex bytes...]",
	Short: "Decode a message",
	Long: `Decode one message with a built-in format.

The message is read from hex arguments, --hex, --file or stdin. Hex input may
use spaces, colons or commas between bytes. Use --raw to read a binary file.

The declared length defaults to every bit after --offset. A shorter --bits
value decodes a message that is followed by unrelated data.`,
	Example: `  # Classify a message with the default dispatcher
  bitparse decode 01 23

  # Decode a UDP datagram
  bitparse decode --format udp 82 8e 00 35 00 0a 12 34 aa bb

  # Decode a TCP segment captured to a binary file, as JSON
  bitparse decode --format tcp --raw --file segment.bin --output json

  # Decode a STUN message embedded 8 bytes into a buffer
  bitparse decode --format stun --offset 64 --hex "$(cat dump.hex)"`,
	RunE: runDecode,
}

func init() {
	f := decodeCmd.Flags()
	f.StringVarP(&decodeFlags.Format, "format", "f", "", "Message format (see 'bitparse formats')")
	f.StringVar(&decodeFlags.Input.Hex, "hex", "", "Message as a hex string")
	f.StringVar(&decodeFlags.Input.File, "file", "", "Read the message from a file ('-' for stdin)")
	f.BoolVar(&decodeFlags.Input.Raw, "raw", false, "File and stdin input is binary rather than hex text")
	f.Uint64Var(&decodeFlags.DeclaredBits, "bits", 0, "Declared message length in bits (default: rest of input)")
	f.Uint64Var(&decodeFlags.Offset, "offset", 0, "Bit offset the message starts at")
	f.StringVarP(&decodeFlags.Output, "output", "o", "", "Output format (text, json, yaml)")
	f.StringVar(&decodeFlags.Color, "color", "", "Color mode (auto, always, never)")
	f.IntVar(&decodeFlags.MaxBytes, "max-bytes", 32, "Bytes shown per byte field in text output")

	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	opts := decodeFlags
	opts.Input.Args = args
	opts.HasDeclared = cmd.Flags().Changed("bits")
	opts.applyConfig(cfg, cmd.Flags().Changed)
	return opts.run(cmd.InOrStdin(), cmd.OutOrStdout())
}

// applyConfig fills every setting whose flag was not given from c
func (o *decodeOptions) applyConfig(c *config.Config, changed func(string) bool) {
	if c == nil {
		c = config.NewConfig()
	}
	if !changed("format") {
		o.Format = c.DefaultFormat
	}
	if !changed("output") {
		o.Output = c.Output
	}
	if !changed("color") {
		o.Color = c.Color
	}
}

func (o *decodeOptions) run(in io.Reader, out io.Writer) error {
	format, ok := protocol.Lookup(o.Format)
	if !ok {
		return fmt.Errorf("unknown format %q (available: %s)", o.Format, strings.Join(protocol.FormatNames(), ", "))
	}
	switch o.Output {
	case config.OutputText, config.OutputJSON, config.OutputYAML:
	default:
		return fmt.Errorf("invalid output %q (expected text, json or yaml)", o.Output)
	}
	ui.SetColorMode(o.Color)

	data, err := o.Input.read(in)
	if err != nil {
		return err
	}
	c, err := bitcursor.At(data, o.Offset)
	if err != nil {
		return fmt.Errorf("offset %d is past the end of a %d bit input", o.Offset, len(data)*8)
	}
	declared := c.Remaining()
	if o.HasDeclared {
		declared = o.DeclaredBits
	}

	logging.LogDecodeInput(format.Name, declared, data)
	pdu, res, err := format.DecodeAt(c, declared)
	if err != nil {
		logging.LogDecodeResult(format.Name, "", 0, err)
		return o.reportFailure(out, format.Name, declared, len(data), err)
	}
	logging.LogDecodeResult(format.Name, res.Variant, res.ConsumedBits(), nil)

	doc := exportDocument{
		Format:       format.Name,
		Variant:      res.Variant,
		Record:       res.Record.Name,
		DeclaredBits: declared,
		ConsumedBits: res.ConsumedBits(),
		Summary:      pdu.String(),
		Entries:      exportRecord(res.Record),
	}

	switch o.Output {
	case config.OutputJSON:
		return writeJSON(out, doc)
	case config.OutputYAML:
		return writeYAML(out, doc)
	}

	fmt.Fprintln(out, o.header(format.Name, declared, len(data)).Render())

	details := []ui.Param{{Key: "Record", Value: res.Record.Name}}
	if res.Variant != "" {
		details = append(details, ui.Param{Key: "Variant", Value: res.Variant})
	}
	details = append(details,
		ui.Param{Key: "Consumed", Value: fmt.Sprintf("%d of %d bits", doc.ConsumedBits, declared)},
		ui.Param{Key: "Summary", Value: doc.Summary},
	)
	view := ui.NewRecordView()
	view.MaxBytes = o.MaxBytes
	result := ui.NewSuccessResult(format.Name+" decoded", details...).SetBody(view.Render(res.Record))
	fmt.Fprintln(out, result.Render())
	return nil
}

func (o *decodeOptions) header(format string, declared uint64, size int) *ui.Header {
	params := []ui.Param{
		{Key: "Format", Value: format},
		{Key: "Input", Value: fmt.Sprintf("%d bytes", size)},
		{Key: "Declared", Value: fmt.Sprintf("%d bits", declared)},
	}
	if o.Offset > 0 {
		params = append(params, ui.Param{Key: "Offset", Value: fmt.Sprintf("bit %d", o.Offset)})
	}
	return ui.NewHeader("DECODE", "bitparse decode --format "+format, params...)
}

// exportFailure is the JSON/YAML form of a decode error
type exportFailure struct {
	Format   string   `json:"format" yaml:"format"`
	Error    string   `json:"error" yaml:"error"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
	Record   string   `json:"record,omitempty" yaml:"record,omitempty"`
	Field    string   `json:"field,omitempty" yaml:"field,omitempty"`
	Offset   *uint64  `json:"offset,omitempty" yaml:"offset,omitempty"`
	Attempts []string `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

func newExportFailure(format string, err error) exportFailure {
	f := exportFailure{Format: format, Error: err.Error()}
	var de *decode.DecodeError
	if errors.As(err, &de) {
		f.Type = de.Type.String()
		f.Record = de.Record
		f.Field = de.Field
		off := de.Offset
		f.Offset = &off
		for _, a := range de.Attempts {
			f.Attempts = append(f.Attempts, a.Error())
		}
	}
	return f
}

func (o *decodeOptions) reportFailure(out io.Writer, format string, declared uint64, size int, err error) error {
	var werr error
	switch o.Output {
	case config.OutputJSON:
		werr = writeJSON(out, newExportFailure(format, err))
	case config.OutputYAML:
		werr = writeYAML(out, newExportFailure(format, err))
	default:
		fmt.Fprintln(out, o.header(format, declared, size).Render())
		fmt.Fprintln(out, ui.NewDecodeFailure(format, err).Render())
	}
	if werr != nil {
		return werr
	}
	return fmt.Errorf("%w: %w", errReported, err)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
