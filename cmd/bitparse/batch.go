package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/bitparse/internal/config"
	"github.com/muurk/bitparse/internal/decode"
	"github.com/muurk/bitparse/internal/logging"
	"github.com/muurk/bitparse/internal/protocol"
	"github.com/muurk/bitparse/internal/ui"
)

// batchFlags holds the batch command flags
var batchFlags struct {
	Format      string
	Output      string
	MaxFailures int
}

var batchCmd = &cobra.Command{
	Use:   "batch [file or directory...]",
	Short: "Decode every message in capture files and report statistics",
	Long: `Decode every message in one or more capture files and report how many
decoded, which records or variants they decoded as, and why the rest failed.

Each non-empty line holds one message, either as hex text or as a JSON object
with a "payload_hex" member. Lines starting with '#' are ignored. Files ending
in .zst or .gz are decompressed. Directories are searched for *.hex and *.jsonl
files, compressed or not. Without arguments stdin is read.

The command exits non-zero when any message fails to decode.`,
	Example: `  # Classify every message in a capture
  bitparse batch capture.hex

  # Check a directory of device captures against the device frame format
  bitparse batch --format device_frame captures/`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFlags.Format, "format", "f", "", "Message format (see 'bitparse formats')")
	batchCmd.Flags().StringVarP(&batchFlags.Output, "output", "o", "", "Output format (text, json, yaml)")
	batchCmd.Flags().IntVar(&batchFlags.MaxFailures, "max-failures", 10, "Failures listed in text output")

	rootCmd.AddCommand(batchCmd)
}

// batchStats tracks decode results across a batch
type batchStats struct {
	Files    int            `json:"files" yaml:"files"`
	Messages int            `json:"messages" yaml:"messages"`
	Success  int            `json:"success" yaml:"success"`
	Failure  int            `json:"failure" yaml:"failure"`
	Decoded  map[string]int `json:"decoded" yaml:"decoded"` // By variant, or record name for single formats
	Errors   map[string]int `json:"errors" yaml:"errors"`   // By error type
	Lengths  map[int]int    `json:"lengths" yaml:"lengths"` // Message size in bytes
	Failures []batchFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// batchFailure records one message that did not decode
type batchFailure struct {
	File  string `json:"file" yaml:"file"`
	Line  int    `json:"line" yaml:"line"`
	Hex   string `json:"hex,omitempty" yaml:"hex,omitempty"`
	Error string `json:"error" yaml:"error"`
}

func newBatchStats() *batchStats {
	return &batchStats{
		Decoded: make(map[string]int),
		Errors:  make(map[string]int),
		Lengths: make(map[int]int),
	}
}

// capturedMessage is the part of a JSON capture line the batch reads
type capturedMessage struct {
	PayloadHex string `json:"payload_hex"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	name := batchFlags.Format
	if !cmd.Flags().Changed("format") {
		name = cfg.DefaultFormat
	}
	output := batchFlags.Output
	if !cmd.Flags().Changed("output") {
		output = cfg.Output
	}
	ui.SetColorMode(cfg.Color)

	format, ok := protocol.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown format %q (available: %s)", name, strings.Join(protocol.FormatNames(), ", "))
	}

	stats := newBatchStats()
	if len(args) == 0 {
		stats.process("stdin", cmd.InOrStdin(), format)
	} else {
		files, err := collectFiles(args)
		if err != nil {
			return err
		}
		for _, file := range files {
			if err := stats.processFile(file, format); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	var err error
	switch output {
	case config.OutputJSON:
		err = writeJSON(out, stats)
	case config.OutputYAML:
		err = writeYAML(out, stats)
	default:
		printBatch(out, format.Name, stats, batchFlags.MaxFailures)
	}
	if err != nil {
		return err
	}
	if stats.Failure > 0 {
		return fmt.Errorf("%w: %d of %d messages", errReported, stats.Failure, stats.Messages)
	}
	return nil
}

var capturePatterns = []string{"*.hex", "*.jsonl", "*.hex.zst", "*.jsonl.zst", "*.hex.gz", "*.jsonl.gz"}

// collectFiles expands directories into their *.hex and *.jsonl files
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		var found []string
		for _, pattern := range capturePatterns {
			matches, err := filepath.Glob(filepath.Join(path, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to search %s: %w", path, err)
			}
			found = append(found, matches...)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no capture files found in %s", path)
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	return files, nil
}

func (s *batchStats) processFile(path string, format protocol.Format) error {
	r, err := openCapture(path)
	if err != nil {
		return err
	}
	defer r.Close()
	s.process(path, r, format)
	return nil
}

// openCapture opens path, decompressing .zst and .gz files
func openCapture(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read zstd stream %s: %w", path, err)
		}
		return &decompressor{Reader: dec, close: func() error { dec.Close(); return f.Close() }}, nil
	case ".gz":
		dec, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read gzip stream %s: %w", path, err)
		}
		return &decompressor{Reader: dec, close: func() error { dec.Close(); return f.Close() }}, nil
	}
	return f, nil
}

// decompressor closes both the decoder and the file under it
type decompressor struct {
	io.Reader
	close func() error
}

func (d *decompressor) Close() error { return d.close() }

// process decodes every message line of r
func (s *batchStats) process(name string, r io.Reader, format protocol.Format) {
	s.Files++

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s.Messages++

		payloadHex, data, err := parseLine(text)
		if err != nil {
			s.fail(name, line, payloadHex, "InvalidInput", err)
			continue
		}
		s.Lengths[len(data)]++

		_, res, err := format.Decode(data, uint64(len(data))*8)
		if err != nil {
			errType := "Error"
			if t, ok := decode.TypeOf(err); ok {
				errType = t.String()
			}
			s.fail(name, line, payloadHex, errType, err)
			continue
		}

		s.Success++
		key := res.Variant
		if key == "" {
			key = res.Record.Name
		}
		s.Decoded[key]++
	}
	if err := scanner.Err(); err != nil {
		s.fail(name, line+1, "", "InvalidInput", fmt.Errorf("read failed: %w", err))
	}
}

func (s *batchStats) fail(file string, line int, payloadHex, errType string, err error) {
	s.Failure++
	s.Errors[errType]++
	s.Failures = append(s.Failures, batchFailure{File: file, Line: line, Hex: payloadHex, Error: err.Error()})
	logging.Debug("Batch message failed",
		zap.String("file", file),
		zap.Int("line", line),
		zap.String("error_type", errType),
		zap.Error(err),
	)
}

// parseLine returns the hex text and bytes of one capture line
func parseLine(text string) (string, []byte, error) {
	if strings.HasPrefix(text, "{") {
		var msg capturedMessage
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return "", nil, fmt.Errorf("invalid JSON capture line: %w", err)
		}
		text = msg.PayloadHex
	}
	data, err := parseHex(text)
	return text, data, err
}

func printBatch(out io.Writer, format string, s *batchStats, maxShow int) {
	fmt.Fprintln(out, ui.NewHeader("BATCH", "bitparse batch --format "+format,
		ui.Param{Key: "Files", Value: fmt.Sprintf("%d", s.Files)},
		ui.Param{Key: "Messages", Value: fmt.Sprintf("%d", s.Messages)},
	).Render())

	percent := func(n, of int) string {
		if of == 0 {
			return "0.00%"
		}
		return fmt.Sprintf("%.2f%%", float64(n)/float64(of)*100)
	}

	details := []ui.Param{
		{Key: "Decoded", Value: fmt.Sprintf("%d (%s)", s.Success, percent(s.Success, s.Messages))},
		{Key: "Failed", Value: fmt.Sprintf("%d (%s)", s.Failure, percent(s.Failure, s.Messages))},
	}
	for _, k := range slices.Sorted(maps.Keys(s.Decoded)) {
		details = append(details, ui.Param{Key: "  " + k, Value: fmt.Sprintf("%d", s.Decoded[k])})
	}
	for _, k := range slices.Sorted(maps.Keys(s.Errors)) {
		details = append(details, ui.Param{Key: "  " + k, Value: fmt.Sprintf("%d", s.Errors[k])})
	}

	var body strings.Builder
	body.WriteString("Message sizes:\n")
	for _, n := range slices.Sorted(maps.Keys(s.Lengths)) {
		fmt.Fprintf(&body, "  %5d bytes  %d\n", n, s.Lengths[n])
	}
	if len(s.Failures) > 0 {
		shown := min(len(s.Failures), max(maxShow, 0))
		fmt.Fprintf(&body, "\nFailures (showing %d of %d):\n", shown, len(s.Failures))
		for _, f := range s.Failures[:shown] {
			preview := f.Hex
			if len(preview) > 80 {
				preview = preview[:80] + "..."
			}
			fmt.Fprintf(&body, "  %s:%d  %s\n", f.File, f.Line, f.Error)
			if preview != "" {
				fmt.Fprintf(&body, "    %s\n", preview)
			}
		}
	}

	var result *ui.Result
	if s.Failure == 0 {
		result = ui.NewSuccessResult("All messages decoded", details...)
	} else {
		result = ui.NewWarningResult(fmt.Sprintf("%d messages failed to decode", s.Failure), details...)
	}
	fmt.Fprintln(out, result.SetBody(strings.TrimRight(body.String(), "\n")).Render())
}
