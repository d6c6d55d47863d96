package ui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/bitparse/internal/decode"
)

// nameColumn is the width of the indent plus name column
const nameColumn = 24

// RecordView renders a decoded record as an indented field tree:
//
//	@0     source_port                16  33422 (0x828e)
//	@160   options                   160  5 entries
//	@160     [0] mss                  32  kind=2 len=4
type RecordView struct {
	ShowOffsets bool
	MaxBytes    int // Bytes shown per byte field; zero shows all
}

// NewRecordView returns a view with offsets shown and long byte fields elided
func NewRecordView() *RecordView {
	return &RecordView{ShowOffsets: true, MaxBytes: 32}
}

// Render returns the field tree of rec
func (v *RecordView) Render(rec *decode.Record) string {
	var b strings.Builder
	v.record(&b, rec, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func (v *RecordView) record(b *strings.Builder, rec *decode.Record, depth int) {
	if rec == nil {
		return
	}
	for _, e := range rec.Entries {
		switch e.Kind {
		case decode.EntryUint:
			v.line(b, depth, e.Offset, e.Name, FieldNameStyle, e.Bits,
				FieldValueStyle.Render(fmt.Sprintf("%d (%#x)", e.Uint, e.Uint)))
		case decode.EntryBytes:
			v.line(b, depth, e.Offset, e.Name, FieldNameStyle, e.Bits,
				FieldValueStyle.Render(v.bytes(e.Bytes)))
		case decode.EntryRecord:
			v.line(b, depth, e.Offset, e.Name, GroupNameStyle, e.Bits, "")
			v.record(b, e.Record, depth+1)
		case decode.EntryOptions:
			v.line(b, depth, e.Offset, e.Name, GroupNameStyle, e.Bits,
				fmt.Sprintf("%d entries", len(e.Options)))
			for i, o := range e.Options {
				v.option(b, i, o, depth+1)
			}
		}
	}
}

func (v *RecordView) option(b *strings.Builder, i int, o decode.Option, depth int) {
	desc := fmt.Sprintf("kind=%d", o.Kind)
	if o.HasLength {
		desc += fmt.Sprintf(" len=%d", o.Length)
	}
	if o.Fields == nil && len(o.Data) > 0 {
		desc += " " + v.bytes(o.Data)
	}
	v.line(b, depth, o.Offset, fmt.Sprintf("[%d] %s", i, o.Name), GroupNameStyle, o.Bits, desc)
	v.record(b, o.Fields, depth+1)
}

func (v *RecordView) line(b *strings.Builder, depth int, offset uint64, name string, style lipgloss.Style, bits uint64, value string) {
	if v.ShowOffsets {
		b.WriteString(OffsetStyle.Render(fmt.Sprintf("@%-6d", offset)))
	}
	indent := depth * IndentWidth
	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString(style.Render(fmt.Sprintf("%-*s", max(nameColumn-indent, len(name)), name)))
	b.WriteString(" ")
	b.WriteString(FieldWidthStyle.Render(fmt.Sprintf("%4d", bits)))
	if value != "" {
		b.WriteString("  ")
		b.WriteString(value)
	}
	b.WriteString("\n")
}

func (v *RecordView) bytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	if v.MaxBytes > 0 && len(data) > v.MaxBytes {
		return fmt.Sprintf("%s… (%d bytes)", hex.EncodeToString(data[:v.MaxBytes]), len(data))
	}
	return hex.EncodeToString(data)
}

// RenderRecord renders rec with the default view
func RenderRecord(rec *decode.Record) string {
	return NewRecordView().Render(rec)
}
