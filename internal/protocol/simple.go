package protocol

import (
	"fmt"

	"github.com/muurk/bitparse/internal/decode"
)

// SingleField is a header made of a version byte only.
var SingleField = decode.NewStruct("single_field_header",
	decode.Uint("version", 8),
)

// MultipleField is a version byte followed by two 4-bit fields.
var MultipleField = decode.NewStruct("multiple_field_header",
	decode.Uint("version", 8),
	decode.Uint("field2", 4),
	decode.Uint("field3", 4),
)

// SingleFieldHeader is a decoded SingleField record
type SingleFieldHeader struct {
	Version uint8
}

func (h *SingleFieldHeader) Format() string { return "single_field_header" }

func (h *SingleFieldHeader) String() string {
	return fmt.Sprintf("SingleFieldHeader{version=%d}", h.Version)
}

// MultipleFieldHeader is a decoded MultipleField record
type MultipleFieldHeader struct {
	Version uint8
	Field2  uint8
	Field3  uint8
}

func (h *MultipleFieldHeader) Format() string { return "multiple_field_header" }

func (h *MultipleFieldHeader) String() string {
	return fmt.Sprintf("MultipleFieldHeader{version=%d, field2=%d, field3=%d}", h.Version, h.Field2, h.Field3)
}

// NewSingleFieldHeader converts a record produced by SingleField
func NewSingleFieldHeader(rec *decode.Record) *SingleFieldHeader {
	return &SingleFieldHeader{Version: uint8(rec.Uint("version"))}
}

// NewMultipleFieldHeader converts a record produced by MultipleField
func NewMultipleFieldHeader(rec *decode.Record) *MultipleFieldHeader {
	return &MultipleFieldHeader{
		Version: uint8(rec.Uint("version")),
		Field2:  uint8(rec.Uint("field2")),
		Field3:  uint8(rec.Uint("field3")),
	}
}
