package decode

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/muurk/bitparse/internal/bitcursor"
)

func TestDecodeRecord_TwoSixteenBitFields(t *testing.T) {
	d := NewStruct("pair", Uint("first", 16), Uint("second", 16))

	res, err := DecodeRecord([]byte{0x01, 0x02, 0x03, 0x04}, 32, d)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if got := res.Record.Uint("first"); got != 258 {
		t.Errorf("first = %d, want 258", got)
	}
	if got := res.Record.Uint("second"); got != 772 {
		t.Errorf("second = %d, want 772", got)
	}
	if res.RemainingBits() != 0 {
		t.Errorf("RemainingBits() = %d, want 0", res.RemainingBits())
	}
}

func TestDecodeRecord_UnclaimedTrailingBytes(t *testing.T) {
	d := NewStruct("fixed20",
		Uint("w0", 32), Uint("w1", 32), Uint("w2", 32), Uint("w3", 32), Uint("w4", 32),
	)

	_, err := DecodeRecord(make([]byte, 32), 32*8, d)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("DecodeRecord() error = %v, want ErrLengthMismatch", err)
	}
	if !strings.Contains(err.Error(), "96 trailing bits") {
		t.Errorf("error %q does not report 96 unclaimed bits", err)
	}
}

func TestDecodeRecord_OverConsumption(t *testing.T) {
	d := NewStruct("wide", Uint("a", 16))

	_, err := DecodeRecord([]byte{0xff, 0xff}, 8, d)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("DecodeRecord() error = %v, want ErrLengthMismatch", err)
	}
}

func TestDecodeRecord_RemainderAfterOverConsumption(t *testing.T) {
	d := NewStruct("framed", Uint("a", 32), Payload("rest", Remainder()))

	_, err := DecodeRecord([]byte{1, 2, 3, 4}, 16, d)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("DecodeRecord() error = %v, want ErrLengthMismatch", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "rest" || de.Offset != 32 {
		t.Errorf("error = %+v, want field rest at offset 32", de)
	}
}

func TestScaledWidthOverflow(t *testing.T) {
	d := NewStruct("huge",
		Uint("count", 64, Export()),
		Payload("items", Scaled("count", 8, 0)),
	)

	buf := []byte{0x20, 0, 0, 0, 0, 0, 0, 0, 0xaa}
	_, err := DecodeRecord(buf, uint64(len(buf))*8, d)
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("DecodeRecord() error = %v, want ErrConstraintViolation", err)
	}
	if !strings.Contains(err.Error(), "overflows") {
		t.Errorf("error %q does not report the overflow", err)
	}
}

func TestDecodeRecord_RemainderPayload(t *testing.T) {
	d := NewStruct("framed",
		Uint("version", 4),
		Uint("flags", 4),
		Payload("payload", Remainder()),
	)
	buf := []byte{0x21, 'a', 'b', 'c'}

	res, err := DecodeRecord(buf, 32, d)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	payload := res.Record.Bytes("payload")
	if !bytes.Equal(payload, []byte("abc")) {
		t.Errorf("payload = %q, want abc", payload)
	}
	if &payload[0] != &buf[1] {
		t.Error("payload was copied out of the input buffer")
	}
	if got := res.Record.Bits(); got != res.ConsumedBits() {
		t.Errorf("Record.Bits() = %d, ConsumedBits() = %d", got, res.ConsumedBits())
	}
}

func TestDecodeRecordAt_SubSlice(t *testing.T) {
	d := NewStruct("inner", Uint("a", 8), Payload("rest", Remainder()))
	buf := []byte{0xee, 0xee, 0x07, 0x08, 0x09, 0xee}

	c, err := bitcursor.At(buf, 16)
	if err != nil {
		t.Fatal(err)
	}
	res, err := DecodeRecordAt(c, 24, d)
	if err != nil {
		t.Fatalf("DecodeRecordAt() error = %v", err)
	}
	if res.Record.Uint("a") != 7 {
		t.Errorf("a = %d, want 7", res.Record.Uint("a"))
	}
	if !bytes.Equal(res.Record.Bytes("rest"), []byte{0x08, 0x09}) {
		t.Errorf("rest = %x, want 0809", res.Record.Bytes("rest"))
	}
	if res.Cursor.Offset() != 40 {
		t.Errorf("cursor at bit %d, want 40", res.Cursor.Offset())
	}
}

func TestFieldDecoder_Constraints(t *testing.T) {
	tests := []struct {
		name     string
		field    *FieldDecoder
		input    []byte
		wantErr  error
		wantType ErrorType
	}{
		{
			name:  "literal accepted",
			field: Uint("sync", 8, Literal(0x7e)),
			input: []byte{0x7e},
		},
		{
			name:     "literal rejected",
			field:    Uint("sync", 8, Literal(0x7e)),
			input:    []byte{0x7d},
			wantErr:  ErrConstraintViolation,
			wantType: ErrTypeConstraintViolation,
		},
		{
			name:  "enumerated member",
			field: Uint("kind", 4, OneOf(1, 2, 3)),
			input: []byte{0x20},
		},
		{
			name:     "enumerated non-member",
			field:    Uint("kind", 4, OneOf(1, 2, 3)),
			input:    []byte{0x90},
			wantErr:  ErrUnknownDiscriminant,
			wantType: ErrTypeUnknownDiscriminant,
		},
		{
			name:     "range rejected",
			field:    Uint("offset", 4, AtLeast(5)),
			input:    []byte{0x40},
			wantErr:  ErrConstraintViolation,
			wantType: ErrTypeConstraintViolation,
		},
		{
			name: "cross-field check rejected",
			field: Uint("length", 8, Check("length matches declared bytes", func(ctx *Context, v uint64) error {
				if v*8 != ctx.DeclaredBits() {
					return fmt.Errorf("length %d, declared %d bytes", v, ctx.DeclaredBits()/8)
				}
				return nil
			})),
			input:    []byte{0x02},
			wantErr:  ErrConstraintViolation,
			wantType: ErrTypeConstraintViolation,
		},
		{
			name:     "insufficient data",
			field:    Uint("wide", 16),
			input:    []byte{0x01},
			wantErr:  ErrInsufficientData,
			wantType: ErrTypeInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bitcursor.New(tt.input)
			next, _, err := tt.field.Decode(c, NewContext(uint64(len(tt.input))*8))

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if typ, _ := TypeOf(err); typ != tt.wantType {
				t.Errorf("TypeOf() = %v, want %v", typ, tt.wantType)
			}
			if next.Offset() != c.Offset() {
				t.Errorf("failed decode moved the cursor to %d", next.Offset())
			}
		})
	}
}

func TestLiteralRejectsEveryOtherValue(t *testing.T) {
	d := NewStruct("marked", Uint("lead", 3), Uint("marker", 8, Literal(0x5a)), Uint("tail", 5))

	for v := 0; v < 256; v++ {
		for _, lead := range []byte{0, 7} {
			word := uint16(lead)<<13 | uint16(v)<<5 | 0x1f
			buf := []byte{byte(word >> 8), byte(word)}
			_, err := DecodeRecord(buf, 16, d)
			if v == 0x5a {
				if err != nil {
					t.Fatalf("marker %#x lead %d: error = %v", v, lead, err)
				}
				continue
			}
			if !errors.Is(err, ErrConstraintViolation) {
				t.Fatalf("marker %#x lead %d: error = %v, want ErrConstraintViolation", v, lead, err)
			}
		}
	}
}

func TestExportedWidths(t *testing.T) {
	d := NewStruct("hdr",
		Uint("hlen", 4, Export()),
		Uint("kind", 4),
		Payload("extra", Scaled("hlen", 8, 8)),
		Payload("body", Remainder()),
	)

	tests := []struct {
		name      string
		input     []byte
		wantExtra []byte
		wantBody  []byte
		wantErr   error
	}{
		{
			name:      "two byte header",
			input:     []byte{0x23, 0xaa, 0x01, 0x02},
			wantExtra: []byte{0xaa},
			wantBody:  []byte{0x01, 0x02},
		},
		{
			name:     "one byte header",
			input:    []byte{0x10, 0x01},
			wantBody: []byte{0x01},
		},
		{
			name:    "header length of zero is inconsistent",
			input:   []byte{0x00, 0x01},
			wantErr: ErrConstraintViolation,
		},
		{
			name:    "header longer than buffer",
			input:   []byte{0x90, 0x01},
			wantErr: ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DecodeRecord(tt.input, uint64(len(tt.input))*8, d)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeRecord() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRecord() error = %v", err)
			}
			if !bytes.Equal(res.Record.Bytes("extra"), tt.wantExtra) {
				t.Errorf("extra = %x, want %x", res.Record.Bytes("extra"), tt.wantExtra)
			}
			if !bytes.Equal(res.Record.Bytes("body"), tt.wantBody) {
				t.Errorf("body = %x, want %x", res.Record.Bytes("body"), tt.wantBody)
			}
			if !res.Context.Has("hlen") {
				t.Error("hlen was not exported")
			}
		})
	}
}

func TestMissingDependencyIsDefinitionError(t *testing.T) {
	d := NewStruct("broken",
		Payload("body", Scaled("hlen", 8, 0)),
		Uint("hlen", 8, Export()),
	)

	_, err := DecodeRecord([]byte{1, 2}, 16, d)
	if !errors.Is(err, ErrInternalDefinition) {
		t.Fatalf("DecodeRecord() error = %v, want ErrInternalDefinition", err)
	}
	if IsRecoverable(err) {
		t.Error("definition errors must not be recoverable")
	}

	if err := d.Validate(); !errors.Is(err, ErrInternalDefinition) {
		t.Errorf("Validate() error = %v, want ErrInternalDefinition", err)
	}
	if err := d.Validate("hlen"); err != nil {
		t.Errorf("Validate(hlen) error = %v", err)
	}
}

func TestContextValueUnset(t *testing.T) {
	ctx := NewContext(8)
	if _, err := ctx.Value("nope"); !errors.Is(err, ErrInternalDefinition) {
		t.Errorf("Value() error = %v, want ErrInternalDefinition", err)
	}
	ctx.Set("x", 3)
	if v, err := ctx.Value("x"); err != nil || v != 3 {
		t.Errorf("Value(x) = %d, %v", v, err)
	}
	if err := ctx.Require("x", "y"); !errors.Is(err, ErrInternalDefinition) {
		t.Errorf("Require() error = %v, want ErrInternalDefinition", err)
	}
}

func TestWhen(t *testing.T) {
	d := NewStruct("opt",
		Uint("has_ext", 1, Export()),
		Uint("pad", 7),
		When(Equals("has_ext", 1), Uint("ext", 8)),
		Payload("rest", Remainder()),
	)

	res, err := DecodeRecord([]byte{0x80, 0x42, 0x01}, 24, d)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if !res.Record.Has("ext") || res.Record.Uint("ext") != 0x42 {
		t.Errorf("ext = %v, want 0x42", res.Record.Uint("ext"))
	}

	res, err = DecodeRecord([]byte{0x00, 0x42, 0x01}, 24, d)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if res.Record.Has("ext") {
		t.Error("ext should be absent when has_ext is 0")
	}
	if want := []string{"has_ext", "pad", "rest"}; pretty.Compare(res.Record.Names(), want) != "" {
		t.Errorf("Names() = %v, want %v", res.Record.Names(), want)
	}
}

func TestNestedRecordSharesContext(t *testing.T) {
	inner := NewStruct("inner", Uint("count", 4, Export()), Uint("flags", 4))
	outer := NewStruct("outer",
		Nested("head", inner),
		Payload("items", Scaled("count", 8, 0)),
	)

	res, err := DecodeRecord([]byte{0x21, 0xaa, 0xbb}, 24, outer)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	head := res.Record.Nested("head")
	if head == nil || head.Uint("flags") != 1 {
		t.Fatalf("head = %+v", head)
	}
	if !bytes.Equal(res.Record.Bytes("items"), []byte{0xaa, 0xbb}) {
		t.Errorf("items = %x", res.Record.Bytes("items"))
	}
	if res.Record.Bits() != 24 {
		t.Errorf("Bits() = %d, want 24", res.Record.Bits())
	}
}

func TestNestedFailureReturnsNoRecord(t *testing.T) {
	inner := NewStruct("inner", Uint("magic", 8, Literal(0xaa)))
	outer := NewStruct("outer", Uint("a", 8), Nested("inner", inner))

	c := bitcursor.New([]byte{0x01, 0xbb})
	next, rec, err := outer.Decode(c, NewContext(16))
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("Decode() error = %v, want ErrConstraintViolation", err)
	}
	if rec != nil {
		t.Errorf("Decode() returned partial record %+v", rec)
	}
	if next.Offset() != 0 {
		t.Errorf("cursor = %d, want 0", next.Offset())
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not a *DecodeError", err)
	}
	if de.Record != "inner" || de.Field != "magic" || de.Offset != 8 {
		t.Errorf("DecodeError = %+v", de)
	}
}

func TestDeterminism(t *testing.T) {
	d := NewStruct("det",
		Uint("a", 3, Export()),
		Uint("b", 13),
		When(Above("a", 1), Uint("c", 8)),
		Payload("rest", Remainder()),
	)
	inputs := [][]byte{
		{0x40, 0x01, 0x02, 0x03},
		{0x20, 0x01, 0x02},
		{0xe0},
	}
	for _, in := range inputs {
		r1, err1 := DecodeRecord(in, uint64(len(in))*8, d)
		r2, err2 := DecodeRecord(in, uint64(len(in))*8, d)
		if fmt.Sprint(err1) != fmt.Sprint(err2) {
			t.Errorf("input %x: errors differ: %v vs %v", in, err1, err2)
			continue
		}
		if err1 != nil {
			continue
		}
		if diff := pretty.Compare(r1.Record, r2.Record); diff != "" {
			t.Errorf("input %x: records differ:\n%s", in, diff)
		}
	}
}

func TestDecodeErrorFormatting(t *testing.T) {
	err := &DecodeError{
		Type:    ErrTypeConstraintViolation,
		Offset:  12,
		Record:  "tcp",
		Field:   "data_offset",
		Message: "value 3 is not >= 5",
	}
	want := "ConstraintViolation in tcp.data_offset at bit 12: value 3 is not >= 5"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if errors.Is(err, ErrInsufficientData) {
		t.Error("constraint violation should not match ErrInsufficientData")
	}
	if ErrorType(42).String() != "ErrorType(42)" {
		t.Errorf("unknown type String() = %q", ErrorType(42).String())
	}
}
