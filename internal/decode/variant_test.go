package decode

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/bitparse/internal/bitcursor"
	"github.com/muurk/bitparse/internal/logging"
)

func simpleDispatcher(post ...PostCondition) *VariantDispatcher {
	return NewVariantDispatcher(
		Candidate{Name: "multiple", Decoder: NewStruct("multiple", Uint("version", 8), Uint("field2", 4), Uint("field3", 4)), Post: post},
		Candidate{Name: "single", Decoder: NewStruct("single", Uint("version", 8)), Post: post},
	)
}

func TestVariantDispatcher(t *testing.T) {
	tests := []struct {
		name        string
		disp        *VariantDispatcher
		input       []byte
		wantVariant string
		wantIndex   int
		wantErr     error
	}{
		{
			name: "first candidate fails its literal, second matches",
			disp: NewVariantDispatcher(
				Candidate{Name: "framed", Decoder: NewStruct("framed", Uint("sync", 8, Literal(0x7e)), Uint("b", 8))},
				Candidate{Name: "plain", Decoder: NewStruct("plain", Uint("a", 8), Uint("b", 8))},
			),
			input:       []byte{0x01, 0x02},
			wantVariant: "plain",
			wantIndex:   1,
		},
		{
			name: "earlier candidate wins when both parse",
			disp: NewVariantDispatcher(
				Candidate{Name: "framed", Decoder: NewStruct("framed", Uint("sync", 8, Literal(0x7e)), Uint("b", 8))},
				Candidate{Name: "plain", Decoder: NewStruct("plain", Uint("a", 8), Uint("b", 8))},
			),
			input:       []byte{0x7e, 0x02},
			wantVariant: "framed",
		},
		{
			name:        "longer header rejected on short input",
			disp:        simpleDispatcher(),
			input:       []byte{0x02},
			wantVariant: "single",
			wantIndex:   1,
		},
		{
			name:        "longer header matches two bytes",
			disp:        simpleDispatcher(Complete()),
			input:       []byte{0x03, 0xa9},
			wantVariant: "multiple",
		},
		{
			name: "completeness rejects a prefix match",
			disp: NewVariantDispatcher(
				Candidate{Name: "single", Decoder: NewStruct("single", Uint("version", 8)), Post: []PostCondition{Complete()}},
				Candidate{Name: "multiple", Decoder: NewStruct("multiple", Uint("version", 8), Uint("field2", 4), Uint("field3", 4))},
			),
			input:       []byte{0x03, 0xa9},
			wantVariant: "multiple",
			wantIndex:   1,
		},
		{
			name: "no candidate matches",
			disp: NewVariantDispatcher(
				Candidate{Name: "a", Decoder: NewStruct("a", Uint("x", 8, Literal(1)))},
				Candidate{Name: "b", Decoder: NewStruct("b", Uint("x", 16))},
			),
			input:   []byte{0x02},
			wantErr: ErrNoMatchingVariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bitcursor.New(tt.input)
			next, v, err := tt.disp.Decode(c, NewContext(uint64(len(tt.input))*8))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				if next.Offset() != 0 {
					t.Errorf("failed dispatch moved the cursor to %d", next.Offset())
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if v.Name != tt.wantVariant || v.Index != tt.wantIndex {
				t.Errorf("Decode() = %s/%d, want %s/%d", v.Name, v.Index, tt.wantVariant, tt.wantIndex)
			}
			if v.Record.Bits() != next.Offset() {
				t.Errorf("record Bits() = %d, cursor at %d", v.Record.Bits(), next.Offset())
			}
		})
	}
}

func TestNoMatchingVariantAttempts(t *testing.T) {
	disp := NewVariantDispatcher(
		Candidate{Name: "a", Decoder: NewStruct("a", Uint("x", 8, Literal(1)))},
		Candidate{Name: "b", Decoder: NewStruct("b", Uint("x", 16))},
	)

	_, _, err := disp.Decode(bitcursor.New([]byte{0x02}), NewContext(8))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not a *DecodeError", err)
	}
	if len(de.Attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(de.Attempts))
	}
	if !errors.Is(de.Attempts[0], ErrConstraintViolation) {
		t.Errorf("attempt 0 = %v, want ErrConstraintViolation", de.Attempts[0])
	}
	if !errors.Is(de.Attempts[1], ErrInsufficientData) {
		t.Errorf("attempt 1 = %v, want ErrInsufficientData", de.Attempts[1])
	}
	if errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrInsufficientData) {
		t.Error("candidate failures must not leak into the dispatch error chain")
	}
}

func TestDispatcherRollsBackContext(t *testing.T) {
	disp := NewVariantDispatcher(
		Candidate{Name: "tagged", Decoder: NewStruct("tagged", Uint("tag", 8, Export()), Uint("magic", 8, Literal(0xff)))},
		Candidate{Name: "plain", Decoder: NewStruct("plain", Uint("kind", 8, Export()), Uint("value", 8))},
	)
	ctx := NewContext(16)
	ctx.Set("outer", 1)

	_, v, err := disp.Decode(bitcursor.New([]byte{0x01, 0x02}), ctx)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Name != "plain" {
		t.Fatalf("variant = %s, want plain", v.Name)
	}
	if ctx.Has("tag") {
		t.Error("rejected candidate's export leaked into the context")
	}
	if !ctx.Has("kind") || !ctx.Has("outer") {
		t.Errorf("context names = %v, want kind and outer", ctx.Names())
	}
}

func TestDispatcherDoesNotSwallowDefinitionErrors(t *testing.T) {
	disp := NewVariantDispatcher(
		Candidate{Name: "broken", Decoder: NewStruct("broken", Payload("body", Scaled("undefined", 8, 0)))},
		Candidate{Name: "plain", Decoder: NewStruct("plain", Uint("a", 8))},
	)

	_, _, err := disp.Decode(bitcursor.New([]byte{0x01}), NewContext(8))
	if !errors.Is(err, ErrInternalDefinition) {
		t.Fatalf("Decode() error = %v, want ErrInternalDefinition", err)
	}
}

func TestPostConditionPlainError(t *testing.T) {
	reject := func(c bitcursor.Cursor, ctx *Context, rec *Record) error {
		if rec.Uint("a") == 0 {
			return errors.New("zero is reserved")
		}
		return nil
	}
	disp := NewVariantDispatcher(
		Candidate{Name: "nonzero", Decoder: NewStruct("nonzero", Uint("a", 8)), Post: []PostCondition{reject}},
	)

	_, _, err := disp.Decode(bitcursor.New([]byte{0x00}), NewContext(8))
	var de *DecodeError
	if !errors.As(err, &de) || len(de.Attempts) != 1 {
		t.Fatalf("Decode() error = %v", err)
	}
	if !errors.Is(de.Attempts[0], ErrConstraintViolation) {
		t.Errorf("attempt = %v, want ErrConstraintViolation", de.Attempts[0])
	}
}

func TestDispatcherLogsRejections(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	if _, _, err := simpleDispatcher().Decode(bitcursor.New([]byte{0x02}), NewContext(8)); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	rejected := logs.FilterMessage("Variant candidate rejected").All()
	if len(rejected) != 1 {
		t.Fatalf("got %d rejection entries, want 1", len(rejected))
	}
	fields := rejected[0].ContextMap()
	if fields["candidate"] != "multiple" || fields["error_type"] != "InsufficientData" {
		t.Errorf("rejection fields = %v", fields)
	}
}

func TestDecodePDU(t *testing.T) {
	res, err := DecodePDU([]byte{0x03, 0xa9}, 16, simpleDispatcher(Complete()))
	if err != nil {
		t.Fatalf("DecodePDU() error = %v", err)
	}
	if res.Variant != "multiple" || res.Record.Uint("field2") != 10 || res.Record.Uint("field3") != 9 {
		t.Errorf("DecodePDU() = %s %+v", res.Variant, res.Record)
	}

	_, err = DecodePDU([]byte{0x03, 0xa9, 0x00}, 24, simpleDispatcher())
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("DecodePDU() error = %v, want ErrLengthMismatch", err)
	}
}
