package decode

import (
	"go.uber.org/zap"

	"github.com/muurk/bitparse/internal/bitcursor"
	"github.com/muurk/bitparse/internal/logging"
)

// Result is a successful top-level decode.
type Result struct {
	Variant string // Matching candidate; empty for single-format decodes
	Record  *Record
	Context *Context
	Cursor  bitcursor.Cursor // Position after the message
}

// ConsumedBits returns how many message bits the decode accounted for.
func (r *Result) ConsumedBits() uint64 {
	return r.Context.Consumed(r.Cursor)
}

// RemainingBits returns declared minus consumed bits. It is zero for every
// successful result because trailing bits must be claimed by a payload field.
func (r *Result) RemainingBits() uint64 {
	return r.Context.DeclaredBits() - r.ConsumedBits()
}

// DecodeRecord decodes buf as a single record format. declaredBits is normally
// len(buf)*8 but may be smaller when buf holds more than the message.
func DecodeRecord(buf []byte, declaredBits uint64, d *StructDecoder) (*Result, error) {
	return DecodeRecordAt(bitcursor.New(buf), declaredBits, d)
}

// DecodeRecordAt decodes a record that starts at c.
func DecodeRecordAt(c bitcursor.Cursor, declaredBits uint64, d *StructDecoder) (*Result, error) {
	ctx := NewContext(declaredBits).StartAt(c.Offset())
	next, rec, err := d.Decode(c, ctx)
	if err != nil {
		return nil, err
	}
	if err := checkConsumption(next, ctx); err != nil {
		logging.Debug("Top-level length mismatch",
			zap.String("record", d.Name()),
			zap.Uint64("declared_bits", declaredBits),
			zap.Uint64("consumed_bits", ctx.Consumed(next)),
		)
		return nil, inRecord(err, d.Name())
	}
	return &Result{Record: rec, Context: ctx, Cursor: next}, nil
}

// DecodePDU classifies buf with a VariantDispatcher.
func DecodePDU(buf []byte, declaredBits uint64, d *VariantDispatcher) (*Result, error) {
	return DecodePDUAt(bitcursor.New(buf), declaredBits, d)
}

// DecodePDUAt classifies a message that starts at c.
func DecodePDUAt(c bitcursor.Cursor, declaredBits uint64, d *VariantDispatcher) (*Result, error) {
	ctx := NewContext(declaredBits).StartAt(c.Offset())
	next, v, err := d.Decode(c, ctx)
	if err != nil {
		return nil, err
	}
	if err := checkConsumption(next, ctx); err != nil {
		logging.Debug("Top-level length mismatch",
			zap.String("variant", v.Name),
			zap.Uint64("declared_bits", declaredBits),
			zap.Uint64("consumed_bits", ctx.Consumed(next)),
		)
		return nil, inRecord(err, v.Name)
	}
	return &Result{Variant: v.Name, Record: v.Record, Context: ctx, Cursor: next}, nil
}

// checkConsumption enforces that exactly the declared bits were consumed.
func checkConsumption(c bitcursor.Cursor, ctx *Context) error {
	consumed := ctx.Consumed(c)
	declared := ctx.DeclaredBits()
	switch {
	case consumed < declared:
		return newError(ErrTypeLengthMismatch, c.Offset(), "", "%d trailing bits unclaimed (declared %d, consumed %d)",
			declared-consumed, declared, consumed)
	case consumed > declared:
		return newError(ErrTypeLengthMismatch, c.Offset(), "", "consumed %d bits beyond the declared %d",
			consumed-declared, declared)
	}
	return nil
}
