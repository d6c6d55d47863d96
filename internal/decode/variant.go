package decode

import (
	"errors"

	"go.uber.org/zap"

	"github.com/muurk/bitparse/internal/bitcursor"
	"github.com/muurk/bitparse/internal/logging"
)

// PostCondition is checked after a candidate decoded without error. A non-nil
// result rejects the candidate.
type PostCondition func(c bitcursor.Cursor, ctx *Context, rec *Record) error

// Complete rejects candidates that do not consume the declared length exactly.
func Complete() PostCondition {
	return func(c bitcursor.Cursor, ctx *Context, rec *Record) error {
		return checkConsumption(c, ctx)
	}
}

// Candidate is one alternative of a VariantDispatcher.
type Candidate struct {
	Name    string
	Decoder *StructDecoder
	Post    []PostCondition
}

// VariantDispatcher tries candidates in priority order and returns the first that
// decodes and passes its post-conditions.
type VariantDispatcher struct {
	candidates []Candidate
}

// NewVariantDispatcher defines an ordered alternation. Earlier candidates win.
func NewVariantDispatcher(candidates ...Candidate) *VariantDispatcher {
	return &VariantDispatcher{candidates: candidates}
}

// Candidates returns the candidate names in priority order.
func (d *VariantDispatcher) Candidates() []string {
	names := make([]string, len(d.candidates))
	for i, c := range d.candidates {
		names[i] = c.Name
	}
	return names
}

// Decode tries every candidate against an independent copy of the starting
// context. Rejected candidates leave nothing behind; the winner's context values
// are merged into ctx. Definition errors abort dispatch immediately because no
// other candidate can fix them.
func (d *VariantDispatcher) Decode(c bitcursor.Cursor, ctx *Context) (bitcursor.Cursor, Variant, error) {
	attempts := make([]error, 0, len(d.candidates))
	for i, cand := range d.candidates {
		fork := ctx.fork()
		next, rec, err := d.try(cand, c, fork)
		if err == nil {
			ctx.adopt(fork)
			return next, Variant{Name: cand.Name, Index: i, Record: rec}, nil
		}
		if !IsRecoverable(err) {
			return c, Variant{}, err
		}

		kind, _ := TypeOf(err)
		logging.Debug("Variant candidate rejected",
			zap.String("candidate", cand.Name),
			zap.Int("priority", i),
			zap.String("error_type", kind.String()),
			zap.Uint64("bit_offset", c.Offset()),
			zap.Error(err),
		)
		attempts = append(attempts, err)
	}

	return c, Variant{}, &DecodeError{
		Type:     ErrTypeNoMatchingVariant,
		Offset:   c.Offset(),
		Message:  "every candidate was rejected",
		Attempts: attempts,
	}
}

func (d *VariantDispatcher) try(cand Candidate, c bitcursor.Cursor, ctx *Context) (bitcursor.Cursor, *Record, error) {
	next, rec, err := cand.Decoder.Decode(c, ctx)
	if err != nil {
		return c, nil, err
	}
	for _, post := range cand.Post {
		if err := post(next, ctx, rec); err != nil {
			var de *DecodeError
			if !errors.As(err, &de) {
				err = &DecodeError{Type: ErrTypeConstraintViolation, Offset: next.Offset(), Field: cand.Name, Err: err}
			}
			return c, nil, err
		}
	}
	return next, rec, nil
}
