package decode

import (
	"github.com/muurk/bitparse/internal/bitcursor"
)

// FieldOption configures a FieldDecoder. Constraints are field options too.
type FieldOption interface {
	apply(*FieldDecoder)
}

type fieldOptionFunc func(*FieldDecoder)

func (fn fieldOptionFunc) apply(f *FieldDecoder) { fn(f) }

// Export registers the decoded value in the Context under the field name.
func Export() FieldOption {
	return fieldOptionFunc(func(f *FieldDecoder) { f.ExportKey = f.Name })
}

// ExportAs registers the decoded value in the Context under key.
func ExportAs(key string) FieldOption {
	return fieldOptionFunc(func(f *FieldDecoder) { f.ExportKey = key })
}

// LittleEndian reads the field as a byte-aligned little-endian integer.
func LittleEndian() FieldOption {
	return fieldOptionFunc(func(f *FieldDecoder) { f.LittleEndian = true })
}

// FieldDecoder decodes one unsigned integer field.
type FieldDecoder struct {
	Name         string
	Width        Width
	Constraints  []Constraint
	ExportKey    string // Context key the value is registered under; empty for none
	LittleEndian bool
}

// Uint is a field of a fixed number of bits.
func Uint(name string, bits uint64, opts ...FieldOption) *FieldDecoder {
	return UintW(name, Bits(bits), opts...)
}

// UintW is a field whose width may be computed.
func UintW(name string, w Width, opts ...FieldOption) *FieldDecoder {
	f := &FieldDecoder{Name: name, Width: w}
	for _, opt := range opts {
		opt.apply(f)
	}
	return f
}

// Decode reads the field at c, applies its constraints in order and exports the
// value when asked to. On failure the returned cursor is c.
func (f *FieldDecoder) Decode(c bitcursor.Cursor, ctx *Context) (bitcursor.Cursor, uint64, error) {
	width, err := f.Width.eval(envAt(ctx, c), f.Name)
	if err != nil {
		return c, 0, err
	}
	if width > bitcursor.MaxTakeBits {
		t := ErrTypeConstraintViolation
		if f.Width.Fixed() {
			t = ErrTypeInternalDefinition
		}
		return c, 0, newError(t, c.Offset(), f.Name, "integer field of %d bits exceeds %d", width, bitcursor.MaxTakeBits)
	}

	var next bitcursor.Cursor
	var v uint64
	if f.LittleEndian {
		next, v, err = c.TakeLE(uint(width))
	} else {
		next, v, err = c.Take(uint(width))
	}
	if err != nil {
		return c, 0, cursorError(err, c.Offset(), f.Name)
	}

	for _, con := range f.Constraints {
		if err := con.verify(ctx, v, c.Offset(), f.Name); err != nil {
			return c, 0, err
		}
	}

	if f.ExportKey != "" {
		ctx.Set(f.ExportKey, v)
	}
	return next, v, nil
}

// StepName implements Step.
func (f *FieldDecoder) StepName() string { return f.Name }

func (f *FieldDecoder) decodeInto(c bitcursor.Cursor, ctx *Context, rec *Record) (bitcursor.Cursor, error) {
	next, v, err := f.Decode(c, ctx)
	if err != nil {
		return c, err
	}
	rec.add(Entry{
		Name:   f.Name,
		Kind:   EntryUint,
		Offset: c.Offset(),
		Bits:   next.Offset() - c.Offset(),
		Uint:   v,
	})
	return next, nil
}

func (f *FieldDecoder) validate(avail map[string]bool) error {
	if err := missing(avail, f.Name, f.Width.Deps()); err != nil {
		return err
	}
	for _, con := range f.Constraints {
		if err := missing(avail, f.Name, con.Deps()); err != nil {
			return err
		}
	}
	if f.ExportKey != "" {
		avail[f.ExportKey] = true
	}
	return nil
}

// PayloadDecoder decodes a byte sequence that references the input buffer.
type PayloadDecoder struct {
	Name  string
	Width Width
}

// Payload is a byte field of width bits. The width must come out as whole bytes
// and the field must start on a byte boundary.
func Payload(name string, w Width) *PayloadDecoder {
	return &PayloadDecoder{Name: name, Width: w}
}

// Decode returns the payload bytes without copying them.
func (p *PayloadDecoder) Decode(c bitcursor.Cursor, ctx *Context) (bitcursor.Cursor, []byte, error) {
	width, err := p.Width.eval(envAt(ctx, c), p.Name)
	if err != nil {
		return c, nil, err
	}
	if width%8 != 0 {
		return c, nil, newError(ErrTypeConstraintViolation, c.Offset(), p.Name, "byte field of %d bits is not a whole number of bytes", width)
	}
	next, b, err := c.Bytes(width)
	if err != nil {
		return c, nil, cursorError(err, c.Offset(), p.Name)
	}
	return next, b, nil
}

// StepName implements Step.
func (p *PayloadDecoder) StepName() string { return p.Name }

func (p *PayloadDecoder) decodeInto(c bitcursor.Cursor, ctx *Context, rec *Record) (bitcursor.Cursor, error) {
	next, b, err := p.Decode(c, ctx)
	if err != nil {
		return c, err
	}
	rec.add(Entry{
		Name:   p.Name,
		Kind:   EntryBytes,
		Offset: c.Offset(),
		Bits:   next.Offset() - c.Offset(),
		Bytes:  b,
	})
	return next, nil
}

func (p *PayloadDecoder) validate(avail map[string]bool) error {
	return missing(avail, p.Name, p.Width.Deps())
}

func envAt(ctx *Context, c bitcursor.Cursor) Env {
	return Env{
		Ctx:       ctx,
		Offset:    c.Offset(),
		Consumed:  ctx.Consumed(c),
		Available: c.Remaining(),
	}
}

func missing(avail map[string]bool, field string, deps []string) error {
	for _, d := range deps {
		if !avail[d] {
			return newError(ErrTypeInternalDefinition, 0, field, "depends on %q which no earlier field exports", d)
		}
	}
	return nil
}
