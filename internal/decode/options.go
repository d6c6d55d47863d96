package decode

import (
	"fmt"

	"github.com/muurk/bitparse/internal/bitcursor"
)

// OptionLayout describes how option entries are framed on the wire.
type OptionLayout struct {
	KindBits   uint // Width of the discriminant
	LengthBits uint // Width of the declared length

	// LengthIncludesHeader is true when the declared length counts the kind and
	// length fields themselves (TCP) rather than only the value (STUN).
	LengthIncludesHeader bool

	// Align pads every value to a multiple of Align bytes. Zero or one disables it.
	Align uint64
}

// OctetLayout is the kind/length/value framing used by TCP and IPv4 options.
var OctetLayout = OptionLayout{KindBits: 8, LengthBits: 8, LengthIncludesHeader: true}

// OptionKind describes one member of an option list's closed set of kinds.
type OptionKind struct {
	Kind uint64
	Name string

	// Single marks kinds that consist of the discriminant alone.
	Single bool

	// Length is the mandated declared length. Zero accepts any self-declared length.
	Length uint64

	// Body decodes the value area. The body must consume the value exactly.
	// A nil Body keeps the value as raw bytes only.
	Body *StructDecoder
}

// OptionListDecoder decodes a sequence of tagged, variable-length entries bounded
// by a byte budget.
type OptionListDecoder struct {
	name   string
	layout OptionLayout
	kinds  map[uint64]OptionKind
	order  []uint64

	hasEnd bool
	end    uint64
	hasPad bool
	pad    uint64
	open   bool
}

// NewOptionList defines an option list with the given framing and kinds.
func NewOptionList(name string, layout OptionLayout, kinds ...OptionKind) *OptionListDecoder {
	l := &OptionListDecoder{name: name, layout: layout, kinds: make(map[uint64]OptionKind, len(kinds))}
	for _, k := range kinds {
		l.kinds[k.Kind] = k
		l.order = append(l.order, k.Kind)
	}
	return l
}

// Terminator sets the kind that ends the list.
func (l *OptionListDecoder) Terminator(kind uint64) *OptionListDecoder {
	l.hasEnd, l.end = true, kind
	return l
}

// Padding sets the single-octet no-op kind.
func (l *OptionListDecoder) Padding(kind uint64) *OptionListDecoder {
	l.hasPad, l.pad = true, kind
	return l
}

// AllowUnknown accepts kinds outside the closed set as opaque self-declared entries.
func (l *OptionListDecoder) AllowUnknown() *OptionListDecoder {
	l.open = true
	return l
}

// Name returns the list name.
func (l *OptionListDecoder) Name() string { return l.name }

// KindName returns the name of a known kind, or "" when unknown.
func (l *OptionListDecoder) KindName(kind uint64) string {
	switch {
	case l.hasEnd && kind == l.end:
		if k, ok := l.kinds[kind]; ok {
			return k.Name
		}
		return "end"
	case l.hasPad && kind == l.pad:
		if k, ok := l.kinds[kind]; ok {
			return k.Name
		}
		return "pad"
	}
	return l.kinds[kind].Name
}

// Decode reads entries until exactly budget bytes are consumed or the terminator
// is seen. The terminator is consumed but not returned. Reads past the budget fail
// with ErrTypeInsufficientData even when the buffer holds more bytes; an entry
// whose declared length overruns the budget is a constraint violation.
func (l *OptionListDecoder) Decode(c bitcursor.Cursor, ctx *Context, budget uint64) (bitcursor.Cursor, []Option, error) {
	if l.layout.KindBits == 0 {
		return c, nil, newError(ErrTypeInternalDefinition, c.Offset(), l.name, "option kind width is zero")
	}
	cur, err := c.WithLimit(budget * 8)
	if err != nil {
		return c, nil, cursorError(err, c.Offset(), l.name)
	}

	var opts []Option
	for cur.Remaining() > 0 {
		start := cur
		var kind uint64
		cur, kind, err = cur.Take(l.layout.KindBits)
		if err != nil {
			return c, nil, cursorError(err, start.Offset(), l.name)
		}

		if l.hasEnd && kind == l.end {
			return c.Resume(cur), opts, nil
		}
		if l.hasPad && kind == l.pad {
			opts = append(opts, Option{
				Kind:   kind,
				Name:   l.KindName(kind),
				Offset: start.Offset(),
				Bits:   cur.Offset() - start.Offset(),
			})
			continue
		}

		def, known := l.kinds[kind]
		if !known && !l.open {
			return c, nil, newError(ErrTypeUnknownDiscriminant, start.Offset(), l.name, "option kind %d is not defined", kind)
		}
		if def.Single {
			opts = append(opts, Option{
				Kind:   kind,
				Name:   def.Name,
				Offset: start.Offset(),
				Bits:   cur.Offset() - start.Offset(),
			})
			continue
		}

		opt, next, err := l.entry(start, cur, ctx, kind, def)
		if err != nil {
			return c, nil, err
		}
		opts = append(opts, opt)
		cur = next
	}
	return c.Resume(cur), opts, nil
}

// entry decodes the length, value and alignment of one option. cur sits just after
// the kind field.
func (l *OptionListDecoder) entry(start, cur bitcursor.Cursor, ctx *Context, kind uint64, def OptionKind) (Option, bitcursor.Cursor, error) {
	name := def.Name
	if name == "" {
		name = fmt.Sprintf("kind_%d", kind)
	}

	lenAt := cur
	cur, length, err := cur.Take(l.layout.LengthBits)
	if err != nil {
		return Option{}, start, cursorError(err, lenAt.Offset(), name)
	}
	if def.Length != 0 && length != def.Length {
		return Option{}, start, newError(ErrTypeConstraintViolation, lenAt.Offset(), name,
			"declared length %d, kind %d requires %d", length, kind, def.Length)
	}

	value := length
	if l.layout.LengthIncludesHeader {
		header := uint64(l.layout.KindBits+l.layout.LengthBits) / 8
		if length < header {
			return Option{}, start, newError(ErrTypeConstraintViolation, lenAt.Offset(), name,
				"declared length %d is shorter than the %d byte option header", length, header)
		}
		value = length - header
	}
	padded := value
	if a := l.layout.Align; a > 1 && value%a != 0 {
		padded = value + a - value%a
	}
	if padded*8 > cur.Remaining() {
		return Option{}, start, newError(ErrTypeConstraintViolation, lenAt.Offset(), name,
			"declared length %d overruns the %d bytes left in the option budget", length, cur.Remaining()/8)
	}

	body, err := cur.WithLimit(value * 8)
	if err != nil {
		return Option{}, start, cursorError(err, cur.Offset(), name)
	}
	opt := Option{
		Kind:      kind,
		Name:      name,
		Offset:    start.Offset(),
		HasLength: true,
		Length:    length,
	}
	if body.Aligned() {
		_, opt.Data, _ = body.Bytes(value * 8)
	}
	if def.Body != nil {
		rest, fields, err := def.Body.Decode(body, ctx)
		if err != nil {
			return Option{}, start, err
		}
		if rest.Remaining() != 0 {
			return Option{}, start, newError(ErrTypeConstraintViolation, rest.Offset(), name,
				"option value leaves %d bits undecoded", rest.Remaining())
		}
		opt.Fields = fields
	}

	next, err := cur.Skip(padded * 8)
	if err != nil {
		return Option{}, start, cursorError(err, cur.Offset(), name)
	}
	opt.Bits = next.Offset() - start.Offset()
	return opt, next, nil
}

func (l *OptionListDecoder) validate(avail map[string]bool) error {
	if l.layout.KindBits == 0 {
		return newError(ErrTypeInternalDefinition, 0, l.name, "option kind width is zero")
	}
	for _, k := range l.order {
		if body := l.kinds[k].Body; body != nil {
			if err := body.validate(avail); err != nil {
				return err
			}
		}
	}
	return nil
}

// OptionsStep places an option list inside a record. The budget width, in bits,
// normally comes from an earlier header-length field.
type OptionsStep struct {
	Name      string
	List      *OptionListDecoder
	Budget    Width
	ExportKey string // Context key receiving the bytes the list consumed
}

// Options is a struct step decoding list within budget.
func Options(name string, list *OptionListDecoder, budget Width) *OptionsStep {
	return &OptionsStep{Name: name, List: list, Budget: budget}
}

// ExportConsumed registers the number of bytes the list consumed under key, so
// that a following padding field can claim the rest of the budget.
func (s *OptionsStep) ExportConsumed(key string) *OptionsStep {
	s.ExportKey = key
	return s
}

// StepName implements Step.
func (s *OptionsStep) StepName() string { return s.Name }

func (s *OptionsStep) decodeInto(c bitcursor.Cursor, ctx *Context, rec *Record) (bitcursor.Cursor, error) {
	width, err := s.Budget.eval(envAt(ctx, c), s.Name)
	if err != nil {
		return c, err
	}
	if width%8 != 0 {
		return c, newError(ErrTypeConstraintViolation, c.Offset(), s.Name, "option budget of %d bits is not a whole number of bytes", width)
	}
	next, opts, err := s.List.Decode(c, ctx, width/8)
	if err != nil {
		return c, err
	}
	consumed := next.Offset() - c.Offset()
	if s.ExportKey != "" {
		ctx.Set(s.ExportKey, consumed/8)
	}
	rec.add(Entry{
		Name:    s.Name,
		Kind:    EntryOptions,
		Offset:  c.Offset(),
		Bits:    consumed,
		Options: opts,
	})
	return next, nil
}

func (s *OptionsStep) validate(avail map[string]bool) error {
	if err := missing(avail, s.Name, s.Budget.Deps()); err != nil {
		return err
	}
	if err := s.List.validate(avail); err != nil {
		return err
	}
	if s.ExportKey != "" {
		avail[s.ExportKey] = true
	}
	return nil
}
