package decode

import (
	"fmt"

	"github.com/muurk/bitparse/internal/bitcursor"
)

// Step is one element of a StructDecoder: a field, a payload, a nested record,
// an option list or a conditional step.
type Step interface {
	StepName() string
	decodeInto(c bitcursor.Cursor, ctx *Context, rec *Record) (bitcursor.Cursor, error)
	validate(avail map[string]bool) error
}

// StructDecoder decodes a composite record by running its steps in declaration order.
type StructDecoder struct {
	name  string
	steps []Step
}

// NewStruct defines a record format.
func NewStruct(name string, steps ...Step) *StructDecoder {
	return &StructDecoder{name: name, steps: steps}
}

// Name returns the record name.
func (d *StructDecoder) Name() string { return d.name }

// Steps returns the step names in decode order.
func (d *StructDecoder) Steps() []string {
	names := make([]string, len(d.steps))
	for i, s := range d.steps {
		names[i] = s.StepName()
	}
	return names
}

// Decode runs every step against c. The first failing step aborts the decode and
// its error is returned with its original type; no partial record is returned.
func (d *StructDecoder) Decode(c bitcursor.Cursor, ctx *Context) (bitcursor.Cursor, *Record, error) {
	rec := &Record{Name: d.name, Offset: c.Offset()}
	cur := c
	for _, s := range d.steps {
		var err error
		cur, err = s.decodeInto(cur, ctx, rec)
		if err != nil {
			return c, nil, inRecord(err, d.name)
		}
	}
	return cur, rec, nil
}

// Validate checks at definition time that every width, constraint and condition
// only reads context values exported by an earlier step. external lists names the
// caller promises to set before decoding.
func (d *StructDecoder) Validate(external ...string) error {
	avail := make(map[string]bool, len(external))
	for _, n := range external {
		avail[n] = true
	}
	return d.validate(avail)
}

func (d *StructDecoder) validate(avail map[string]bool) error {
	for _, s := range d.steps {
		if err := s.validate(avail); err != nil {
			return inRecord(err, d.name)
		}
	}
	return nil
}

type nestedStep struct {
	name string
	dec  *StructDecoder
}

// Nested embeds another record. It is decoded with the same Context.
func Nested(name string, d *StructDecoder) Step {
	return &nestedStep{name: name, dec: d}
}

func (n *nestedStep) StepName() string { return n.name }

func (n *nestedStep) decodeInto(c bitcursor.Cursor, ctx *Context, rec *Record) (bitcursor.Cursor, error) {
	next, inner, err := n.dec.Decode(c, ctx)
	if err != nil {
		return c, err
	}
	rec.add(Entry{
		Name:   n.name,
		Kind:   EntryRecord,
		Offset: c.Offset(),
		Bits:   next.Offset() - c.Offset(),
		Record: inner,
	})
	return next, nil
}

func (n *nestedStep) validate(avail map[string]bool) error {
	return n.dec.validate(avail)
}

// Condition decides whether a conditional step is present.
type Condition struct {
	desc string
	deps []string
	fn   func(Env) (bool, error)
}

// If is a presence condition computed by fn from the listed context values.
func If(desc string, fn func(Env) (bool, error), deps ...string) Condition {
	return Condition{desc: desc, deps: deps, fn: fn}
}

// Above is present when value(name) > v.
func Above(name string, v uint64) Condition {
	return If(fmt.Sprintf("%s > %d", name, v), func(env Env) (bool, error) {
		x, err := env.Ctx.Value(name)
		return x > v, err
	}, name)
}

// Equals is present when value(name) == v.
func Equals(name string, v uint64) Condition {
	return If(fmt.Sprintf("%s == %d", name, v), func(env Env) (bool, error) {
		x, err := env.Ctx.Value(name)
		return x == v, err
	}, name)
}

func (c Condition) String() string { return c.desc }

type whenStep struct {
	cond Condition
	step Step
}

// When decodes step only if cond holds; otherwise the step is absent from the record.
func When(cond Condition, step Step) Step {
	return &whenStep{cond: cond, step: step}
}

func (w *whenStep) StepName() string { return w.step.StepName() }

func (w *whenStep) decodeInto(c bitcursor.Cursor, ctx *Context, rec *Record) (bitcursor.Cursor, error) {
	name := w.step.StepName()
	if err := require(ctx, c.Offset(), name, w.cond.deps); err != nil {
		return c, err
	}
	ok, err := w.cond.fn(envAt(ctx, c))
	if err != nil {
		return c, located(err, c.Offset(), name)
	}
	if !ok {
		return c, nil
	}
	return w.step.decodeInto(c, ctx, rec)
}

func (w *whenStep) validate(avail map[string]bool) error {
	if err := missing(avail, w.step.StepName(), w.cond.deps); err != nil {
		return err
	}
	return w.step.validate(avail)
}
