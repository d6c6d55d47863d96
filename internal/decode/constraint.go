package decode

import (
	"fmt"
	"slices"
	"strings"
)

type constraintKind int

const (
	constraintLiteral constraintKind = iota
	constraintEnum
	constraintRange
	constraintCheck
)

// Constraint restricts the values a field may decode to. Constraints are passed
// to Uint and UintW as field options.
type Constraint struct {
	kind    constraintKind
	literal uint64
	allowed map[uint64]string
	lo, hi  uint64
	check   func(ctx *Context, v uint64) error
	deps    []string
	desc    string
}

// Literal requires the value to equal v. Mismatches are constraint violations.
func Literal(v uint64) Constraint {
	return Constraint{kind: constraintLiteral, literal: v, desc: fmt.Sprintf("== %#x", v)}
}

// OneOf requires the value to be a member of a closed set of discriminants.
// Other values are unknown discriminants.
func OneOf(vs ...uint64) Constraint {
	allowed := make(map[uint64]string, len(vs))
	for _, v := range vs {
		allowed[v] = ""
	}
	return Constraint{kind: constraintEnum, allowed: allowed, desc: "one of " + formatSet(vs)}
}

// Enum is OneOf with a name for every member.
func Enum(names map[uint64]string) Constraint {
	vs := make([]uint64, 0, len(names))
	for v := range names {
		vs = append(vs, v)
	}
	return Constraint{kind: constraintEnum, allowed: names, desc: "one of " + formatSet(vs)}
}

// Range requires lo <= value <= hi.
func Range(lo, hi uint64) Constraint {
	return Constraint{kind: constraintRange, lo: lo, hi: hi, desc: fmt.Sprintf("in [%d, %d]", lo, hi)}
}

// AtLeast requires value >= lo.
func AtLeast(lo uint64) Constraint {
	return Constraint{kind: constraintRange, lo: lo, hi: ^uint64(0), desc: fmt.Sprintf(">= %d", lo)}
}

// Check is a cross-field constraint. fn may read the listed context values and
// returns a non-nil error to reject v.
func Check(desc string, fn func(ctx *Context, v uint64) error, deps ...string) Constraint {
	return Constraint{kind: constraintCheck, check: fn, deps: deps, desc: desc}
}

// Deps returns the context names the constraint reads.
func (c Constraint) Deps() []string { return c.deps }

func (c Constraint) String() string { return c.desc }

// Name returns the member name of v for Enum constraints.
func (c Constraint) Name(v uint64) string {
	return c.allowed[v]
}

func (c Constraint) apply(f *FieldDecoder) {
	f.Constraints = append(f.Constraints, c)
}

func (c Constraint) verify(ctx *Context, v uint64, offset uint64, field string) error {
	switch c.kind {
	case constraintLiteral:
		if v != c.literal {
			return newError(ErrTypeConstraintViolation, offset, field, "value %#x, want %#x", v, c.literal)
		}
	case constraintEnum:
		if _, ok := c.allowed[v]; !ok {
			return newError(ErrTypeUnknownDiscriminant, offset, field, "value %#x is not %s", v, c.desc)
		}
	case constraintRange:
		if v < c.lo || v > c.hi {
			return newError(ErrTypeConstraintViolation, offset, field, "value %d is not %s", v, c.desc)
		}
	case constraintCheck:
		if err := require(ctx, offset, field, c.deps); err != nil {
			return err
		}
		if err := c.check(ctx, v); err != nil {
			return located(err, offset, field)
		}
	}
	return nil
}

func formatSet(vs []uint64) string {
	sorted := slices.Clone(vs)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = fmt.Sprintf("%#x", v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
