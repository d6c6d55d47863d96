package decode

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Env is what a computed width or condition may look at.
type Env struct {
	Ctx       *Context
	Offset    uint64 // Absolute bit offset of the field being sized
	Consumed  uint64 // Message bits before the field
	Available uint64 // Bits left before the enclosing ceiling
}

// Width is a field width in bits, either fixed or computed from earlier values.
type Width struct {
	fixed   uint64
	deps    []string
	compute func(Env) (int64, error)
	desc    string
}

// Bits is a fixed width of n bits.
func Bits(n uint64) Width { return Width{fixed: n, desc: fmt.Sprintf("%d", n)} }

// Octets is a fixed width of n bytes.
func Octets(n uint64) Width { return Width{fixed: n * 8, desc: fmt.Sprintf("%d", n*8)} }

// Computed is a width derived by fn. Every context value fn reads must be listed in
// deps so that the decoder can refuse to evaluate it before they exist.
func Computed(desc string, fn func(Env) (int64, error), deps ...string) Width {
	return Width{deps: deps, compute: fn, desc: desc}
}

// Scaled is the width value(name)*mul - sub, the usual shape of header-length
// arithmetic: Scaled("data_offset", 32, 160) sizes the TCP option area.
func Scaled(name string, mul, sub int64) Width {
	return Computed(fmt.Sprintf("%s*%d-%d", name, mul, sub), func(env Env) (int64, error) {
		v, err := env.Ctx.Value(name)
		if err != nil {
			return 0, err
		}
		if mul != 0 && v > uint64(math.MaxInt64/absInt(mul)) {
			return 0, newError(ErrTypeConstraintViolation, env.Offset, "", "%s=%d scaled by %d overflows", name, v, mul)
		}
		return int64(v)*mul - sub, nil
	}, name)
}

// Remainder is whatever the declared message length has left after the fields
// decoded so far. It is the width of trailing payload fields. Fields that already
// ran past the declared length fail with ErrTypeLengthMismatch.
func Remainder() Width {
	return Computed("remainder", func(env Env) (int64, error) {
		declared := env.Ctx.DeclaredBits()
		if env.Consumed > declared {
			return 0, newError(ErrTypeLengthMismatch, env.Offset, "", "declared length %d bits, %d already consumed", declared, env.Consumed)
		}
		return int64(declared - env.Consumed), nil
	})
}

// Rest is everything left before the current ceiling, for example the value
// area of an option.
func Rest() Width {
	return Computed("rest", func(env Env) (int64, error) {
		return int64(env.Available), nil
	})
}

// Deps returns the context names the width depends on.
func (w Width) Deps() []string { return w.deps }

// Fixed reports whether the width is a constant.
func (w Width) Fixed() bool { return w.compute == nil }

func (w Width) String() string {
	if len(w.deps) == 0 {
		return w.desc
	}
	return fmt.Sprintf("%s [%s]", w.desc, strings.Join(w.deps, ","))
}

// eval resolves the width. Missing dependencies are definition errors; negative
// results come from inconsistent input and are constraint violations.
func (w Width) eval(env Env, field string) (uint64, error) {
	if w.compute == nil {
		return w.fixed, nil
	}
	if err := require(env.Ctx, env.Offset, field, w.deps); err != nil {
		return 0, err
	}
	n, err := w.compute(env)
	if err != nil {
		return 0, located(err, env.Offset, field)
	}
	if n < 0 {
		return 0, newError(ErrTypeConstraintViolation, env.Offset, field, "width %s evaluates to %d bits", w.desc, n)
	}
	return uint64(n), nil
}

func require(ctx *Context, offset uint64, field string, deps []string) error {
	for _, d := range deps {
		if !ctx.Has(d) {
			return newError(ErrTypeInternalDefinition, offset, field, "depends on %q which has not been decoded", d)
		}
	}
	return nil
}

// located fills in position details on errors raised by user callbacks.
// Plain errors become constraint violations.
func located(err error, offset uint64, field string) error {
	var de *DecodeError
	if !errors.As(err, &de) {
		return &DecodeError{Type: ErrTypeConstraintViolation, Offset: offset, Field: field, Err: err}
	}
	if de.Offset == 0 {
		de.Offset = offset
	}
	if de.Field == "" {
		de.Field = field
	}
	return de
}

func absInt(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
