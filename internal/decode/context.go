package decode

import (
	"maps"
	"slices"

	"github.com/muurk/bitparse/internal/bitcursor"
)

// Context is the per-call scratch space of one top-level decode.
//
// It holds the declared bit length of the message and the values that earlier
// fields exported for later widths, presence conditions and constraints. A
// Context is owned by a single decode call and is not safe for concurrent use.
type Context struct {
	declared uint64
	origin   uint64
	values   map[string]uint64
}

// NewContext creates a context for a message of declaredBits bits starting at bit 0.
func NewContext(declaredBits uint64) *Context {
	return &Context{declared: declaredBits, values: make(map[string]uint64)}
}

// StartAt moves the message start to an absolute bit offset and returns c.
// Use it when the message begins part way into a larger buffer.
func (c *Context) StartAt(offset uint64) *Context {
	c.origin = offset
	return c
}

// DeclaredBits returns the declared length of the enclosing message.
func (c *Context) DeclaredBits() uint64 { return c.declared }

// Origin returns the absolute bit offset the message starts at.
func (c *Context) Origin() uint64 { return c.origin }

// Consumed returns how many message bits lie before cur.
func (c *Context) Consumed(cur bitcursor.Cursor) uint64 {
	if cur.Offset() < c.origin {
		return 0
	}
	return cur.Offset() - c.origin
}

// Set records a named value for later fields.
func (c *Context) Set(name string, v uint64) {
	c.values[name] = v
}

// Has reports whether name was set.
func (c *Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Value returns a previously set value. Reading a name that was never set is a
// defect in the format definition and yields ErrTypeInternalDefinition.
func (c *Context) Value(name string) (uint64, error) {
	v, ok := c.values[name]
	if !ok {
		return 0, newError(ErrTypeInternalDefinition, 0, name, "context value %q read before it was decoded", name)
	}
	return v, nil
}

// Require checks that every name has been set.
func (c *Context) Require(names ...string) error {
	for _, n := range names {
		if !c.Has(n) {
			return newError(ErrTypeInternalDefinition, 0, n, "dependency %q is not in the context", n)
		}
	}
	return nil
}

// Names returns the set names in sorted order.
func (c *Context) Names() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// fork returns an independent copy for a speculative decode.
func (c *Context) fork() *Context {
	return &Context{declared: c.declared, origin: c.origin, values: maps.Clone(c.values)}
}

// adopt replaces c's values with those of a successful fork.
func (c *Context) adopt(f *Context) {
	c.values = f.values
}
