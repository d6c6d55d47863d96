package bitcursor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxTakeBits is the widest integer Take can return.
const MaxTakeBits = 64

var (
	// ErrOutOfBounds is returned when a read would cross the cursor's ceiling.
	ErrOutOfBounds = errors.New("read past end of available bits")
	// ErrBadWidth is returned for widths a read cannot represent.
	ErrBadWidth = errors.New("unsupported read width")
	// ErrUnaligned is returned when a byte-oriented read starts mid-byte.
	ErrUnaligned = errors.New("cursor not byte aligned")
)

// BoundsError describes a read that did not fit below the ceiling.
type BoundsError struct {
	Offset    uint64 // bit offset the read started at
	Width     uint64 // bits requested
	Available uint64 // bits left before the ceiling
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("need %d bits at bit %d, only %d available", e.Width, e.Offset, e.Available)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// Cursor is an immutable position inside a byte buffer.
type Cursor struct {
	buf   []byte
	off   uint64
	limit uint64
}

// New returns a cursor at bit 0 whose ceiling is the end of buf.
func New(buf []byte) Cursor {
	return Cursor{buf: buf, limit: uint64(len(buf)) * 8}
}

// At returns a cursor over buf positioned at bit offset off.
func At(buf []byte, off uint64) (Cursor, error) {
	c := New(buf)
	if off > c.limit {
		return c, &BoundsError{Offset: 0, Width: off, Available: c.limit}
	}
	c.off = off
	return c, nil
}

// Offset returns the absolute bit offset of the cursor.
func (c Cursor) Offset() uint64 { return c.off }

// Limit returns the absolute bit ceiling of the cursor.
func (c Cursor) Limit() uint64 { return c.limit }

// Remaining returns the number of bits left before the ceiling.
func (c Cursor) Remaining() uint64 { return c.limit - c.off }

// Aligned reports whether the cursor sits on a byte boundary.
func (c Cursor) Aligned() bool { return c.off%8 == 0 }

// Buffer returns the underlying buffer. Callers must not modify it.
func (c Cursor) Buffer() []byte { return c.buf }

func (c Cursor) check(width uint64) error {
	if width > c.Remaining() {
		return &BoundsError{Offset: c.off, Width: width, Available: c.Remaining()}
	}
	return nil
}

// Take reads width bits, most significant first, as an unsigned integer.
// A zero width returns 0 and the same cursor.
func (c Cursor) Take(width uint) (Cursor, uint64, error) {
	if width == 0 {
		return c, 0, nil
	}
	if width > MaxTakeBits {
		return c, 0, fmt.Errorf("%w: %d bits (max %d)", ErrBadWidth, width, MaxTakeBits)
	}
	w := uint64(width)
	if err := c.check(w); err != nil {
		return c, 0, err
	}

	if c.Aligned() {
		i := c.off / 8
		switch width {
		case 8:
			return c.advance(w), uint64(c.buf[i]), nil
		case 16:
			return c.advance(w), uint64(binary.BigEndian.Uint16(c.buf[i:])), nil
		case 32:
			return c.advance(w), uint64(binary.BigEndian.Uint32(c.buf[i:])), nil
		case 64:
			return c.advance(w), binary.BigEndian.Uint64(c.buf[i:]), nil
		}
	}

	var v uint64
	pos := c.off
	left := w
	for left > 0 {
		inByte := pos % 8
		avail := 8 - inByte
		n := min(avail, left)
		shift := avail - n
		bits := uint64(c.buf[pos/8]>>shift) & (1<<n - 1)
		v = v<<n | bits
		pos += n
		left -= n
	}
	return c.advance(w), v, nil
}

// TakeLE reads a byte-aligned little-endian integer of 8, 16, 32 or 64 bits.
func (c Cursor) TakeLE(width uint) (Cursor, uint64, error) {
	if !c.Aligned() {
		return c, 0, fmt.Errorf("%w: little-endian read at bit %d", ErrUnaligned, c.off)
	}
	w := uint64(width)
	switch width {
	case 8, 16, 32, 64:
	default:
		return c, 0, fmt.Errorf("%w: little-endian read of %d bits", ErrBadWidth, width)
	}
	if err := c.check(w); err != nil {
		return c, 0, err
	}
	i := c.off / 8
	var v uint64
	switch width {
	case 8:
		v = uint64(c.buf[i])
	case 16:
		v = uint64(binary.LittleEndian.Uint16(c.buf[i:]))
	case 32:
		v = uint64(binary.LittleEndian.Uint32(c.buf[i:]))
	case 64:
		v = binary.LittleEndian.Uint64(c.buf[i:])
	}
	return c.advance(w), v, nil
}

// Bytes returns the next width bits as a sub-slice of the buffer without copying.
// The cursor must be byte aligned and width a multiple of 8.
func (c Cursor) Bytes(width uint64) (Cursor, []byte, error) {
	if !c.Aligned() {
		return c, nil, fmt.Errorf("%w: byte read at bit %d", ErrUnaligned, c.off)
	}
	if width%8 != 0 {
		return c, nil, fmt.Errorf("%w: %d bits is not a whole number of bytes", ErrBadWidth, width)
	}
	if err := c.check(width); err != nil {
		return c, nil, err
	}
	start := c.off / 8
	end := start + width/8
	return c.advance(width), c.buf[start:end:end], nil
}

// Skip advances the cursor by width bits.
func (c Cursor) Skip(width uint64) (Cursor, error) {
	if err := c.check(width); err != nil {
		return c, err
	}
	return c.advance(width), nil
}

// WithLimit returns a cursor at the same offset whose ceiling is bits further on.
// The new ceiling may not exceed the current one.
func (c Cursor) WithLimit(bits uint64) (Cursor, error) {
	if err := c.check(bits); err != nil {
		return c, err
	}
	c.limit = c.off + bits
	return c, nil
}

// Resume returns c moved to the offset of inner while keeping c's ceiling.
// It is used to leave a bounded sub-decode.
func (c Cursor) Resume(inner Cursor) Cursor {
	c.off = inner.off
	return c
}

func (c Cursor) advance(w uint64) Cursor {
	c.off += w
	return c
}

// String returns a short position description.
func (c Cursor) String() string {
	return fmt.Sprintf("bit %d/%d", c.off, c.limit)
}
