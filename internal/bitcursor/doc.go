// Package bitcursor provides a read-only, bit-addressable view over a byte buffer.
//
// A Cursor is a small value: the borrowed buffer, a bit offset and a bit ceiling.
// Every read returns a new Cursor, so a Cursor can be copied freely and a failed
// read never disturbs the position a caller is holding.
//
// # Bit Order
//
// Bits are numbered globally from the first byte, most significant bit first.
// A field may start or end in the middle of a byte:
//
//	buf := []byte{0x42, 0x7f}
//	c := bitcursor.New(buf)
//	c, hi, _ := c.Take(3)  // 0b010 = 2
//	c, lo, _ := c.Take(13) // remaining 13 bits
//
// # Ceilings
//
// WithLimit lowers the ceiling of a cursor so that a sub-decode cannot read past a
// byte budget even when the underlying buffer is longer. Reads beyond the ceiling
// fail exactly like reads beyond the end of the buffer.
//
// # Thread Safety
//
// Cursors never write to the buffer. Any number of goroutines may hold cursors
// over the same buffer as long as nobody else mutates it.
package bitcursor
