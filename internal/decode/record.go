package decode

import "fmt"

// EntryKind identifies what an Entry holds
type EntryKind int

const (
	EntryUint    EntryKind = iota // Unsigned integer field
	EntryBytes                    // Byte sequence referencing the input buffer
	EntryRecord                   // Nested composite record
	EntryOptions                  // Option list
)

// String returns a human-readable name for the entry kind
func (k EntryKind) String() string {
	switch k {
	case EntryUint:
		return "uint"
	case EntryBytes:
		return "bytes"
	case EntryRecord:
		return "record"
	case EntryOptions:
		return "options"
	default:
		return fmt.Sprintf("EntryKind(%d)", k)
	}
}

// Entry is one named, decoded element of a Record.
type Entry struct {
	Name   string
	Kind   EntryKind
	Offset uint64 // Absolute bit offset the entry starts at
	Bits   uint64 // Bits consumed, including nested content and list terminators

	Uint    uint64   // EntryUint
	Bytes   []byte   // EntryBytes; sub-slice of the input, never a copy
	Record  *Record  // EntryRecord
	Options []Option // EntryOptions
}

// Record is an ordered, named set of decoded entries. Entry order is decode order.
type Record struct {
	Name    string
	Offset  uint64
	Entries []Entry
}

// Bits returns the number of bits the record consumed.
func (r *Record) Bits() uint64 {
	if r == nil {
		return 0
	}
	var n uint64
	for i := range r.Entries {
		n += r.Entries[i].Bits
	}
	return n
}

// Get returns the entry called name.
func (r *Record) Get(name string) (*Entry, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Entries {
		if r.Entries[i].Name == name {
			return &r.Entries[i], true
		}
	}
	return nil, false
}

// Has reports whether the record contains an entry called name.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Uint returns the integer value of name, or 0 when absent.
func (r *Record) Uint(name string) uint64 {
	if e, ok := r.Get(name); ok {
		return e.Uint
	}
	return 0
}

// Bytes returns the byte value of name, or nil when absent.
func (r *Record) Bytes(name string) []byte {
	if e, ok := r.Get(name); ok {
		return e.Bytes
	}
	return nil
}

// Nested returns the nested record called name, or nil when absent.
func (r *Record) Nested(name string) *Record {
	if e, ok := r.Get(name); ok {
		return e.Record
	}
	return nil
}

// Options returns the option list called name, or nil when absent.
func (r *Record) Options(name string) []Option {
	if e, ok := r.Get(name); ok {
		return e.Options
	}
	return nil
}

// Names returns entry names in decode order.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Name)
	}
	return names
}

func (r *Record) add(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Option is one entry of a decoded option list.
type Option struct {
	Kind   uint64
	Name   string
	Offset uint64 // Absolute bit offset of the kind field
	Bits   uint64 // Kind, length, value and alignment padding

	HasLength bool   // False for single-octet kinds such as padding
	Length    uint64 // Declared length exactly as read from the wire
	Data      []byte // Value bytes, sub-slice of the input
	Fields    *Record
}

// Variant is the outcome of a successful dispatch: which candidate matched and
// the record it produced.
type Variant struct {
	Name   string
	Index  int
	Record *Record
}
