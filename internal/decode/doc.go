// Package decode is a bit-granular decoding engine for binary protocol headers.
//
// Formats are declared as data: a StructDecoder is an ordered list of steps
// (integer fields, byte payloads, nested records, option lists and conditional
// steps). Widths, presence and constraints may depend on values decoded earlier
// in the same call; those values travel through a per-call Context and every
// dependency is named so it can be checked before it is read.
//
// # Defining a Format
//
//	udp := decode.NewStruct("udp",
//	    decode.Uint("source_port", 16),
//	    decode.Uint("destination_port", 16),
//	    decode.Uint("length", 16, decode.Export()),
//	    decode.Uint("checksum", 16),
//	    decode.Payload("payload", decode.Scaled("length", 8, 64)),
//	)
//
//	res, err := decode.DecodeRecord(buf, uint64(len(buf))*8, udp)
//
// # Dispatch
//
// A VariantDispatcher tries several formats against the same input in priority
// order, with full backtracking. Each candidate works on its own copy of the
// Context, so a rejected candidate leaves no trace.
//
// # Consumption
//
// DecodeRecord and DecodePDU succeed only when the consumed bits equal the
// declared length. Trailing data must be claimed by a payload field, usually
// one sized with Remainder.
//
// # Errors
//
// Every failure is a *DecodeError whose Type is one of InsufficientData,
// ConstraintViolation, UnknownDiscriminant, NoMatchingVariant, LengthMismatch or
// InternalDefinitionError. The last one points at a defect in a format definition
// and is never treated as a reason to try another candidate.
//
// # Thread Safety
//
// Decoders are immutable after construction and may be shared between
// goroutines. Each decode call owns its Context.
package decode
