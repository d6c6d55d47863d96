package protocol

import (
	"fmt"
	"slices"

	"github.com/muurk/bitparse/internal/bitcursor"
	"github.com/muurk/bitparse/internal/decode"
)

// PDU is a decoded protocol data unit of any supported format
type PDU interface {
	Format() string
	String() string
}

// Dispatcher classifies a message as one of the dispatched formats, in priority
// order. STUN and device frames carry literals that reject foreign input early;
// the two simple headers are told apart only by whether they consume the whole
// message.
var Dispatcher = decode.NewVariantDispatcher(
	decode.Candidate{Name: "stun", Decoder: STUN, Post: []decode.PostCondition{decode.Complete()}},
	decode.Candidate{Name: "device_frame", Decoder: DeviceFrame, Post: []decode.PostCondition{decode.Complete()}},
	decode.Candidate{Name: "multiple_field_header", Decoder: MultipleField, Post: []decode.PostCondition{decode.Complete()}},
	decode.Candidate{Name: "single_field_header", Decoder: SingleField, Post: []decode.PostCondition{decode.Complete()}},
)

// Format is a named, decodable message format
type Format struct {
	Name        string
	Description string
	Record      *decode.StructDecoder    // Set for single-record formats
	Dispatch    *decode.VariantDispatcher // Set for classified formats
}

var formats = []Format{
	{Name: "udp", Description: "UDP datagram (8 byte header + payload)", Record: UDP},
	{Name: "tcp", Description: "TCP segment with options", Record: TCP},
	{Name: "stun", Description: "STUN message with attributes", Record: STUN},
	{Name: "device_frame", Description: "Smartap device frame", Record: DeviceFrame},
	{Name: "single_field_header", Description: "8-bit version header", Record: SingleField},
	{Name: "multiple_field_header", Description: "8-bit version + two 4-bit fields", Record: MultipleField},
	{Name: "pdu", Description: "classify as stun, device_frame, multiple or single field header", Dispatch: Dispatcher},
}

// Formats returns every registered format
func Formats() []Format {
	return slices.Clone(formats)
}

// Lookup finds a format by name
func Lookup(name string) (Format, bool) {
	for _, f := range formats {
		if f.Name == name {
			return f, true
		}
	}
	return Format{}, false
}

// FormatNames returns the registered format names
func FormatNames() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.Name
	}
	return names
}

// Decode decodes data as one message of this format. declaredBits is the
// externally known message length.
func (f Format) Decode(data []byte, declaredBits uint64) (PDU, *decode.Result, error) {
	return f.DecodeAt(bitcursor.New(data), declaredBits)
}

// DecodeAt decodes one message of this format starting at c.
func (f Format) DecodeAt(c bitcursor.Cursor, declaredBits uint64) (PDU, *decode.Result, error) {
	var res *decode.Result
	var err error
	switch {
	case f.Dispatch != nil:
		res, err = decode.DecodePDUAt(c, declaredBits, f.Dispatch)
	case f.Record != nil:
		res, err = decode.DecodeRecordAt(c, declaredBits, f.Record)
	default:
		return nil, nil, fmt.Errorf("format %q has no decoder", f.Name)
	}
	if err != nil {
		return nil, nil, err
	}

	name := f.Name
	if res.Variant != "" {
		name = res.Variant
	}
	pdu, err := NewPDU(name, res.Record)
	if err != nil {
		return nil, nil, err
	}
	return pdu, res, nil
}

// NewPDU converts a record produced by the named format into its typed form
func NewPDU(format string, rec *decode.Record) (PDU, error) {
	switch format {
	case "udp":
		return NewUDPHeader(rec), nil
	case "tcp":
		return NewTCPHeader(rec), nil
	case "stun":
		return NewSTUNMessage(rec), nil
	case "device_frame":
		return NewFrame(rec), nil
	case "single_field_header":
		return NewSingleFieldHeader(rec), nil
	case "multiple_field_header":
		return NewMultipleFieldHeader(rec), nil
	default:
		return nil, fmt.Errorf("no typed form for format %q", format)
	}
}

// ParsePDU classifies data with the default Dispatcher
func ParsePDU(data []byte) (PDU, error) {
	f, _ := Lookup("pdu")
	pdu, _, err := f.Decode(data, uint64(len(data))*8)
	return pdu, err
}
