package protocol

import (
	"fmt"

	"github.com/muurk/bitparse/internal/decode"
)

// UDPHeaderLen is the fixed part of a UDP datagram in bytes
const UDPHeaderLen = 8

// UDP decodes a UDP datagram. The length field must agree with the size of the
// datagram handed to the decoder.
var UDP = decode.NewStruct("udp",
	decode.Uint("source_port", 16),
	decode.Uint("destination_port", 16),
	decode.Uint("length", 16, decode.Export(),
		decode.Check("length equals datagram size", func(ctx *decode.Context, v uint64) error {
			if v*8 != ctx.DeclaredBits() {
				return fmt.Errorf("length field says %d bytes, datagram has %d", v, ctx.DeclaredBits()/8)
			}
			return nil
		})),
	decode.Uint("checksum", 16),
	decode.Payload("payload", decode.Scaled("length", 8, UDPHeaderLen*8)),
)

// UDPHeader is a decoded UDP datagram
type UDPHeader struct {
	SourcePort      uint16
	DestinationPort uint16
	Length          uint16 // Header plus payload, in bytes
	Checksum        uint16
	Payload         []byte // Sub-slice of the input
}

func (h *UDPHeader) Format() string { return "udp" }

func (h *UDPHeader) String() string {
	return fmt.Sprintf("UDP{src=%d, dst=%d, len=%d, checksum=0x%04x, payload=%d bytes}",
		h.SourcePort, h.DestinationPort, h.Length, h.Checksum, len(h.Payload))
}

// NewUDPHeader converts a record produced by UDP
func NewUDPHeader(rec *decode.Record) *UDPHeader {
	return &UDPHeader{
		SourcePort:      uint16(rec.Uint("source_port")),
		DestinationPort: uint16(rec.Uint("destination_port")),
		Length:          uint16(rec.Uint("length")),
		Checksum:        uint16(rec.Uint("checksum")),
		Payload:         rec.Bytes("payload"),
	}
}

// ParseUDP decodes data as one complete UDP datagram
func ParseUDP(data []byte) (*UDPHeader, error) {
	res, err := decode.DecodeRecord(data, uint64(len(data))*8, UDP)
	if err != nil {
		return nil, err
	}
	return NewUDPHeader(res.Record), nil
}
