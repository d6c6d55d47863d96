package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/muurk/bitparse/internal/decode"
)

// TCP option kinds
const (
	TCPOptEOL           = 0
	TCPOptNOP           = 1
	TCPOptMSS           = 2
	TCPOptWindowScale   = 3
	TCPOptSACKPermitted = 4
	TCPOptSACK          = 5
	TCPOptTimestamp     = 8
)

// TCPMinDataOffset is the data offset of a header without options, in 32-bit words
const TCPMinDataOffset = 5

var tcpSACK = decode.NewStruct("sack",
	decode.Payload("blocks", decode.Computed("sack blocks", func(env decode.Env) (int64, error) {
		if env.Available%64 != 0 {
			return 0, fmt.Errorf("sack value of %d bytes is not a whole number of 8 byte blocks", env.Available/8)
		}
		return int64(env.Available), nil
	})),
)

// TCPOptions is the TCP option list. Kinds outside the table are rejected.
var TCPOptions = decode.NewOptionList("options", decode.OctetLayout,
	decode.OptionKind{Kind: TCPOptEOL, Name: "eol"},
	decode.OptionKind{Kind: TCPOptNOP, Name: "nop"},
	decode.OptionKind{Kind: TCPOptMSS, Name: "mss", Length: 4,
		Body: decode.NewStruct("mss", decode.Uint("mss", 16))},
	decode.OptionKind{Kind: TCPOptWindowScale, Name: "window_scale", Length: 3,
		Body: decode.NewStruct("window_scale", decode.Uint("shift", 8))},
	decode.OptionKind{Kind: TCPOptSACKPermitted, Name: "sack_permitted", Length: 2},
	decode.OptionKind{Kind: TCPOptSACK, Name: "sack", Body: tcpSACK},
	decode.OptionKind{Kind: TCPOptTimestamp, Name: "timestamp", Length: 10,
		Body: decode.NewStruct("timestamp", decode.Uint("tsval", 32), decode.Uint("tsecr", 32))},
).Terminator(TCPOptEOL).Padding(TCPOptNOP)

// TCP decodes a TCP segment: fixed header, options sized by data_offset, the
// bytes the option list left of its area, then the payload.
var TCP = decode.NewStruct("tcp",
	decode.Uint("source_port", 16),
	decode.Uint("destination_port", 16),
	decode.Uint("sequence", 32),
	decode.Uint("acknowledgment", 32),
	decode.Uint("data_offset", 4, decode.AtLeast(TCPMinDataOffset), decode.Export()),
	decode.Uint("reserved", 4),
	decode.Uint("cwr", 1),
	decode.Uint("ece", 1),
	decode.Uint("urg", 1),
	decode.Uint("ack", 1),
	decode.Uint("psh", 1),
	decode.Uint("rst", 1),
	decode.Uint("syn", 1),
	decode.Uint("fin", 1),
	decode.Uint("window", 16),
	decode.Uint("checksum", 16),
	decode.Uint("urgent_pointer", 16),
	decode.Options("options", TCPOptions, decode.Scaled("data_offset", 32, TCPMinDataOffset*32)).
		ExportConsumed("options_len"),
	decode.Payload("padding", decode.Computed("data_offset*32-160-options_len*8", func(env decode.Env) (int64, error) {
		off, err := env.Ctx.Value("data_offset")
		if err != nil {
			return 0, err
		}
		used, err := env.Ctx.Value("options_len")
		if err != nil {
			return 0, err
		}
		return int64(off)*32 - TCPMinDataOffset*32 - int64(used)*8, nil
	}, "data_offset", "options_len")),
	decode.Payload("payload", decode.Remainder()),
)

// TCPFlags holds the eight control bits, fin in the lowest bit
type TCPFlags uint8

const (
	FlagFIN TCPFlags = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
	FlagECE
	FlagCWR
)

var tcpFlagNames = []struct {
	flag TCPFlags
	name string
}{
	{FlagCWR, "CWR"}, {FlagECE, "ECE"}, {FlagURG, "URG"}, {FlagACK, "ACK"},
	{FlagPSH, "PSH"}, {FlagRST, "RST"}, {FlagSYN, "SYN"}, {FlagFIN, "FIN"},
}

// Has reports whether every bit of f2 is set
func (f TCPFlags) Has(f2 TCPFlags) bool { return f&f2 == f2 }

func (f TCPFlags) String() string {
	var set []string
	for _, n := range tcpFlagNames {
		if f.Has(n.flag) {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, "|")
}

// SACKBlock is one selective acknowledgment range
type SACKBlock struct {
	Left  uint32
	Right uint32
}

// TCPOption is a decoded TCP option. Only the fields of its kind are set.
type TCPOption struct {
	Kind   uint8
	Name   string
	Length uint8 // Zero for eol and nop

	MSS         uint16
	WindowScale uint8
	TSVal       uint32
	TSEcr       uint32
	SACK        []SACKBlock
	Data        []byte // Raw value bytes
}

func (o TCPOption) String() string {
	switch o.Kind {
	case TCPOptMSS:
		return fmt.Sprintf("mss=%d", o.MSS)
	case TCPOptWindowScale:
		return fmt.Sprintf("wscale=%d", o.WindowScale)
	case TCPOptTimestamp:
		return fmt.Sprintf("ts=%d/%d", o.TSVal, o.TSEcr)
	case TCPOptSACK:
		return fmt.Sprintf("sack=%d blocks", len(o.SACK))
	default:
		return o.Name
	}
}

// TCPHeader is a decoded TCP segment
type TCPHeader struct {
	SourcePort      uint16
	DestinationPort uint16
	Sequence        uint32
	Acknowledgment  uint32
	DataOffset      uint8 // Header length in 32-bit words
	Reserved        uint8
	Flags           TCPFlags
	Window          uint16
	Checksum        uint16
	UrgentPointer   uint16
	Options         []TCPOption
	Padding         []byte // Option area bytes after the list ended
	Payload         []byte
}

func (h *TCPHeader) Format() string { return "tcp" }

func (h *TCPHeader) String() string {
	opts := make([]string, len(h.Options))
	for i, o := range h.Options {
		opts[i] = o.String()
	}
	return fmt.Sprintf("TCP{src=%d, dst=%d, seq=%d, ack=%d, flags=%s, win=%d, options=[%s], payload=%d bytes}",
		h.SourcePort, h.DestinationPort, h.Sequence, h.Acknowledgment, h.Flags, h.Window,
		strings.Join(opts, " "), len(h.Payload))
}

// HeaderLen returns the header length in bytes, options included
func (h *TCPHeader) HeaderLen() int { return int(h.DataOffset) * 4 }

// NewTCPHeader converts a record produced by TCP
func NewTCPHeader(rec *decode.Record) *TCPHeader {
	h := &TCPHeader{
		SourcePort:      uint16(rec.Uint("source_port")),
		DestinationPort: uint16(rec.Uint("destination_port")),
		Sequence:        uint32(rec.Uint("sequence")),
		Acknowledgment:  uint32(rec.Uint("acknowledgment")),
		DataOffset:      uint8(rec.Uint("data_offset")),
		Reserved:        uint8(rec.Uint("reserved")),
		Window:          uint16(rec.Uint("window")),
		Checksum:        uint16(rec.Uint("checksum")),
		UrgentPointer:   uint16(rec.Uint("urgent_pointer")),
		Padding:         rec.Bytes("padding"),
		Payload:         rec.Bytes("payload"),
	}
	for _, n := range []struct {
		field string
		flag  TCPFlags
	}{
		{"cwr", FlagCWR}, {"ece", FlagECE}, {"urg", FlagURG}, {"ack", FlagACK},
		{"psh", FlagPSH}, {"rst", FlagRST}, {"syn", FlagSYN}, {"fin", FlagFIN},
	} {
		if rec.Uint(n.field) != 0 {
			h.Flags |= n.flag
		}
	}
	for _, o := range rec.Options("options") {
		h.Options = append(h.Options, newTCPOption(o))
	}
	return h
}

func newTCPOption(o decode.Option) TCPOption {
	opt := TCPOption{
		Kind:   uint8(o.Kind),
		Name:   o.Name,
		Length: uint8(o.Length),
		Data:   o.Data,
	}
	switch o.Kind {
	case TCPOptMSS:
		opt.MSS = uint16(o.Fields.Uint("mss"))
	case TCPOptWindowScale:
		opt.WindowScale = uint8(o.Fields.Uint("shift"))
	case TCPOptTimestamp:
		opt.TSVal = uint32(o.Fields.Uint("tsval"))
		opt.TSEcr = uint32(o.Fields.Uint("tsecr"))
	case TCPOptSACK:
		blocks := o.Fields.Bytes("blocks")
		for i := 0; i+8 <= len(blocks); i += 8 {
			opt.SACK = append(opt.SACK, SACKBlock{
				Left:  binary.BigEndian.Uint32(blocks[i : i+4]),
				Right: binary.BigEndian.Uint32(blocks[i+4 : i+8]),
			})
		}
	}
	return opt
}

// ParseTCP decodes data as one complete TCP segment
func ParseTCP(data []byte) (*TCPHeader, error) {
	res, err := decode.DecodeRecord(data, uint64(len(data))*8, TCP)
	if err != nil {
		return nil, err
	}
	return NewTCPHeader(res.Record), nil
}
