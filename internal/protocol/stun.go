package protocol

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"github.com/muurk/bitparse/internal/decode"
)

// STUNMagicCookie is the fixed value of the cookie field
const STUNMagicCookie = 0x2112A442

// STUNHeaderLen is the size of the message header in bytes
const STUNHeaderLen = 20

// STUN attribute types
const (
	STUNAttrMappedAddress    = 0x0001
	STUNAttrUsername         = 0x0006
	STUNAttrMessageIntegrity = 0x0008
	STUNAttrErrorCode        = 0x0009
	STUNAttrXORMappedAddress = 0x0020
	STUNAttrSoftware         = 0x8022
	STUNAttrFingerprint      = 0x8028
)

// Address families
const (
	STUNFamilyIPv4 = 0x01
	STUNFamilyIPv6 = 0x02
)

// STUNClass is the two class bits interleaved into the message type
type STUNClass uint8

const (
	STUNRequest STUNClass = iota
	STUNIndication
	STUNSuccessResponse
	STUNErrorResponse
)

func (c STUNClass) String() string {
	switch c {
	case STUNRequest:
		return "request"
	case STUNIndication:
		return "indication"
	case STUNSuccessResponse:
		return "success"
	case STUNErrorResponse:
		return "error"
	default:
		return fmt.Sprintf("STUNClass(%d)", c)
	}
}

func stunAddress(name string) *decode.StructDecoder {
	return decode.NewStruct(name,
		decode.Uint("reserved", 8),
		decode.Uint("family", 8, decode.ExportAs("address_family"),
			decode.Enum(map[uint64]string{STUNFamilyIPv4: "ipv4", STUNFamilyIPv6: "ipv6"})),
		decode.Uint("port", 16),
		decode.Payload("address", decode.Computed("address by family", func(env decode.Env) (int64, error) {
			family, err := env.Ctx.Value("address_family")
			if err != nil {
				return 0, err
			}
			if family == STUNFamilyIPv6 {
				return 128, nil
			}
			return 32, nil
		}, "address_family")),
	)
}

// STUNAttributes is the attribute list. Unknown attribute types are kept as opaque values.
var STUNAttributes = decode.NewOptionList("attributes",
	decode.OptionLayout{KindBits: 16, LengthBits: 16, Align: 4},
	decode.OptionKind{Kind: STUNAttrMappedAddress, Name: "mapped_address", Body: stunAddress("mapped_address")},
	decode.OptionKind{Kind: STUNAttrUsername, Name: "username"},
	decode.OptionKind{Kind: STUNAttrMessageIntegrity, Name: "message_integrity", Length: 20},
	decode.OptionKind{Kind: STUNAttrErrorCode, Name: "error_code", Body: decode.NewStruct("error_code",
		decode.Uint("reserved", 21),
		decode.Uint("class", 3, decode.Range(3, 6)),
		decode.Uint("number", 8, decode.Range(0, 99)),
		decode.Payload("reason", decode.Rest()),
	)},
	decode.OptionKind{Kind: STUNAttrXORMappedAddress, Name: "xor_mapped_address", Body: stunAddress("xor_mapped_address")},
	decode.OptionKind{Kind: STUNAttrSoftware, Name: "software"},
	decode.OptionKind{Kind: STUNAttrFingerprint, Name: "fingerprint", Length: 4,
		Body: decode.NewStruct("fingerprint", decode.Uint("crc", 32))},
).AllowUnknown()

// STUN decodes a STUN message: a 20 byte header followed by length bytes of attributes.
var STUN = decode.NewStruct("stun",
	decode.Uint("prefix", 2, decode.Literal(0)),
	decode.Uint("type", 14),
	decode.Uint("length", 16, decode.Export(),
		decode.Check("length is a multiple of 4", func(ctx *decode.Context, v uint64) error {
			if v%4 != 0 {
				return fmt.Errorf("length %d is not a multiple of 4", v)
			}
			return nil
		})),
	decode.Uint("cookie", 32, decode.Literal(STUNMagicCookie)),
	decode.Payload("transaction_id", decode.Octets(12)),
	decode.Options("attributes", STUNAttributes, decode.Scaled("length", 8, 0)),
)

// STUNAddress is a decoded MAPPED-ADDRESS or XOR-MAPPED-ADDRESS value
type STUNAddress struct {
	Family uint8
	Port   uint16
	IP     netip.Addr
}

func (a STUNAddress) String() string {
	return netip.AddrPortFrom(a.IP, a.Port).String()
}

// STUNErrorCode is a decoded ERROR-CODE value
type STUNErrorCode struct {
	Code   int // class*100 + number
	Reason string
}

// STUNAttribute is one decoded attribute. Address, Error and Fingerprint are set
// only for the attribute types that carry them.
type STUNAttribute struct {
	Type   uint16
	Name   string
	Length uint16 // Value length before padding
	Value  []byte

	Address     *STUNAddress
	Error       *STUNErrorCode
	Fingerprint uint32
}

// STUNMessage is a decoded STUN message
type STUNMessage struct {
	Type          uint16
	Length        uint16 // Attribute bytes after the header
	Cookie        uint32
	TransactionID [12]byte
	Attributes    []STUNAttribute
}

func (m *STUNMessage) Format() string { return "stun" }

// Class returns the message class bits C1 C0
func (m *STUNMessage) Class() STUNClass {
	return STUNClass((m.Type>>7)&0x2 | (m.Type>>4)&0x1)
}

// Method returns the 12-bit method with the class bits removed
func (m *STUNMessage) Method() uint16 {
	return m.Type&0x000f | (m.Type>>1)&0x0070 | (m.Type>>2)&0x0f80
}

// Attribute returns the first attribute of type t
func (m *STUNMessage) Attribute(t uint16) (STUNAttribute, bool) {
	for _, a := range m.Attributes {
		if a.Type == t {
			return a, true
		}
	}
	return STUNAttribute{}, false
}

func (m *STUNMessage) String() string {
	names := make([]string, len(m.Attributes))
	for i, a := range m.Attributes {
		names[i] = a.Name
	}
	return fmt.Sprintf("STUN{method=0x%03x, class=%s, txid=%x, attributes=[%s]}",
		m.Method(), m.Class(), m.TransactionID, strings.Join(names, " "))
}

// NewSTUNMessage converts a record produced by STUN
func NewSTUNMessage(rec *decode.Record) *STUNMessage {
	m := &STUNMessage{
		Type:   uint16(rec.Uint("type")),
		Length: uint16(rec.Uint("length")),
		Cookie: uint32(rec.Uint("cookie")),
	}
	copy(m.TransactionID[:], rec.Bytes("transaction_id"))
	for _, o := range rec.Options("attributes") {
		m.Attributes = append(m.Attributes, m.newAttribute(o))
	}
	return m
}

func (m *STUNMessage) newAttribute(o decode.Option) STUNAttribute {
	a := STUNAttribute{
		Type:   uint16(o.Kind),
		Name:   o.Name,
		Length: uint16(o.Length),
		Value:  o.Data,
	}
	switch o.Kind {
	case STUNAttrMappedAddress:
		a.Address = stunAddressFrom(o.Fields, nil)
	case STUNAttrXORMappedAddress:
		a.Address = stunAddressFrom(o.Fields, m)
	case STUNAttrErrorCode:
		a.Error = &STUNErrorCode{
			Code:   int(o.Fields.Uint("class"))*100 + int(o.Fields.Uint("number")),
			Reason: string(o.Fields.Bytes("reason")),
		}
	case STUNAttrFingerprint:
		a.Fingerprint = uint32(o.Fields.Uint("crc"))
	}
	return a
}

// stunAddressFrom builds an address from its record, undoing the XOR with the
// cookie and transaction id when xor is set.
func stunAddressFrom(rec *decode.Record, xor *STUNMessage) *STUNAddress {
	raw := rec.Bytes("address")
	ip := make([]byte, len(raw))
	copy(ip, raw)
	port := uint16(rec.Uint("port"))

	if xor != nil {
		var key [16]byte
		binary.BigEndian.PutUint32(key[:4], xor.Cookie)
		copy(key[4:], xor.TransactionID[:])
		for i := range ip {
			ip[i] ^= key[i]
		}
		port ^= uint16(xor.Cookie >> 16)
	}

	addr, _ := netip.AddrFromSlice(ip)
	return &STUNAddress{Family: uint8(rec.Uint("family")), Port: port, IP: addr}
}

// ParseSTUN decodes data as one complete STUN message
func ParseSTUN(data []byte) (*STUNMessage, error) {
	res, err := decode.DecodeRecord(data, uint64(len(data))*8, STUN)
	if err != nil {
		return nil, err
	}
	return NewSTUNMessage(res.Record), nil
}
