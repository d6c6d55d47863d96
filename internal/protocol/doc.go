// Package protocol defines the concrete message formats decoded by bitparse.
//
// Each format is a decode.StructDecoder value built from field, payload and
// option list steps, plus a typed Go struct converted from the decoded record:
//
//	udp                    UDP datagram; length must equal the datagram size
//	tcp                    TCP segment; options sized by data_offset
//	stun                   STUN message; 4-byte aligned TLV attributes
//	device_frame           Smartap device frame; little-endian id and length
//	single_field_header    one version byte
//	multiple_field_header  version byte and two nibbles
//
// The "pdu" format tries stun, device_frame, multiple_field_header and then
// single_field_header with a decode.VariantDispatcher, keeping the first
// candidate that consumes exactly the declared length.
//
// # Usage Example
//
//	hdr, err := protocol.ParseUDP(datagram)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(hdr.DestinationPort, len(hdr.Payload))
//
//	f, _ := protocol.Lookup("pdu")
//	pdu, res, err := f.Decode(buf, uint64(len(buf))*8)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Variant, pdu)
//
// Device frames decode their message body lazily with Frame.ParseMessage.
//
// # Thread Safety
//
// Format definitions are immutable after package initialization and safe for
// concurrent use. Payload and value byte slices in decoded structs alias the
// input buffer.
package protocol
