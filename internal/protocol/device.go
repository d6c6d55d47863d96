package protocol

import (
	"fmt"

	"github.com/muurk/bitparse/internal/decode"
)

// Device frame constants
const (
	ProtocolSync    = 0x7e
	ProtocolVersion = 0x03
	MinFrameSize    = 8  // Sync + Version + 4-byte ID + 2-byte length
	MinMessageSize  = 38 // Frames are zero padded to this size
)

// Message type constants
const (
	MsgTypeTelemetryBroadcast = 0x01 // Periodic status broadcast
	MsgTypeOTA                = 0x05 // Over-the-air firmware update
	MsgTypeTelemetryResponse  = 0x29 // Response to telemetry query
	MsgTypeCommand            = 0x42 // Generic command/response
	MsgTypeExtended           = 0x44 // Extended command format
	MsgTypePressureMode       = 0x55 // Low pressure mode status
)

// MsgIDBroadcast is the message ID used by periodic telemetry broadcasts
const MsgIDBroadcast = 0x0FFFFFFF

// broadcastMinBody is the shortest telemetry broadcast body, message type
// excluded. Longer bodies may end in a trailing marker.
const broadcastMinBody = 19

var messageTypes = map[uint64]string{
	MsgTypeTelemetryBroadcast: "TelemetryBroadcast",
	MsgTypeOTA:                "OTA",
	MsgTypeTelemetryResponse:  "TelemetryResponse",
	MsgTypeCommand:            "Command",
	MsgTypeExtended:           "Extended",
	MsgTypePressureMode:       "PressureMode",
}

// DeviceFrame decodes a Smartap device frame. The length counts the message type
// byte and body; anything after them is the zero padding up to MinMessageSize.
var DeviceFrame = decode.NewStruct("device_frame",
	decode.Uint("sync", 8, decode.Literal(ProtocolSync)),
	decode.Uint("version", 8, decode.Literal(ProtocolVersion)),
	decode.Uint("message_id", 32, decode.LittleEndian()),
	decode.Uint("length", 16, decode.LittleEndian(), decode.AtLeast(1), decode.Export()),
	decode.Uint("message_type", 8, decode.Enum(messageTypes)),
	decode.Payload("body", decode.Scaled("length", 8, 8)),
	decode.Payload("padding", decode.Remainder()),
)

// Message bodies by type. Types without an entry keep their body as raw bytes.
var messageBodies = map[uint8]*decode.StructDecoder{
	MsgTypeTelemetryBroadcast: decode.NewStruct("telemetry_broadcast",
		decode.Uint("telemetry_type", 8),
		decode.Uint("status_type", 8),
		decode.Uint("field1", 32, decode.LittleEndian()),
		decode.Uint("field2", 32, decode.LittleEndian()),
		decode.Uint("subtype", 8),
		decode.Payload("data", decode.Remainder()),
	),
	MsgTypeTelemetryResponse: decode.NewStruct("telemetry_response",
		decode.Uint("subtype", 8),
		decode.Uint("field", 8),
		decode.Uint("value", 32, decode.LittleEndian()),
		decode.Payload("padding", decode.Remainder()),
	),
	MsgTypeCommand: decode.NewStruct("command",
		decode.Uint("payload_len", 8),
		decode.Uint("field1", 8),
		decode.Uint("param1", 32, decode.LittleEndian()),
		decode.Payload("data", decode.Remainder()),
	),
	MsgTypePressureMode: decode.NewStruct("pressure_mode",
		decode.Uint("subtype", 8),
		decode.Uint("enabled", 8, decode.Range(0, 1)),
		decode.Payload("rest", decode.Remainder()),
	),
}

// Message represents a decoded device message body
type Message interface {
	Type() byte
	String() string
}

// TelemetryBroadcastMessage (type 0x01) - Periodic unsolicited broadcast
// Sent with message ID 0x0FFFFFFF
type TelemetryBroadcastMessage struct {
	TelemetryType byte   // 0x11 in all captures
	StatusType    byte   // Data format indicator
	Field1        uint32 // LE
	Field2        uint32 // LE
	SubType       byte
	DataFields    []byte
	TrailingByte  byte // 0x29 when a temperature sensor is present
}

func (m *TelemetryBroadcastMessage) Type() byte { return MsgTypeTelemetryBroadcast }

func (m *TelemetryBroadcastMessage) String() string {
	return fmt.Sprintf("TelemetryBroadcast{telemetry_type=0x%02x, status=0x%02x, field1=0x%08x, field2=0x%08x, subtype=0x%02x, data_len=%d}",
		m.TelemetryType, m.StatusType, m.Field1, m.Field2, m.SubType, len(m.DataFields))
}

// TelemetryResponseMessage (type 0x29) - Response to telemetry query
type TelemetryResponseMessage struct {
	Subtype byte
	Field   byte
	Value   uint32 // Sensor value (little-endian on the wire)
	Padding []byte
}

func (m *TelemetryResponseMessage) Type() byte { return MsgTypeTelemetryResponse }

func (m *TelemetryResponseMessage) String() string {
	return fmt.Sprintf("TelemetryResponse{subtype=0x%02x, field=0x%02x, value=%d (0x%08x)}",
		m.Subtype, m.Field, m.Value, m.Value)
}

// CommandMessage (type 0x42) - Generic command/response
type CommandMessage struct {
	PayloadLen byte   // Length + 5
	Field1     byte   // 0x01 typically
	Param1     uint32 // Category/command code
	Data       []byte
}

func (m *CommandMessage) Type() byte { return MsgTypeCommand }

func (m *CommandMessage) String() string {
	return fmt.Sprintf("Command{payload_len=%d, field1=0x%02x, param1=%d (0x%08x), data_len=%d}",
		m.PayloadLen, m.Field1, m.Param1, m.Param1, len(m.Data))
}

// PressureModeMessage (type 0x55) - Low pressure mode status
type PressureModeMessage struct {
	Subtype byte
	Enabled bool
}

func (m *PressureModeMessage) Type() byte { return MsgTypePressureMode }

func (m *PressureModeMessage) String() string {
	enabled := "disabled"
	if m.Enabled {
		enabled = "enabled"
	}
	return fmt.Sprintf("PressureMode{subtype=0x%02x, %s}", m.Subtype, enabled)
}

// UnknownMessage - Fallback for message types without a body layout
type UnknownMessage struct {
	MessageType byte
	Data        []byte
}

func (m *UnknownMessage) Type() byte { return m.MessageType }

func (m *UnknownMessage) String() string {
	return fmt.Sprintf("Unknown{type=0x%02x, len=%d}", m.MessageType, len(m.Data))
}

// Frame represents a decoded device frame
type Frame struct {
	Sync        byte
	Version     byte
	MessageID   uint32
	Length      uint16 // Message type plus body, in bytes
	MessageType byte
	Body        []byte
	Padding     []byte
}

func (f *Frame) Format() string { return "device_frame" }

// String returns a human-readable representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{sync=0x%02x, ver=0x%02x, id=%d (0x%08x), len=%d, type=%s, body=%d bytes}",
		f.Sync, f.Version, f.MessageID, f.MessageID, f.Length, GetMessageTypeName(f.MessageType), len(f.Body))
}

// IsBroadcast reports whether the frame carries the broadcast message ID
func (f *Frame) IsBroadcast() bool { return f.MessageID == MsgIDBroadcast }

// ParseMessage decodes the body according to the message type
func (f *Frame) ParseMessage() (Message, error) {
	layout, ok := messageBodies[f.MessageType]
	if !ok {
		return &UnknownMessage{MessageType: f.MessageType, Data: f.Body}, nil
	}
	if f.MessageType == MsgTypeTelemetryBroadcast && len(f.Body) < broadcastMinBody {
		return nil, fmt.Errorf("telemetry broadcast too short: %d body bytes (minimum %d)", len(f.Body), broadcastMinBody)
	}

	res, err := decode.DecodeRecord(f.Body, uint64(len(f.Body))*8, layout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", GetMessageTypeName(f.MessageType), err)
	}
	rec := res.Record

	switch f.MessageType {
	case MsgTypeTelemetryBroadcast:
		msg := &TelemetryBroadcastMessage{
			TelemetryType: byte(rec.Uint("telemetry_type")),
			StatusType:    byte(rec.Uint("status_type")),
			Field1:        uint32(rec.Uint("field1")),
			Field2:        uint32(rec.Uint("field2")),
			SubType:       byte(rec.Uint("subtype")),
			DataFields:    rec.Bytes("data"),
		}
		if n := len(msg.DataFields); len(f.Body) > broadcastMinBody && msg.DataFields[n-1] == MsgTypeTelemetryResponse {
			msg.TrailingByte = msg.DataFields[n-1]
			msg.DataFields = msg.DataFields[:n-1]
		}
		return msg, nil
	case MsgTypeTelemetryResponse:
		return &TelemetryResponseMessage{
			Subtype: byte(rec.Uint("subtype")),
			Field:   byte(rec.Uint("field")),
			Value:   uint32(rec.Uint("value")),
			Padding: rec.Bytes("padding"),
		}, nil
	case MsgTypeCommand:
		return &CommandMessage{
			PayloadLen: byte(rec.Uint("payload_len")),
			Field1:     byte(rec.Uint("field1")),
			Param1:     uint32(rec.Uint("param1")),
			Data:       rec.Bytes("data"),
		}, nil
	default:
		return &PressureModeMessage{
			Subtype: byte(rec.Uint("subtype")),
			Enabled: rec.Uint("enabled") != 0,
		}, nil
	}
}

// NewFrame converts a record produced by DeviceFrame
func NewFrame(rec *decode.Record) *Frame {
	return &Frame{
		Sync:        byte(rec.Uint("sync")),
		Version:     byte(rec.Uint("version")),
		MessageID:   uint32(rec.Uint("message_id")),
		Length:      uint16(rec.Uint("length")),
		MessageType: byte(rec.Uint("message_type")),
		Body:        rec.Bytes("body"),
		Padding:     rec.Bytes("padding"),
	}
}

// ParseFrame decodes data as one complete device frame
func ParseFrame(data []byte) (*Frame, error) {
	res, err := decode.DecodeRecord(data, uint64(len(data))*8, DeviceFrame)
	if err != nil {
		return nil, err
	}
	return NewFrame(res.Record), nil
}

// GetMessageTypeName returns a human-readable name for a message type
func GetMessageTypeName(msgType byte) string {
	if name, ok := messageTypes[uint64(msgType)]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", msgType)
}
