package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when decoding a message body into a payload
	// of a different type.
	ErrTypeMismatch = errors.New("payload type mismatch")
)

// Payload is a tagged message payload. The payload fields are flattened into
// the message body alongside the 'type', 'msg_id' and 'in_reply_to' fields.
type Payload interface {
	// Type returns the snake-case payload type, such as 'init_ok'.
	Type() string
}

// Header contains the fields common to all message bodies.
type Header struct {
	Type      string  `json:"type"`
	MsgID     *uint64 `json:"msg_id,omitempty"`
	InReplyTo *uint64 `json:"in_reply_to,omitempty"`
}

// Message is the envelope of every request and reply.
//
// The body is kept raw since each subscriber decodes the payload variants it
// understands and ignores the rest.
type Message struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`

	header Header
}

// NewMessage builds a message with the given header and payload. The header
// type is always set to the payload type.
func NewMessage(src, dest string, header Header, payload Payload) (*Message, error) {
	header.Type = payload.Type()
	body, err := EncodeBody(header, payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Src:    src,
		Dest:   dest,
		Body:   body,
		header: header,
	}, nil
}

// ParseMessage parses a single encoded message, such as one line of input.
func ParseMessage(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if m.Src == "" {
		return nil, fmt.Errorf("missing src")
	}
	if m.Dest == "" {
		return nil, fmt.Errorf("missing dest")
	}
	body := bytes.TrimSpace(m.Body)
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("body not an object")
	}
	if err := json.Unmarshal(body, &m.header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if m.header.Type == "" {
		return nil, fmt.Errorf("missing type")
	}
	return &m, nil
}

// Header returns the common body fields.
func (m *Message) Header() Header {
	return m.header
}

// Type returns the payload type.
func (m *Message) Type() string {
	return m.header.Type
}

// MsgID returns the message ID, or false if the message has no ID.
func (m *Message) MsgID() (uint64, bool) {
	if m.header.MsgID == nil {
		return 0, false
	}
	return *m.header.MsgID, true
}

// Decode decodes the body into the given payload. Returns ErrTypeMismatch if
// the body type doesn't match the payload type.
func (m *Message) Decode(p Payload) error {
	if m.header.Type != p.Type() {
		return fmt.Errorf("%w: %s != %s", ErrTypeMismatch, m.header.Type, p.Type())
	}
	if err := json.Unmarshal(m.Body, p); err != nil {
		return fmt.Errorf("decode %s: %w", p.Type(), err)
	}
	return nil
}

// Encode encodes the message as a single line of JSON (without the trailing
// newline).
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// EncodeBody flattens the payload fields with the header fields into a single
// JSON object.
func EncodeBody(header Header, payload Payload) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", payload.Type(), err)
	}

	fields := make(map[string]json.RawMessage)
	if !bytes.Equal(b, []byte("null")) {
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, fmt.Errorf("encode %s: payload not an object", payload.Type())
		}
	}
	// Header fields always take precedence over payload fields.
	delete(fields, "msg_id")
	delete(fields, "in_reply_to")

	if fields["type"], err = json.Marshal(payload.Type()); err != nil {
		return nil, err
	}
	if header.MsgID != nil {
		fields["msg_id"], _ = json.Marshal(*header.MsgID)
	}
	if header.InReplyTo != nil {
		fields["in_reply_to"], _ = json.Marshal(*header.InReplyTo)
	}

	return json.Marshal(fields)
}
