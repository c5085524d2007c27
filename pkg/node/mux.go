package node

import (
	"fmt"

	"github.com/andydunstall/lattice/pkg/protocol"
)

// HandlerFunc handles an inbound message.
type HandlerFunc func(m *protocol.Message) error

// Mux dispatches inbound messages to the handler registered for the message
// type.
//
// Mux is not safe for concurrent registration, so all handlers must be
// registered before serving messages.
type Mux struct {
	handlers map[string]HandlerFunc
	replies  map[string]struct{}
}

func NewMux() *Mux {
	return &Mux{
		handlers: make(map[string]HandlerFunc),
		replies:  make(map[string]struct{}),
	}
}

// HandleFunc registers a handler for the given message type.
func (m *Mux) HandleFunc(typ string, h HandlerFunc) {
	m.handlers[typ] = h
}

// RejectReply registers reply-only message types, which fail with
// ErrUnexpectedReply if received.
func (m *Mux) RejectReply(types ...string) {
	for _, typ := range types {
		m.replies[typ] = struct{}{}
	}
}

// Types returns the registered request types.
func (m *Mux) Types() []string {
	var types []string
	for typ := range m.handlers {
		types = append(types, typ)
	}
	return types
}

// Serve dispatches the message to its handler.
//
// Returns ErrUnknownType if there is no handler for the message, or
// ErrUnexpectedReply if the message is a reply-only type.
func (m *Mux) Serve(msg *protocol.Message) error {
	if _, ok := m.replies[msg.Type()]; ok {
		return fmt.Errorf("%w: %s", ErrUnexpectedReply, msg.Type())
	}
	h, ok := m.handlers[msg.Type()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, msg.Type())
	}
	return h(msg)
}

// PayloadPtr constrains a pointer to payload type P.
type PayloadPtr[P any] interface {
	*P
	protocol.Payload
}

// Handle registers a typed handler, which decodes the message body into the
// payload type before calling h.
func Handle[P any, PP PayloadPtr[P]](
	mux *Mux,
	h func(m *protocol.Message, payload PP) error,
) {
	typ := PP(new(P)).Type()
	mux.HandleFunc(typ, func(m *protocol.Message) error {
		payload := PP(new(P))
		if err := m.Decode(payload); err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return h(m, payload)
	})
}
