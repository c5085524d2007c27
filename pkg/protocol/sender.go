package protocol

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/andydunstall/lattice/pkg/log"
)

var (
	// ErrNoMsgID is returned when replying to a request without a msg_id,
	// since there is nothing to correlate the reply with.
	ErrNoMsgID = errors.New("request has no msg_id")
)

// Sender is the single writer of outgoing messages.
//
// Sender assigns locally monotonic message IDs and serializes all writes to
// the transport, so it may be shared by the application handler and the
// gossip engine.
type Sender struct {
	transport Transport

	// nextID is the next message ID to issue. Every Send or Reply consumes
	// exactly one ID, even if it fails, so IDs are never reused.
	nextID uint64

	// mu protects the above fields and serializes writes to the transport.
	mu sync.Mutex

	metrics *Metrics

	logger log.Logger
}

func NewSender(transport Transport, logger log.Logger) *Sender {
	return &Sender{
		transport: transport,
		nextID:    1,
		metrics:   NewMetrics(),
		logger:    logger.WithSubsystem("protocol"),
	}
}

// Send sends a new request from src to dest. If assignID is true, the message
// is stamped with the next local message ID.
func (s *Sender) Send(src, dest string, payload Payload, assignID bool) error {
	return s.send(src, dest, Header{}, payload, assignID)
}

// Reply replies to the given request with the given payload.
//
// The reply swaps the request src and dest, sets in_reply_to to the request
// msg_id and is assigned a new message ID. Returns ErrNoMsgID if the request
// has no msg_id.
func (s *Sender) Reply(req *Message, payload Payload) error {
	msgID, ok := req.MsgID()
	if !ok {
		// Consume an ID anyway to keep issuance strictly monotonic per call.
		s.mu.Lock()
		s.nextID++
		s.mu.Unlock()

		s.metrics.SendErrors.WithLabelValues(payload.Type()).Inc()
		return fmt.Errorf("reply %s: %w", payload.Type(), ErrNoMsgID)
	}

	return s.ReplyTo(req.Dest, req.Src, msgID, payload)
}

// ReplyTo sends a reply from src to the request with ID inReplyTo sent by
// dest. Used to reply once the request itself is no longer available, such
// as when relaying the reply to a forwarded request.
func (s *Sender) ReplyTo(src, dest string, inReplyTo uint64, payload Payload) error {
	return s.send(src, dest, Header{InReplyTo: &inReplyTo}, payload, true)
}

// NextID returns the ID that will be assigned to the next message.
func (s *Sender) NextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextID
}

func (s *Sender) Metrics() *Metrics {
	return s.metrics
}

func (s *Sender) send(
	src, dest string,
	header Header,
	payload Payload,
	assignID bool,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	if assignID {
		header.MsgID = &id
	}

	if err := s.write(src, dest, header, payload); err != nil {
		s.metrics.SendErrors.WithLabelValues(payload.Type()).Inc()
		return err
	}

	s.metrics.MessagesOutbound.WithLabelValues(payload.Type()).Inc()
	return nil
}

func (s *Sender) write(src, dest string, header Header, payload Payload) error {
	m, err := NewMessage(src, dest, header, payload)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	b, err := m.Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if err := s.transport.Send(dest, b); err != nil {
		return fmt.Errorf("send: %s: %w", dest, err)
	}

	s.metrics.BytesOutbound.Add(float64(len(b)))

	s.logger.Debug(
		"sent message",
		zap.String("dest", dest),
		zap.String("type", payload.Type()),
	)

	return nil
}
