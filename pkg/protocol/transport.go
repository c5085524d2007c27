package protocol

import (
	"bufio"
	"fmt"
	"io"
)

// Transport delivers encoded messages to their destination.
//
// Peers are addressed by node ID. Actual delivery is the job of the harness,
// such as Maelstrom routing messages written to stdout.
type Transport interface {
	// Send delivers a single encoded message to dest.
	Send(dest string, b []byte) error
}

// StreamTransport writes each message as a line to the underlying writer,
// flushing after every message.
//
// StreamTransport is not safe for concurrent use, Sender serializes writes.
type StreamTransport struct {
	w *bufio.Writer
}

func NewStreamTransport(w io.Writer) *StreamTransport {
	return &StreamTransport{
		w: bufio.NewWriter(w),
	}
}

func (t *StreamTransport) Send(_ string, b []byte) error {
	if _, err := t.w.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

var _ Transport = &StreamTransport{}
