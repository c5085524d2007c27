package node

import (
	"errors"
)

var (
	// ErrNotInit is returned when the first message received by the node is
	// not an init request.
	ErrNotInit = errors.New("first message not init")

	// ErrNotInTopology is returned when a topology doesn't contain the local
	// node.
	ErrNotInTopology = errors.New("node not in topology")

	// ErrUnexpectedReply is returned when receiving a reply-only message
	// type where a request is expected.
	ErrUnexpectedReply = errors.New("unexpected reply")

	// ErrUnknownType is returned when there is no handler for a message type.
	// This is expected since every subscriber receives every message.
	ErrUnknownType = errors.New("unknown type")

	// ErrDecode is returned when a message body can't be decoded into the
	// payload for its type.
	ErrDecode = errors.New("decode")
)

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return "fatal: " + e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

// Fatal marks the error as fatal. A handler returning a fatal error stops the
// node, rather than the message being logged and dropped.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal returns whether the error was marked with Fatal.
func IsFatal(err error) bool {
	var fatal *fatalError
	return errors.As(err, &fatal)
}
