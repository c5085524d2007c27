package node

import (
	"context"

	"github.com/andydunstall/lattice/pkg/protocol"
)

// Broker fans out every inbound message to all subscribers.
//
// Each subscriber has an independent buffered channel. Publishing blocks until
// every subscriber has accepted the message, so a subscriber never misses a
// message, though a slow subscriber delays the others.
type Broker struct {
	subscribers []chan *protocol.Message
}

func NewBroker() *Broker {
	return &Broker{}
}

// Subscribe adds a subscriber with the given buffer size. Must be called
// before Run.
func (b *Broker) Subscribe(buffer int) <-chan *protocol.Message {
	ch := make(chan *protocol.Message, buffer)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Run publishes messages from inbound to all subscribers until inbound is
// closed or the context is cancelled. The subscriber channels are closed when
// Run returns.
func (b *Broker) Run(ctx context.Context, inbound <-chan *protocol.Message) error {
	defer func() {
		for _, ch := range b.subscribers {
			close(ch)
		}
	}()

	for {
		select {
		case m, ok := <-inbound:
			if !ok {
				return nil
			}
			for _, ch := range b.subscribers {
				select {
				case ch <- m:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
