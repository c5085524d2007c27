package gossip

const (
	TypeGossip   = "gossip"
	TypeGossipOK = "gossip_ok"
)

// Request sends the receiver the entries the sender believes it is missing.
type Request[T any] struct {
	Seen map[string]T `json:"seen"`
}

func (r *Request[T]) Type() string {
	return TypeGossip
}

// Ack acknowledges a request. Seen contains the entries in the request plus
// the entries the requester is believed to be missing.
type Ack[T any] struct {
	Seen map[string]T `json:"seen"`
}

func (r *Ack[T]) Type() string {
	return TypeGossipOK
}
