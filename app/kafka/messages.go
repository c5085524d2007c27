package kafka

type Send struct {
	Key string `json:"key"`
	Msg int    `json:"msg"`
}

func (s *Send) Type() string {
	return "send"
}

type SendOK struct {
	Offset int `json:"offset"`
}

func (s *SendOK) Type() string {
	return "send_ok"
}

// ForwardSend forwards a client send request to the owner of the key. The
// owner replies with ForwardSendOK, which the forwarding node uses to reply
// to the client.
type ForwardSend struct {
	Key         string `json:"key"`
	Msg         int    `json:"msg"`
	Client      string `json:"client"`
	ClientMsgID uint64 `json:"client_msg_id"`
}

func (f *ForwardSend) Type() string {
	return "kafka_forward_send"
}

type ForwardSendOK struct {
	Offset      int    `json:"offset"`
	Client      string `json:"client"`
	ClientMsgID uint64 `json:"client_msg_id"`
}

func (f *ForwardSendOK) Type() string {
	return "kafka_forward_send_ok"
}

type Poll struct {
	// Offsets contains the offset to poll from for each key.
	Offsets map[string]int `json:"offsets"`
}

func (p *Poll) Type() string {
	return "poll"
}

type PollOK struct {
	// Msgs contains the [offset, msg] pairs for each key in ascending offset
	// order.
	Msgs map[string][][2]int `json:"msgs"`
}

func (p *PollOK) Type() string {
	return "poll_ok"
}

type CommitOffsets struct {
	Offsets map[string]int `json:"offsets"`
}

func (c *CommitOffsets) Type() string {
	return "commit_offsets"
}

type CommitOffsetsOK struct{}

func (c *CommitOffsetsOK) Type() string {
	return "commit_offsets_ok"
}

type ListCommittedOffsets struct {
	Keys []string `json:"keys"`
}

func (l *ListCommittedOffsets) Type() string {
	return "list_committed_offsets"
}

type ListCommittedOffsetsOK struct {
	Offsets map[string]int `json:"offsets"`
}

func (l *ListCommittedOffsetsOK) Type() string {
	return "list_committed_offsets_ok"
}
