package kafka

import (
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/andydunstall/lattice/pkg/replog"
)

type Kind string

const (
	KindRecord Kind = "record"
	KindCommit Kind = "commit"
)

// Entry is an entry in the replicated log, either a record appended to a key
// or an offset committed for a key.
type Entry struct {
	Kind   Kind   `json:"kind"`
	Key    string `json:"key"`
	Offset int    `json:"offset"`
	Msg    int    `json:"msg,omitempty"`
}

type record struct {
	offset int
	msg    int
}

// State is the queue state.
//
// Each key is owned by a single node, which is the only node to assign
// offsets for the key. The owner assigns each offset one greater than the
// last offset for the key, so offsets are unique and increase in the order
// sends are acknowledged. A record can never become visible behind an offset
// that was already acknowledged or committed.
type State struct {
	log *replog.Log[Entry]

	nodeID string
	// nodeIDs contains the sorted IDs of the nodes that may own keys.
	nodeIDs []string

	// records contains the records for each key, sorted by offset.
	records map[string][]record
	// committed contains the maximum committed offset for each key.
	committed map[string]int
}

func NewState(nodeID string, nodeIDs []string) *State {
	ids := slices.Clone(nodeIDs)
	sort.Strings(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		ids = []string{nodeID}
	}

	return &State{
		log:       replog.NewLog[Entry](nodeID),
		nodeID:    nodeID,
		nodeIDs:   ids,
		records:   make(map[string][]record),
		committed: make(map[string]int),
	}
}

func (s *State) Log() *replog.Log[Entry] {
	return s.log
}

// Owner returns the ID of the node that assigns offsets for the key. Every
// node with the same node IDs returns the same owner.
func (s *State) Owner(key string) string {
	return s.nodeIDs[xxhash.Sum64String(key)%uint64(len(s.nodeIDs))]
}

// IsOwner returns whether this node owns the key.
func (s *State) IsOwner(key string) bool {
	return s.Owner(key) == s.nodeID
}

// NewValue indexes a new entry accepted into the log.
func (s *State) NewValue(e Entry) {
	switch e.Kind {
	case KindRecord:
		records := s.records[e.Key]
		i := sort.Search(len(records), func(i int) bool {
			return records[i].offset >= e.Offset
		})
		s.records[e.Key] = slices.Insert(records, i, record{
			offset: e.Offset,
			msg:    e.Msg,
		})
	case KindCommit:
		if committed, ok := s.committed[e.Key]; !ok || e.Offset > committed {
			s.committed[e.Key] = e.Offset
		}
	}
}

// Append appends a record to the key, returning the assigned offset. Must
// only be called by the key's owner.
func (s *State) Append(key string, msg int) int {
	offset := s.nextOffset(key)
	replog.Insert[Entry](s, Entry{
		Kind:   KindRecord,
		Key:    key,
		Offset: offset,
		Msg:    msg,
	})
	return offset
}

// Poll returns up to limit records for the key with an offset of at least
// from, in ascending offset order.
func (s *State) Poll(key string, from int, limit int) [][2]int {
	records := s.records[key]
	i := sort.Search(len(records), func(i int) bool {
		return records[i].offset >= from
	})

	var msgs [][2]int
	for ; i < len(records) && len(msgs) < limit; i++ {
		msgs = append(msgs, [2]int{records[i].offset, records[i].msg})
	}
	return msgs
}

// Commit commits the offset for the key.
func (s *State) Commit(key string, offset int) {
	if committed, ok := s.committed[key]; ok && committed >= offset {
		return
	}
	replog.Insert[Entry](s, Entry{
		Kind:   KindCommit,
		Key:    key,
		Offset: offset,
	})
}

// Committed returns the committed offset for the key.
func (s *State) Committed(key string) (int, bool) {
	offset, ok := s.committed[key]
	return offset, ok
}

// nextOffset returns one greater than the last offset for the key.
func (s *State) nextOffset(key string) int {
	records := s.records[key]
	if len(records) == 0 {
		return 0
	}
	return records[len(records)-1].offset + 1
}

var _ replog.Store[Entry] = &State{}
var _ replog.Observer[Entry] = &State{}
