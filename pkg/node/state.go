package node

import (
	"fmt"
	"sort"
	"sync"
)

// State is the node state aggregate of the init request, the application
// state and the neighbor set.
//
// The application state and neighbor set are guarded by a single mutex. The
// lock is only held for a single read-modify-write step and must never be
// held while sending a message.
type State[S any] struct {
	// init is immutable after the node is initialized.
	init Init

	app       S
	neighbors map[string]struct{}

	// mu protects the above fields.
	mu sync.Mutex
}

// NewState creates the node state. The neighbor set is initialized to all
// nodes in the cluster.
func NewState[S any](init Init, app S) *State[S] {
	neighbors := make(map[string]struct{})
	for _, id := range init.NodeIDs {
		neighbors[id] = struct{}{}
	}
	return &State[S]{
		init:      init.Copy(),
		app:       app,
		neighbors: neighbors,
	}
}

// Init returns the init request the node was initialized with.
func (s *State[S]) Init() Init {
	return s.init.Copy()
}

// NodeID returns the local node ID.
func (s *State[S]) NodeID() string {
	return s.init.NodeID
}

// Neighbors returns the sorted neighbor set.
func (s *State[S]) Neighbors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	neighbors := make([]string, 0, len(s.neighbors))
	for id := range s.neighbors {
		neighbors = append(neighbors, id)
	}
	sort.Strings(neighbors)
	return neighbors
}

// SetNeighbors replaces the neighbor set.
func (s *State[S]) SetNeighbors(neighbors []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.neighbors = make(map[string]struct{})
	for _, id := range neighbors {
		s.neighbors[id] = struct{}{}
	}
}

// UpdateTopology replaces the neighbor set with the local node's adjacency
// list in the given topology.
//
// Returns ErrNotInTopology if the topology doesn't include the local node,
// which the caller should treat as fatal.
func (s *State[S]) UpdateTopology(topology map[string][]string) error {
	neighbors, ok := topology[s.init.NodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInTopology, s.init.NodeID)
	}
	s.SetNeighbors(neighbors)
	return nil
}

// With calls f with the application state while holding the state lock.
//
// f must not block or send messages.
func (s *State[S]) With(f func(app S)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f(s.app)
}
