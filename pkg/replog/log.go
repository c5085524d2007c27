package replog

import (
	"sort"
	"strconv"
)

// Log is a grow-only map of keys to values.
//
// Log is not safe for concurrent use. It is owned by the node application
// state which is guarded by the node state mutex.
type Log[T any] struct {
	node string
	// counter is the next local counter to use when synthesizing a key.
	counter uint64

	values map[string]T
}

func NewLog[T any](node string) *Log[T] {
	return &Log[T]{
		node:   node,
		values: make(map[string]T),
	}
}

// Insert inserts the value under a new local key. Returns the key and
// whether the value was inserted, which is always true since the local key
// space is owned by this node.
func (l *Log[T]) Insert(v T) (string, bool) {
	for {
		key := l.node + "-" + strconv.FormatUint(l.counter, 10)
		l.counter++

		// A synthesized key should never already exist, though never
		// overwrite an existing entry if it does.
		if _, ok := l.InsertWithKey(key, v); ok {
			return key, true
		}
	}
}

// InsertWithKey inserts the value with the given key if the key is absent.
// Returns the value and true if the key was new, otherwise the log is
// unchanged.
func (l *Log[T]) InsertWithKey(key string, v T) (T, bool) {
	if _, ok := l.values[key]; ok {
		var zero T
		return zero, false
	}
	l.values[key] = v
	return v, true
}

// Contains returns whether the log contains the given key.
func (l *Log[T]) Contains(key string) bool {
	_, ok := l.values[key]
	return ok
}

// Values returns a snapshot of the values in the log ordered by key.
func (l *Log[T]) Values() []T {
	keys := l.Keys()
	values := make([]T, 0, len(keys))
	for _, key := range keys {
		values = append(values, l.values[key])
	}
	return values
}

// Keys returns the keys in the log in sorted order.
func (l *Log[T]) Keys() []string {
	keys := make([]string, 0, len(l.values))
	for key := range l.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the log entries.
func (l *Log[T]) Entries() map[string]T {
	entries := make(map[string]T, len(l.values))
	for key, v := range l.values {
		entries[key] = v
	}
	return entries
}

// Range calls f for each entry in the log in no particular order, stopping if
// f returns false.
func (l *Log[T]) Range(f func(key string, v T) bool) {
	for key, v := range l.values {
		if !f(key, v) {
			return
		}
	}
}

// Len returns the number of entries in the log.
func (l *Log[T]) Len() int {
	return len(l.values)
}
