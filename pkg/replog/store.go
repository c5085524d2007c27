package replog

// Store is implemented by application state that exposes a replicated log.
//
// Store decouples what is being replicated from how it is replicated, so a
// single gossip engine can serve unrelated applications.
type Store[T any] interface {
	Log() *Log[T]
}

// Observer may be implemented by a Store to be notified of each new value
// accepted into its log, either from a local insert or a remote merge.
//
// This lets state derived from the log (such as a sum) be maintained
// incrementally rather than recomputed.
type Observer[T any] interface {
	NewValue(v T)
}

// Insert inserts a local value into the store log and notifies the store if
// it implements Observer.
func Insert[T any](s Store[T], v T) string {
	key, ok := s.Log().Insert(v)
	if ok {
		notify(s, v)
	}
	return key
}

// Merge merges the given entries into the store log, notifying the store of
// each new value. Entries whose keys are already known are ignored. Returns
// the number of new entries.
func Merge[T any](s Store[T], entries map[string]T) int {
	log := s.Log()

	merged := 0
	for key, v := range entries {
		if _, ok := log.InsertWithKey(key, v); ok {
			notify(s, v)
			merged++
		}
	}
	return merged
}

func notify[T any](s Store[T], v T) {
	if o, ok := s.(Observer[T]); ok {
		o.NewValue(v)
	}
}
