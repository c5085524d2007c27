// Package gossip replicates a node's log to its neighbors using anti-entropy.
//
// Each node tracks the keys it believes each peer already has. On every round
// the node sends each neighbor only the entries that peer is missing. The
// receiver merges the entries and acknowledges with what it has seen plus any
// entries the sender is missing, so both sides converge.
//
// Since the log is grow-only and merges are idempotent, lost or duplicated
// messages only delay convergence, the next round re-sends anything that
// wasn't acknowledged.
package gossip
