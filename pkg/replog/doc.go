// Package replog implements a replicated grow-only keyed log.
//
// Each node inserts values under keys in its own namespace ('{node}-{counter}')
// so keys are globally unique without coordination. A key once inserted is
// never removed or overwritten, which makes merging logs from other nodes
// commutative, associative and idempotent.
package replog
