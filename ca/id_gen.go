package ca

import "sync/atomic"

// IDGenerator hands out correlation ids (cid, ioid, subscription id, search
// id) from a monotonically increasing counter that wraps to 0 at MaxID.
//
// Ids that are still live — as reported by the inUse callback — are skipped,
// so a returned id is never held by another live entry at the moment it is
// returned. The counter is atomic, so a generator may be shared across
// goroutines; generators are purely advisory for builders and are never
// consulted when processing received commands.
type IDGenerator struct {
	next  atomic.Uint32
	inUse func(id uint32) bool
}

// NewIDGenerator creates a generator starting at 0. inUse reports whether an
// id is currently held by a live entry; it may be nil when collisions are
// impossible.
func NewIDGenerator(inUse func(id uint32) bool) *IDGenerator {
	return &IDGenerator{inUse: inUse}
}

// Next returns the next id that is not currently in use.
//
// The caller is expected to bind the id to a live entry promptly; the
// generator does not reserve it.
func (g *IDGenerator) Next() uint32 {
	for {
		// MaxID divides 2^32, so the modulo stays aligned when the
		// underlying counter itself wraps.
		id := (g.next.Add(1) - 1) % MaxID
		if g.inUse == nil || !g.inUse(id) {
			return id
		}
	}
}
