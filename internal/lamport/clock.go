// =============================================================================
// LAMPORT CLOCK - Logical Time Shared by Every Goroutine of a Peer
// =============================================================================
//
// Update rules:
//
//   LC := LC + 1                 before a send (Tick)
//   LC := max(LC, TS(m)) + 1     on every receive, ack or not (Observe)
//
// One clock exists per peer. The submit path and every inbound connection
// handler touch it concurrently, so both rules are single atomic
// read-modify-write steps.
//
// =============================================================================
// COMMON BUG TO AVOID
// =============================================================================
//
// BUG: Load, compute, Store.
//
//   cur := c.value.Load()
//   c.value.Store(max(cur, remote) + 1)   // a concurrent Tick is lost
//
// Observe retries with CompareAndSwap until nobody raced it.
//
// =============================================================================

package lamport

import "sync/atomic"

// Clock is a Lamport clock. The zero value is a clock at 0 ready to use.
type Clock struct {
	value atomic.Int64
}

func NewClock(start int64) *Clock {
	c := &Clock{}
	c.value.Store(start)
	return c
}

// Tick advances the clock by one and returns the new value.
func (c *Clock) Tick() int64 {
	return c.value.Add(1)
}

// Observe merges a remote timestamp into the clock and returns the new value.
func (c *Clock) Observe(remote int64) int64 {
	for {
		cur := c.value.Load()
		next := cur
		if remote > next {
			next = remote
		}
		next++
		if c.value.CompareAndSwap(cur, next) {
			return next
		}
	}
}

func (c *Clock) Value() int64 {
	return c.value.Load()
}
