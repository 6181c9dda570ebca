// =============================================================================
// PENDING SET INTERFACE - Messages Waiting for Their Turn
// =============================================================================
//
// =============================================================================
// WHAT THIS FILE REPRESENTS
// =============================================================================
//
// Every message a peer receives, content or ack, waits here until the
// delivery rule lets it go. The set is ordered by (timestamp, sender) so the
// minimum is always the next candidate.
//
// By coding to an interface, the node does not care how the order is kept:
//
// - B-tree in memory (MemoryPendingSet)
// - anything else that can pop its minimum atomically
//
// Nothing here survives a restart. The clock restarts too, so a persisted
// queue would be meaningless.
//
// =============================================================================
// WHY PopReady AND NOT Peek + Pop
// =============================================================================
//
// Many connection handlers run at once. If two of them check readiness and
// then pop separately:
//
//   handler 1: Ready? yes          handler 2: Ready? yes
//   handler 1: Pop -> m1           handler 2: Pop -> m2   // m2 was never ready
//
// PopReady does the check and the pop under one lock.
//
// =============================================================================
// INVARIANT THIS FILE MUST UPHOLD
// =============================================================================
//
// INVARIANT: An element is removed at most once, and only when the set held
//            entries from at least quorum distinct senders at that instant.
//
// =============================================================================

package storage

import "github.com/senutpal/lamportchat/internal/lamport"

type PendingSet interface {
	// Insert adds msg. Duplicates are kept.
	Insert(msg lamport.Message)

	// PopReady removes and returns the minimum if lamport.Ready holds for
	// the whole set. It returns false otherwise, or when the set is empty.
	PopReady(quorum int) (lamport.Message, bool)

	Peek() (lamport.Message, bool)
	Len() int

	// Senders is the number of distinct senders currently present.
	Senders() int

	// Snapshot returns the contents in delivery order.
	Snapshot() []lamport.Message

	Reset()
}
