// =============================================================================
// MESSAGES - The Unit Every Peer Exchanges
// =============================================================================
//
// =============================================================================
// WHAT THIS FILE REPRESENTS
// =============================================================================
//
// A Message is either chat content produced by some peer or an
// acknowledgment emitted by a peer that received content. Both kinds travel
// the same wire and sit in the same pending set, so both carry a Lamport
// timestamp and the id of the peer that stamped them.
//
// Ordering is a pair, like a priority ticket:
//
//   1. Timestamp (the "counter")
//   2. Sender    (the "tiebreaker")
//
// Example ordering (ascending):
//    (3, 1) < (3, 2) < (4, 1) < (9, 1)
//
// =============================================================================
// INVARIANT THIS FILE MUST UPHOLD
// =============================================================================
//
// INVARIANT: Compare looks at (Timestamp, Sender) and nothing else.
//
// Payload and IsAck never influence the order. Two peers holding the same
// messages must agree on the minimum no matter how they arrived.
//
// =============================================================================

package lamport

import "fmt"

// MaxStamp bounds timestamps and sender ids. The wire codec zigzag-encodes
// int64 values and loses anything of larger magnitude.
const MaxStamp = 1<<62 - 1

// InRange reports whether v survives the wire unchanged.
func InRange(v int64) bool {
	return v >= -MaxStamp && v <= MaxStamp
}

type Message struct {
	Timestamp int64
	Payload   string
	IsAck     bool
	Sender    int64
}

// NewContent builds a deliverable message stamped at ts by sender.
func NewContent(ts int64, sender int64, payload string) Message {
	return Message{Timestamp: ts, Payload: payload, Sender: sender}
}

// NewAck builds an acknowledgment stamped at ts by sender. Acks never carry
// a payload.
func NewAck(ts int64, sender int64) Message {
	return Message{Timestamp: ts, IsAck: true, Sender: sender}
}

// Compare returns -1, 0 or 1 depending on whether a orders before, together
// with, or after b.
func Compare(a, b Message) int {
	switch {
	case a.Timestamp < b.Timestamp:
		return -1
	case a.Timestamp > b.Timestamp:
		return 1
	case a.Sender < b.Sender:
		return -1
	case a.Sender > b.Sender:
		return 1
	}
	return 0
}

func (m Message) Less(other Message) bool {
	return Compare(m, other) < 0
}

func (m Message) Equal(other Message) bool {
	return Compare(m, other) == 0
}

func (m Message) String() string {
	if m.IsAck {
		return fmt.Sprintf("ack(%d, %d)", m.Timestamp, m.Sender)
	}
	return fmt.Sprintf("msg(%d, %d, %q)", m.Timestamp, m.Sender, m.Payload)
}
