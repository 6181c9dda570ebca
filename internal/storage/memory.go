// =============================================================================
// IN-MEMORY PENDING SET - B-tree Ordered Multiset
// =============================================================================
//
// Entries live in a B-tree keyed by (timestamp, sender, arrival). The arrival
// counter only keeps equal keys apart inside the tree; it never changes which
// message is delivered first.
//
// Next to the tree sits a count of entries per sender, so the readiness check
// is a map length instead of a scan of the whole set.
//
// =============================================================================

package storage

import (
	"sync"

	"github.com/google/btree"

	"github.com/senutpal/lamportchat/internal/lamport"
)

const btreeDegree = 16

type entry struct {
	msg     lamport.Message
	arrival uint64
}

func entryLess(a, b entry) bool {
	if c := lamport.Compare(a.msg, b.msg); c != 0 {
		return c < 0
	}
	return a.arrival < b.arrival
}

type MemoryPendingSet struct {
	tree    *btree.BTreeG[entry]
	senders map[int64]int
	arrival uint64
	mu      sync.Mutex
}

func NewMemoryPendingSet() *MemoryPendingSet {
	return &MemoryPendingSet{
		tree:    btree.NewG(btreeDegree, entryLess),
		senders: make(map[int64]int),
	}
}

func (s *MemoryPendingSet) Insert(msg lamport.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrival++
	s.tree.ReplaceOrInsert(entry{msg: msg, arrival: s.arrival})
	s.senders[msg.Sender]++
}

func (s *MemoryPendingSet) PopReady(quorum int) (lamport.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !lamport.Ready(len(s.senders), quorum) {
		return lamport.Message{}, false
	}
	e, ok := s.tree.DeleteMin()
	if !ok {
		return lamport.Message{}, false
	}
	s.senders[e.msg.Sender]--
	if s.senders[e.msg.Sender] == 0 {
		delete(s.senders, e.msg.Sender)
	}
	return e.msg, true
}

func (s *MemoryPendingSet) Peek() (lamport.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tree.Min()
	return e.msg, ok
}

func (s *MemoryPendingSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}

func (s *MemoryPendingSet) Senders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.senders)
}

func (s *MemoryPendingSet) Snapshot() []lamport.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lamport.Message, 0, s.tree.Len())
	s.tree.Ascend(func(e entry) bool {
		out = append(out, e.msg)
		return true
	})
	return out
}

func (s *MemoryPendingSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Clear(false)
	s.senders = make(map[int64]int)
}
