package config

import (
	"fmt"
	"strings"
)

// Peer is one member of the multicast group.
type Peer struct {
	ID   int64
	Name string
	Addr string
}

func (p Peer) String() string {
	return fmt.Sprintf("%s(%d)@%s", p.Name, p.ID, p.Addr)
}

// PeerSet is the fixed membership of a run, sorted by id. It is never
// mutated after startup.
type PeerSet []Peer

func (ps PeerSet) Contains(id int64) bool {
	_, ok := ps.Lookup(id)
	return ok
}

func (ps PeerSet) Lookup(id int64) (Peer, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return Peer{}, false
}

// Quorum is the number of distinct senders the delivery rule waits for.
func (ps PeerSet) Quorum() int {
	return len(ps)
}

func (ps PeerSet) String() string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
