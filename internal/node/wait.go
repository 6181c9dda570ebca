package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/senutpal/lamportchat/internal/config"
	"github.com/senutpal/lamportchat/internal/transport"
)

var ErrPeersUnavailable = errors.New("peers unavailable")

// WaitForPeers blocks until every peer accepts connections, probing with
// exponential backoff. Producing before the group is up would lose the first
// messages, and with them the acks some peer's quorum depends on.
func (n *Node) WaitForPeers(ctx context.Context) error {
	prober, ok := n.transport.(transport.Prober)
	if !ok {
		return nil
	}

	remaining := make(map[int64]config.Peer, len(n.peers))
	for _, p := range n.peers {
		remaining[p.ID] = p
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = n.peerWait

	probe := func() error {
		for id, p := range remaining {
			if err := prober.Probe(ctx, p.Addr); err != nil {
				return fmt.Errorf("%w: %d of %d missing, %s: %v",
					ErrPeersUnavailable, len(remaining), len(n.peers), p, err)
			}
			delete(remaining, id)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		n.logf("waiting %v for peers: %v", next, err)
	}

	if err := backoff.RetryNotify(probe, backoff.WithContext(b, ctx), notify); err != nil {
		return err
	}
	n.logf("all %d peers reachable", len(n.peers))
	return nil
}
