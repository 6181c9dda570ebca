// =============================================================================
// IN-MEMORY TRANSPORT - Testing/Demo Implementation
// =============================================================================
//
// All peers run in one Go process and share a Network registry:
//
//   ┌─────────┐    Send(to=B)    ┌─────────┐
//   │  Peer A │ ───────────────▶ │  Peer B │
//   │         │   go handler()   │         │
//   └─────────┘                  └─────────┘
//
// Each Send encodes the message with the real wire codec, looks up the
// destination, and runs the destination's handler on a fresh goroutine. That
// mirrors the TCP transport's one-goroutine-per-connection model, including
// arbitrary interleaving between messages.
//
// Failure simulation:
//   - Partition(a, b) makes sends between a and b fail until Heal
//   - a transport that is not serving (or closed) is unreachable
//
// Idle reports when no message is in flight anywhere on the network, which
// lets tests wait for a quiescent cluster instead of sleeping.
//
// =============================================================================

package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/senutpal/lamportchat/internal/lamport"
)

type Network struct {
	mu         sync.RWMutex
	endpoints  map[string]*MemoryTransport
	partitions map[[2]string]bool
	inflight   atomic.Int64
}

func NewNetwork() *Network {
	return &Network{
		endpoints:  make(map[string]*MemoryTransport),
		partitions: make(map[[2]string]bool),
	}
}

// AddNode registers a transport reachable at addr.
func (n *Network) AddNode(addr string) *MemoryTransport {
	t := &MemoryTransport{
		addr:    addr,
		network: n,
		stopCh:  make(chan struct{}),
	}
	n.mu.Lock()
	n.endpoints[addr] = t
	n.mu.Unlock()
	return t
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (n *Network) Partition(a, b string) {
	n.mu.Lock()
	n.partitions[pairKey(a, b)] = true
	n.mu.Unlock()
}

func (n *Network) Heal(a, b string) {
	n.mu.Lock()
	delete(n.partitions, pairKey(a, b))
	n.mu.Unlock()
}

// Idle blocks until no message is in flight or ctx is done.
func (n *Network) Idle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if n.inflight.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (n *Network) lookup(from, to string) (*MemoryTransport, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.partitions[pairKey(from, to)] {
		return nil, fmt.Errorf("%w: %s partitioned from %s", ErrUnreachable, to, from)
	}
	dst, ok := n.endpoints[to]
	if !ok {
		return nil, fmt.Errorf("%w: unknown address %s", ErrUnreachable, to)
	}
	return dst, nil
}

type MemoryTransport struct {
	addr    string
	network *Network

	mu      sync.RWMutex
	handler Handler
	closed  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func (t *MemoryTransport) Addr() string {
	return t.addr
}

func (t *MemoryTransport) Serve(h Handler) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.handler = h
	t.mu.Unlock()

	<-t.stopCh
	t.wg.Wait()
	return ErrClosed
}

func (t *MemoryTransport) Send(ctx context.Context, to string, msg lamport.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.isClosed() {
		return ErrClosed
	}
	dst, err := t.network.lookup(t.addr, to)
	if err != nil {
		return err
	}
	buf, err := Encode(msg)
	if err != nil {
		return err
	}
	return dst.accept(buf)
}

func (t *MemoryTransport) Probe(ctx context.Context, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := t.network.lookup(t.addr, to)
	if err != nil {
		return err
	}
	dst.mu.RLock()
	defer dst.mu.RUnlock()
	if dst.closed || dst.handler == nil {
		return fmt.Errorf("%w: %s not serving", ErrUnreachable, to)
	}
	return nil
}

// accept plays the role of the listener on the receiving side.
func (t *MemoryTransport) accept(buf []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed || t.handler == nil {
		return fmt.Errorf("%w: %s not serving", ErrUnreachable, t.addr)
	}
	h := t.handler
	t.wg.Add(1)
	t.network.inflight.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.network.inflight.Add(-1)
		msg, err := Decode(buf)
		if err != nil {
			return
		}
		h(msg)
	}()
	return nil
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.stopCh)
	t.mu.Unlock()

	t.network.mu.Lock()
	if t.network.endpoints[t.addr] == t {
		delete(t.network.endpoints, t.addr)
	}
	t.network.mu.Unlock()
	return nil
}

func (t *MemoryTransport) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
