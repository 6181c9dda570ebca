// =============================================================================
// NODE - One Peer of the Totally-Ordered Multicast Group
// =============================================================================
//
// =============================================================================
// WHAT THIS FILE REPRESENTS
// =============================================================================
//
// A Node owns everything one peer process needs:
//
//   ┌─────────────────────────────────────────────────────────┐
//   │                         NODE                            │
//   │  ┌───────────┐  ┌─────────────┐  ┌─────────────┐       │
//   │  │   CLOCK   │  │ PENDING SET │  │ BROADCASTER │       │
//   │  └─────┬─────┘  └──────┬──────┘  └──────┬──────┘       │
//   │        └───────────────┼────────────────┘              │
//   │                  ┌─────┴─────┐                         │
//   │                  │ TRANSPORT │                         │
//   │                  └─────┬─────┘                         │
//   │                  ┌─────┴──────┐                        │
//   │                  │ TRANSCRIPT │                        │
//   │                  └────────────┘                        │
//   └─────────────────────────────────────────────────────────┘
//
// Nothing in here is global: two Nodes in one process (the demo, the tests)
// share no state except what travels through their transports.
//
// =============================================================================
// MESSAGE FLOW
// =============================================================================
//
//   producer ──Submit──▶ Tick ──▶ Broadcast(content) ──▶ every peer, self too
//
//   every inbound message (HandleMessage):
//     1. Observe(ts)
//     2. insert into the pending set
//     3. content? broadcast an ack stamped with the observed time
//     4. while the set holds something from every peer: pop the minimum;
//        acks are consumed, content is delivered to the transcript
//
// The local peer is in its own PeerSet. Its own submissions reach it through
// the transport like anyone else's, and count toward the quorum the same way.
//
// =============================================================================
// COMMON BUG TO AVOID
// =============================================================================
//
// BUG: Popping at most one entry per inbound message.
//
// When one arrival makes several entries ready at once, a single pop leaves
// the rest stuck until some unrelated message shows up. DeliverDrain keeps
// popping while the rule holds. DeliverOne is kept to reproduce the stall.
//
// =============================================================================

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/senutpal/lamportchat/internal/config"
	"github.com/senutpal/lamportchat/internal/lamport"
	"github.com/senutpal/lamportchat/internal/storage"
	"github.com/senutpal/lamportchat/internal/transcript"
	"github.com/senutpal/lamportchat/internal/transport"
)

type DeliveryMode int

const (
	DeliverDrain DeliveryMode = iota
	DeliverOne
)

var ErrNotInPeerSet = errors.New("node is not a member of its peer set")

type Config struct {
	ID   int64
	Name string

	Peers      config.PeerSet
	ClockStart int64
	Policy     FailurePolicy
	Mode       DeliveryMode

	// PeerWait bounds WaitForPeers. Zero waits until ctx is done.
	PeerWait time.Duration

	Logger *log.Logger
}

type Node struct {
	id       int64
	name     string
	instance uuid.UUID

	clock       *lamport.Clock
	pending     storage.PendingSet
	transport   transport.Transport
	broadcaster *Broadcaster
	sink        transcript.Sink
	peers       config.PeerSet
	quorum      int
	mode        DeliveryMode
	peerWait    time.Duration
	logger      *log.Logger

	deliverMu sync.Mutex
	seq       uint64

	submitted    atomic.Uint64
	received     atomic.Uint64
	acksSent     atomic.Uint64
	delivered    atomic.Uint64
	acksConsumed atomic.Uint64

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func New(cfg Config, t transport.Transport, pending storage.PendingSet, sink transcript.Sink) (*Node, error) {
	if !cfg.Peers.Contains(cfg.ID) {
		return nil, fmt.Errorf("%w: id %d, peers %v", ErrNotInPeerSet, cfg.ID, cfg.Peers)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprint(cfg.ID)
	}

	b := NewBroadcaster(t, cfg.Peers, cfg.Policy, logger)
	b.name = name

	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		id:          cfg.ID,
		name:        name,
		instance:    uuid.New(),
		clock:       lamport.NewClock(cfg.ClockStart),
		pending:     pending,
		transport:   t,
		broadcaster: b,
		sink:        sink,
		peers:       cfg.Peers,
		quorum:      cfg.Peers.Quorum(),
		mode:        cfg.Mode,
		peerWait:    cfg.PeerWait,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start serves inbound messages in the background.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return nil
	}
	n.running = true
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		err := n.transport.Serve(n.HandleMessage)
		if err != nil && !errors.Is(err, transport.ErrClosed) {
			n.logf("serve: %v", err)
		}
	}()
	n.logf("started, instance %s, peers %v", n.instance, n.peers)
	return nil
}

// Stop closes the transport and waits for in-flight handlers.
func (n *Node) Stop() error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	n.mu.Unlock()

	n.cancel()
	err := n.transport.Close()
	n.wg.Wait()
	return err
}

// Submit multicasts payload to the group. The message is not queued
// locally; it arrives back through the transport like everyone else's.
func (n *Node) Submit(ctx context.Context, payload string) (lamport.Message, error) {
	msg := lamport.NewContent(n.clock.Tick(), n.id, payload)
	n.submitted.Add(1)
	return msg, n.broadcaster.Broadcast(ctx, msg)
}

// HandleMessage is the per-connection logic, called once for each message
// the transport receives.
func (n *Node) HandleMessage(msg lamport.Message) {
	n.received.Add(1)
	now := n.clock.Observe(msg.Timestamp)
	n.pending.Insert(msg)

	if !msg.IsAck {
		// failures are logged by the broadcaster
		n.broadcaster.Broadcast(n.ctx, lamport.NewAck(now, n.id))
		n.acksSent.Add(1)
	}

	n.deliverReady()
}

func (n *Node) deliverReady() {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()
	for {
		msg, ok := n.pending.PopReady(n.quorum)
		if !ok {
			return
		}
		if msg.IsAck {
			n.acksConsumed.Add(1)
		} else {
			n.clock.Tick()
			n.seq++
			n.delivered.Add(1)
			n.sink.Deliver(transcript.NewEntry(n.seq, n.id, msg))
		}
		if n.mode == DeliverOne {
			return
		}
	}
}

func (n *Node) ID() int64 {
	return n.id
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) Addr() string {
	return n.transport.Addr()
}

func (n *Node) logf(format string, args ...interface{}) {
	n.logger.Printf("[%s] "+format, append([]interface{}{n.name}, args...)...)
}
