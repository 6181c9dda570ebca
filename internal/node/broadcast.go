// =============================================================================
// BROADCASTER - Send One Message to Every Peer
// =============================================================================
//
// Peers are contacted one after another in ascending id order, one
// connection each, the local peer included. Nothing is retried.
//
// What happens when a send fails is a policy choice:
//
//   BestEffort   try every peer, report all failures          (default)
//   AbortOnFirst stop at the first failure, report the rest as skipped
//
// Either way the caller gets a *BroadcastError listing exactly who did not
// get the message. The protocol does not crash on a lost message, but a peer
// that never receives an ack from someone can wait forever for its quorum.
// That risk is reported here, never hidden.
//
// =============================================================================

package node

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"

	"github.com/senutpal/lamportchat/internal/config"
	"github.com/senutpal/lamportchat/internal/lamport"
	"github.com/senutpal/lamportchat/internal/transport"
)

type FailurePolicy int

const (
	BestEffort FailurePolicy = iota
	AbortOnFirst
)

func (p FailurePolicy) String() string {
	if p == AbortOnFirst {
		return "abort"
	}
	return "best-effort"
}

// SendError is one peer that did not get the message.
type SendError struct {
	Peer config.Peer
	Err  error
}

func (e SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Peer, e.Err)
}

func (e SendError) Unwrap() error {
	return e.Err
}

type BroadcastError struct {
	Msg     lamport.Message
	Failed  []SendError
	Skipped []config.Peer
}

func (e *BroadcastError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "broadcast %v: %d failed", e.Msg, len(e.Failed))
	if len(e.Skipped) > 0 {
		fmt.Fprintf(&b, ", %d skipped", len(e.Skipped))
	}
	for _, f := range e.Failed {
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *BroadcastError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}

type Broadcaster struct {
	transport transport.Transport
	peers     config.PeerSet
	policy    FailurePolicy
	logger    *log.Logger
	name      string

	failures atomic.Uint64
}

func NewBroadcaster(t transport.Transport, peers config.PeerSet, policy FailurePolicy, logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Broadcaster{transport: t, peers: peers, policy: policy, logger: logger}
}

// Broadcast sends msg to every peer. It returns nil or a *BroadcastError.
func (b *Broadcaster) Broadcast(ctx context.Context, msg lamport.Message) error {
	var berr *BroadcastError
	for i, p := range b.peers {
		err := b.transport.Send(ctx, p.Addr, msg)
		if err == nil {
			continue
		}
		b.failures.Add(1)
		b.logger.Printf("[%s] send %v to %s: %v", b.name, msg, p, err)
		if berr == nil {
			berr = &BroadcastError{Msg: msg}
		}
		berr.Failed = append(berr.Failed, SendError{Peer: p, Err: err})
		if b.policy == AbortOnFirst {
			berr.Skipped = append(berr.Skipped, b.peers[i+1:]...)
			break
		}
	}
	if berr != nil {
		return berr
	}
	return nil
}

// Failures counts failed sends since creation.
func (b *Broadcaster) Failures() uint64 {
	return b.failures.Load()
}
