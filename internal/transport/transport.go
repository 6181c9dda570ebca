// =============================================================================
// TRANSPORT INTERFACE - One Message, One Connection
// =============================================================================
//
// =============================================================================
// WHAT THIS FILE REPRESENTS
// =============================================================================
//
// This file defines how peers hand each other lamport.Messages. Two
// implementations exist:
//
// - TCPTransport (real network, one TCP connection per message)
// - MemoryTransport (single process, for tests and the demo)
//
// The protocol code works with lamport.Message values, never bytes. The
// transport owns serialization (see codec.go).
//
// =============================================================================
// TRANSPORT SEMANTICS
// =============================================================================
//
// - Send opens a connection, writes one message, closes. No retries.
// - Serve accepts connections until Close and calls the handler once per
//   message, each on its own goroutine.
// - A failed Send is returned to the caller. A bad inbound message is
//   logged and dropped. Neither stops the accept loop.
//
// =============================================================================
// COMMON BUG TO AVOID
// =============================================================================
//
// BUG: Handling inbound messages on the accept goroutine.
//
// A handler broadcasts an ack, and that ack is sent to ourselves too. If the
// accept loop is busy running the handler, nobody accepts the ack and the
// Send blocks forever. Every message gets its own goroutine.
//
// =============================================================================

package transport

import (
	"context"
	"errors"

	"github.com/senutpal/lamportchat/internal/lamport"
)

var (
	ErrClosed      = errors.New("transport closed")
	ErrUnreachable = errors.New("peer unreachable")
	ErrMalformed   = errors.New("malformed message")
	ErrTooLarge    = errors.New("message too large")
)

// Handler is called once for every message received.
type Handler func(msg lamport.Message)

type Transport interface {
	// Send delivers msg to the peer listening at to.
	Send(ctx context.Context, to string, msg lamport.Message) error

	// Serve blocks until Close, dispatching inbound messages to h.
	Serve(h Handler) error

	// Addr is the address other peers use to reach this transport.
	Addr() string

	Close() error
}

// Prober is implemented by transports that can check whether a peer is
// accepting connections without delivering anything to it.
type Prober interface {
	Probe(ctx context.Context, to string) error
}
