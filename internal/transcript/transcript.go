// Package transcript receives delivered messages, one entry per delivery, in
// the order the node delivered them.
package transcript

import (
	"fmt"
	"io"
	"sync"

	"github.com/senutpal/lamportchat/internal/lamport"
)

// Entry is one delivered message as seen by one peer.
type Entry struct {
	Seq       uint64 `json:"seq"`
	Peer      int64  `json:"peer"`
	Timestamp int64  `json:"timestamp"`
	Sender    int64  `json:"sender"`
	Payload   string `json:"payload"`
}

func NewEntry(seq uint64, peer int64, msg lamport.Message) Entry {
	return Entry{
		Seq:       seq,
		Peer:      peer,
		Timestamp: msg.Timestamp,
		Sender:    msg.Sender,
		Payload:   msg.Payload,
	}
}

// Sink is called by exactly one goroutine at a time per node, in delivery
// order. Implementations must not block for long.
type Sink interface {
	Deliver(e Entry)
}

// WriterSink prints each payload on its own line.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Deliver(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, e.Payload)
}

// Recorder keeps every entry in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Deliver(e Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recorder) Payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Payload
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Multi fans one delivery out to several sinks in order.
type Multi []Sink

func (m Multi) Deliver(e Entry) {
	for _, s := range m {
		s.Deliver(e)
	}
}
