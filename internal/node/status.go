package node

import "github.com/senutpal/lamportchat/internal/lamport"

// Status is a point-in-time view of a node, served by the admin API.
type Status struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Instance string `json:"instance"`
	Addr     string `json:"addr"`
	Clock    int64  `json:"clock"`
	Quorum   int    `json:"quorum"`

	Pending        int `json:"pending"`
	PendingSenders int `json:"pending_senders"`

	Submitted    uint64 `json:"submitted"`
	Received     uint64 `json:"received"`
	AcksSent     uint64 `json:"acks_sent"`
	Delivered    uint64 `json:"delivered"`
	AcksConsumed uint64 `json:"acks_consumed"`
	SendFailures uint64 `json:"send_failures"`
}

func (n *Node) Status() Status {
	return Status{
		ID:             n.id,
		Name:           n.name,
		Instance:       n.instance.String(),
		Addr:           n.transport.Addr(),
		Clock:          n.clock.Value(),
		Quorum:         n.quorum,
		Pending:        n.pending.Len(),
		PendingSenders: n.pending.Senders(),
		Submitted:      n.submitted.Load(),
		Received:       n.received.Load(),
		AcksSent:       n.acksSent.Load(),
		Delivered:      n.delivered.Load(),
		AcksConsumed:   n.acksConsumed.Load(),
		SendFailures:   n.broadcaster.Failures(),
	}
}

// Pending lists the messages waiting for delivery, minimum first.
func (n *Node) Pending() []lamport.Message {
	return n.pending.Snapshot()
}
