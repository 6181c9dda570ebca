package lamport

// Ready reports whether the head of a pending set may be delivered.
//
// Every content message makes each receiver broadcast an ack stamped later
// than the message. Once the set holds something from every peer, no peer can
// still produce an entry that orders before the current head.
func Ready(distinctSenders, quorum int) bool {
	return quorum > 0 && distinctSenders >= quorum
}
