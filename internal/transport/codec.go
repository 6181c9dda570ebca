package transport

import (
	"fmt"
	"io"

	"go.dedis.ch/protobuf"

	"github.com/senutpal/lamportchat/internal/lamport"
)

// MaxMessageSize caps what a receiver reads from one connection.
const MaxMessageSize = 1 << 20

// wireMessage fixes the field order, and so the protobuf tags, of the wire
// format independently of lamport.Message.
type wireMessage struct {
	Timestamp int64
	Payload   string
	IsAck     bool
	Sender    int64
}

// Encode fails with ErrTooLarge for messages no receiver would accept, so
// the loss shows up at the sender instead of being dropped on arrival.
func Encode(msg lamport.Message) ([]byte, error) {
	w := wireMessage{
		Timestamp: msg.Timestamp,
		Payload:   msg.Payload,
		IsAck:     msg.IsAck,
		Sender:    msg.Sender,
	}
	buf, err := protobuf.Encode(&w)
	if err != nil {
		return nil, err
	}
	if len(buf) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(buf), MaxMessageSize)
	}
	return buf, nil
}

func Decode(buf []byte) (lamport.Message, error) {
	var w wireMessage
	if err := protobuf.Decode(buf, &w); err != nil {
		return lamport.Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return lamport.Message{
		Timestamp: w.Timestamp,
		Payload:   w.Payload,
		IsAck:     w.IsAck,
		Sender:    w.Sender,
	}, nil
}

// readFrame reads everything up to EOF, failing if the peer sends more than
// MaxMessageSize bytes.
func readFrame(r io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, MaxMessageSize+1))
	if err != nil {
		return nil, err
	}
	if len(buf) > MaxMessageSize {
		return nil, ErrTooLarge
	}
	return buf, nil
}
