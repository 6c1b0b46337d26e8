// FILE: src/internal/transport/transport.go
package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Submit after Close
	ErrClosed = errors.New("producer is closed")
	// ErrBufferFull is returned by Submit when the send queue is saturated
	ErrBufferFull = errors.New("producer buffer is full")
)

// Producer submits records to a named stream. Submit never blocks on the
// network; the returned future completes once the stream acknowledges or
// rejects the record.
type Producer interface {
	Submit(stream, partitionKey string, payload []byte) (*Future, error)

	// Flush blocks until every outstanding submission has completed
	Flush()

	// Close stops intake and releases connections. Queued submissions are
	// sent first where the transport can; any it cannot deliver fail.
	Close() error

	// GetStats returns producer statistics
	GetStats() map[string]any
}

// Ack is the stream's receipt for one record
type Ack struct {
	ShardID        string
	SequenceNumber string
}

func (a Ack) String() string {
	return fmt.Sprintf("%s/%s", a.ShardID, a.SequenceNumber)
}

// Record is one submission as seen by a producer
type Record struct {
	Stream       string
	PartitionKey string
	Payload      []byte
}
