// FILE: src/internal/transport/memory.go
package transport

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/log"
)

// MemoryProducer keeps submissions in memory and acknowledges them on a
// separate goroutine. It backs the "memory" transport and tests.
type MemoryProducer struct {
	logger *log.Logger

	mu        sync.Mutex
	records   []Record
	held      []*heldRecord
	closed    bool
	failWith  error
	rejectErr error
	hold      bool

	pending  *Pending
	sequence atomic.Uint64

	totalSubmitted atomic.Uint64
	totalAcked     atomic.Uint64
	totalFailed    atomic.Uint64
}

type heldRecord struct {
	future *Future
	ack    Ack
}

// MemoryOption configures a MemoryProducer
type MemoryOption func(*MemoryProducer)

// WithFailure completes every future with err
func WithFailure(err error) MemoryOption {
	return func(m *MemoryProducer) { m.failWith = err }
}

// WithReject makes Submit itself return err
func WithReject(err error) MemoryOption {
	return func(m *MemoryProducer) { m.rejectErr = err }
}

// WithHold keeps futures pending until Release
func WithHold() MemoryOption {
	return func(m *MemoryProducer) { m.hold = true }
}

func NewMemoryProducer(logger *log.Logger, opts ...MemoryOption) *MemoryProducer {
	m := &MemoryProducer{
		logger:  logger,
		pending: NewPending(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryProducer) Submit(stream, partitionKey string, payload []byte) (*Future, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.rejectErr != nil {
		m.mu.Unlock()
		return nil, m.rejectErr
	}

	m.records = append(m.records, Record{
		Stream:       stream,
		PartitionKey: partitionKey,
		Payload:      slices.Clone(payload),
	})
	m.totalSubmitted.Add(1)

	future := NewFuture()
	ack := Ack{ShardID: "shardId-000000000000", SequenceNumber: fmt.Sprintf("%d", m.sequence.Add(1))}
	m.pending.Add()

	if m.hold {
		m.held = append(m.held, &heldRecord{future: future, ack: ack})
		m.mu.Unlock()
		return future, nil
	}
	failWith := m.failWith
	m.mu.Unlock()

	go m.complete(future, ack, failWith)
	return future, nil
}

func (m *MemoryProducer) complete(future *Future, ack Ack, err error) {
	defer m.pending.Done()
	if err != nil {
		m.totalFailed.Add(1)
		future.Complete(Ack{}, err)
		return
	}
	m.totalAcked.Add(1)
	future.Complete(ack, nil)
}

// Release completes all held futures
func (m *MemoryProducer) Release() {
	m.mu.Lock()
	held := m.held
	m.held = nil
	failWith := m.failWith
	m.mu.Unlock()

	for _, h := range held {
		go m.complete(h.future, h.ack, failWith)
	}
}

func (m *MemoryProducer) Flush() {
	m.pending.Wait()
}

// Close fails any held futures with ErrClosed
func (m *MemoryProducer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	held := m.held
	m.held = nil
	m.mu.Unlock()

	for _, h := range held {
		m.complete(h.future, Ack{}, ErrClosed)
	}

	m.logger.Debug("msg", "Memory producer closed",
		"component", "memory_producer",
		"total_submitted", m.totalSubmitted.Load())
	return nil
}

// Records returns a copy of every accepted submission
func (m *MemoryProducer) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

// Closed reports whether Close was called
func (m *MemoryProducer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MemoryProducer) GetStats() map[string]any {
	return map[string]any{
		"type":            "memory",
		"total_submitted": m.totalSubmitted.Load(),
		"total_acked":     m.totalAcked.Load(),
		"total_failed":    m.totalFailed.Load(),
		"pending":         m.pending.Len(),
	}
}
