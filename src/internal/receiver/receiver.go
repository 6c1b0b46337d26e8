// FILE: src/internal/receiver/receiver.go
package receiver

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"sync/atomic"
	"time"
)

// ErrThrottled is returned when a shard has no write capacity left
var ErrThrottled = errors.New("rate exceeded for shard")

// Record is one record accepted by a receiver
type Record struct {
	Stream         string
	PartitionKey   string
	Data           []byte
	ShardID        string
	SequenceNumber string
	// Token subject of the producer, empty without auth
	Subject   string
	Transport string
	Received  time.Time
}

// Handler consumes accepted records. It runs on the receiver's goroutine
// and must not block for long.
type Handler func(Record)

// Ledger assigns records to shards and hands out sequence numbers. HTTP
// and TCP receivers sharing one ledger behave as a single stream.
type Ledger struct {
	shardCount int
	buckets    []*shardBucket
	sequence   atomic.Uint64
	throttled  atomic.Uint64
}

// NewLedger creates a ledger with shardCount shards. A positive
// recordsPerSecond caps each shard's write rate.
func NewLedger(shardCount int, recordsPerSecond float64) *Ledger {
	return newLedger(shardCount, recordsPerSecond, time.Now)
}

func newLedger(shardCount int, recordsPerSecond float64, now func() time.Time) *Ledger {
	if shardCount < 1 {
		shardCount = 1
	}
	l := &Ledger{shardCount: shardCount}
	if recordsPerSecond > 0 {
		l.buckets = make([]*shardBucket, shardCount)
		for i := range l.buckets {
			l.buckets[i] = newShardBucket(recordsPerSecond, now)
		}
	}
	return l
}

// Shard returns the shard index owning a partition key
func (l *Ledger) Shard(partitionKey string) int {
	h := fnv.New32a()
	h.Write([]byte(partitionKey))
	return int(h.Sum32() % uint32(l.shardCount))
}

// Assign places a record, returning its shard id and sequence number
func (l *Ledger) Assign(partitionKey string) (shardID, sequence string, err error) {
	shard := l.Shard(partitionKey)
	if l.buckets != nil && !l.buckets[shard].allow() {
		l.throttled.Add(1)
		return "", "", ErrThrottled
	}
	return FormatShardID(shard), fmt.Sprintf("%020d", l.sequence.Add(1)), nil
}

// FormatShardID renders a shard index the way stream acks name shards
func FormatShardID(shard int) string {
	return fmt.Sprintf("shardId-%012d", shard)
}

func (l *Ledger) GetStats() map[string]any {
	return map[string]any{
		"shard_count":      l.shardCount,
		"records_assigned": l.sequence.Load(),
		"total_throttled":  l.throttled.Load(),
	}
}

// freePort asks the kernel for an unused TCP port on host
func freePort(host string) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
