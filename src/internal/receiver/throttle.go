// FILE: src/internal/receiver/throttle.go
package receiver

import (
	"sync"
	"time"
)

// shardBucket is a token bucket holding one second of a shard's write capacity
type shardBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // records per second
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

func newShardBucket(recordsPerSecond float64, now func() time.Time) *shardBucket {
	capacity := recordsPerSecond
	if capacity < 1 {
		capacity = 1
	}
	return &shardBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: recordsPerSecond,
		lastRefill: now(),
		now:        now,
	}
}

// allow consumes one token if available
func (b *shardBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.now()
	elapsed := t.Sub(b.lastRefill).Seconds()
	if elapsed < 0 {
		// Clock went backwards
		elapsed = 0
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = t

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
