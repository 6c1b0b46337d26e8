// FILE: src/internal/shipper/status.go
package shipper

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrConfiguration marks start-time validation failures
	ErrConfiguration = errors.New("shipper configuration error")
	// ErrSerialization marks events that could not be encoded
	ErrSerialization = errors.New("event serialization failed")
	// ErrSubmission marks events the transport refused or failed to deliver
	ErrSubmission = errors.New("event submission failed")
	// ErrNotInitialized marks Ship calls outside the Ready state
	ErrNotInitialized = errors.New("shipper not initialized")
)

// Severity of a diagnostic
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Diagnostic is one entry in the shipper's status list
type Diagnostic struct {
	Time     time.Time
	Severity Severity
	Message  string
	Err      error
}

func (d Diagnostic) String() string {
	if d.Err == nil {
		return fmt.Sprintf("%s %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s %s: %v", d.Severity, d.Message, d.Err)
}

const defaultStatusCapacity = 256

// statusList keeps the most recent diagnostics, oldest dropped first
type statusList struct {
	mu       sync.Mutex
	entries  []Diagnostic
	capacity int
	dropped  uint64
}

func newStatusList(capacity int) *statusList {
	if capacity < 1 {
		capacity = defaultStatusCapacity
	}
	return &statusList{capacity: capacity}
}

func (l *statusList) add(d Diagnostic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
		l.dropped++
	}
	l.entries = append(l.entries, d)
}

func (l *statusList) snapshot() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *statusList) count(target error) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.entries {
		if errors.Is(d.Err, target) {
			n++
		}
	}
	return n
}
