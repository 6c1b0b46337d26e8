// FILE: src/internal/core/event.go
package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// StructuredEvent is the canonical record built from one log call
type StructuredEvent struct {
	AppName     string
	Environment string
	Level       Level
	LoggerName  string
	EventType   string // empty for plain diagnostic logs
	Context     string
	Description string
	Stacktrace  string // only populated at ERROR
	Timestamp   time.Time
	Metadata    map[string]string
}

// IsBusinessEvent reports whether the event carries an event type
func (e *StructuredEvent) IsBusinessEvent() bool {
	return e.EventType != ""
}

// wireEvent fixes the JSON field names; absent optional fields encode as null
type wireEvent struct {
	AppName     string            `json:"app_name"`
	Environment string            `json:"environment"`
	Level       string            `json:"level"`
	LoggerName  string            `json:"logger_name"`
	EventType   *string           `json:"event_type"`
	Context     *string           `json:"context"`
	Description string            `json:"description"`
	Stacktrace  *string           `json:"stacktrace"`
	Timestamp   string            `json:"timestamp"`
	Metadata    map[string]string `json:"metadata"`
}

func (e StructuredEvent) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		AppName:     e.AppName,
		Environment: e.Environment,
		Level:       e.Level.String(),
		LoggerName:  e.LoggerName,
		EventType:   optional(e.EventType),
		Context:     optional(e.Context),
		Description: e.Description,
		Stacktrace:  optional(e.Stacktrace),
		Timestamp:   FormatTimestamp(e.Timestamp),
		Metadata:    e.Metadata,
	}
	if w.Metadata == nil {
		w.Metadata = map[string]string{}
	}
	return json.Marshal(w)
}

func (e *StructuredEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	level, err := ParseLevel(w.Level)
	if err != nil {
		return fmt.Errorf("decode event level: %w", err)
	}

	var ts time.Time
	if w.Timestamp != "" {
		ts, err = time.Parse(TimestampLayout, w.Timestamp)
		if err != nil {
			return fmt.Errorf("decode event timestamp: %w", err)
		}
	}

	*e = StructuredEvent{
		AppName:     w.AppName,
		Environment: w.Environment,
		Level:       level,
		LoggerName:  w.LoggerName,
		EventType:   deref(w.EventType),
		Context:     deref(w.Context),
		Description: w.Description,
		Stacktrace:  deref(w.Stacktrace),
		Timestamp:   ts,
		Metadata:    w.Metadata,
	}
	if e.Metadata == nil {
		e.Metadata = map[string]string{}
	}
	return nil
}

// FormatTimestamp renders t with millisecond precision and numeric offset
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
