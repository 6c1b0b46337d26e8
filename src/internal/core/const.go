// FILE: src/internal/core/const.go
package core

// Reserved metadata keys promoted to top-level event fields
const (
	KeyEventType = "event_type"
	KeyContext   = "context"
)

// Metadata keys added by the event builder
const (
	KeyException        = "exception"
	KeyExceptionMessage = "exceptionMessage"
	KeyTookMillis       = "took_millis"
)

// Attribute keys carried on slog records by the facade
const (
	AttrLoggerName = "logger_name"
	AttrError      = "kinlog.error"
)

// TimestampLayout renders milliseconds and a numeric zone offset
const TimestampLayout = "2006-01-02T15:04:05.000-0700"

const (
	DefaultLoggerName = "root"
	DefaultBufferSize = 1000
	DefaultWorkers    = 4
	DefaultTimeoutMS  = 5000
)
