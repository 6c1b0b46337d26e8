// FILE: src/internal/core/level.go
package core

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is the severity of a structured event, ordered TRACE < DEBUG < INFO < WARN < ERROR
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// SlogLevelTrace sits below slog.LevelDebug so trace records stay distinct
const SlogLevelTrace = slog.Level(-8)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelError {
		return fmt.Sprintf("LEVEL(%d)", int8(l))
	}
	return levelNames[l]
}

// AtLeast reports whether l is as severe as other or more
func (l Level) AtLeast(other Level) bool {
	return l >= other
}

// Slog returns the slog level used when emitting records of this level
func (l Level) Slog() slog.Level {
	switch l {
	case LevelTrace:
		return SlogLevelTrace
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromSlog maps an slog level onto the five event levels, rounding down
func FromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	case l >= slog.LevelDebug:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// ParseLevel accepts level names case-insensitively, "warning" included
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown level: %q", s)
	}
}
