package types

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel is the severity of a session log entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// LogEntry is one line of a live session's activity log.
type LogEntry struct {
	ID        string    `yaml:"id" json:"id"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Level     LogLevel  `yaml:"level" json:"level"`
	Message   string    `yaml:"message" json:"message"`
}

// NewLogEntry creates a log entry stamped with the given time.
func NewLogEntry(at time.Time, level LogLevel, message string) LogEntry {
	return LogEntry{
		ID:        uuid.New().String(),
		Timestamp: at,
		Level:     level,
		Message:   message,
	}
}
