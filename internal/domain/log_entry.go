package domain

import (
	"encoding/json"
	"time"
)

type LogLevel string

const (
	LogLevelDebug     LogLevel = "debug"
	LogLevelInfo      LogLevel = "info"
	LogLevelNotice    LogLevel = "notice"
	LogLevelWarning   LogLevel = "warning"
	LogLevelError     LogLevel = "error"
	LogLevelCritical  LogLevel = "critical"
	LogLevelAlert     LogLevel = "alert"
	LogLevelEmergency LogLevel = "emergency"
)

// LogEntry is one structured record broadcast to connected MCP sessions.
type LogEntry struct {
	Logger    string
	Level     LogLevel
	Timestamp time.Time
	DataJSON  json.RawMessage
}
