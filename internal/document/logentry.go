package document

import (
	"fmt"
	"strings"
	"time"
)

// Log levels with dedicated icons. Any other level is permitted.
const (
	LevelInfo    = "INFO"
	LevelWarn    = "WARN"
	LevelSuccess = "SUCCESS"
)

// TimestampLayout is the layout of log entry timestamps
const TimestampLayout = "2006-01-02 15:04:05"

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// LogEntry is one line of a status document's activity log
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// LevelIcon returns the icon rendered in front of level, matched without
// regard to case
func LevelIcon(level string) string {
	switch strings.ToUpper(level) {
	case LevelInfo:
		return "ℹ️"
	case LevelWarn:
		return "⚠️"
	default:
		return "✅"
	}
}

// String formats the entry as a markdown list item. The message is folded
// onto a single line.
func (e LogEntry) String() string {
	level := e.Level
	if level == "" {
		level = LevelInfo
	}
	msg := newlines.Replace(strings.TrimSpace(e.Message))
	return fmt.Sprintf("- `%s` %s **%s**: %s", e.Time.Format(TimestampLayout), LevelIcon(level), level, msg)
}
