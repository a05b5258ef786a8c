// Package logging builds the leveled logger shared by hq components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New
type Options struct {
	Level string // debug, info, warn, error
	File  string // rotate into this file instead of writing to Output
	// Output is used when File is empty; defaults to stderr
	Output io.Writer
}

// ParseLevel maps a level name to a log.Level. An empty name is warn.
func ParseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.WarnLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.WarnLevel, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// New returns a logger and a closer for its output. File output is rotated
// by lumberjack and always carries timestamps.
func New(opts Options) (*log.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		logger := log.NewWithOptions(rotator, log.Options{
			Level:           lvl,
			Formatter:       log.LogfmtFormatter,
			ReportTimestamp: true,
			Prefix:          "hq",
		})
		return logger, rotator, nil
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger := log.NewWithOptions(out, log.Options{
		Level:     lvl,
		Formatter: log.TextFormatter,
		Prefix:    "hq",
	})
	return logger, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
