// Package logger builds the structured loggers used across the server and
// analysis packages.
package logger

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the timestamp layout used by the JSON formatter.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// New creates a JSON logger writing to w at the given level.
//
// Recognized levels are "debug", "info", "warn" and "error"; anything else
// falls back to info.
func New(level string, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(ParseLevel(level))
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: TimestampFormat,
	})
	return l
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything.
//
// Components that accept an injected logger use it as their default, so
// diagnostics are always emitted and the caller decides whether to surface them.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
