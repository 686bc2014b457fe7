package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields carries structured key/value pairs attached to a log line.
type Fields = logrus.Fields

var base = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}

// SetLevel changes the level of every logger created by this package.
func SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(parsed)
	return nil
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// LoggerV2 is a component-scoped structured logger.
type LoggerV2 struct {
	entry *logrus.Entry
}

// NewLoggerV2 creates a logger tagged with the given component name.
func NewLoggerV2(component string) *LoggerV2 {
	return &LoggerV2{entry: base.WithField("component", component)}
}

// WithFields returns a child logger that always carries fields.
func (l *LoggerV2) WithFields(fields Fields) *LoggerV2 {
	if l == nil {
		return nil
	}
	return &LoggerV2{entry: l.entry.WithFields(fields)}
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	withFields(l.entry, fields).Debug(msg)
}

func (l *LoggerV2) Info(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	withFields(l.entry, fields).Info(msg)
}

func (l *LoggerV2) Warn(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	withFields(l.entry, fields).Warn(msg)
}

func (l *LoggerV2) Error(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	withFields(l.entry, fields).Error(msg)
}

// Fatal logs and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) {
	entry := logrus.NewEntry(base)
	if l != nil {
		entry = l.entry
	}
	withFields(entry, fields).Fatal(msg)
}

// Info logs through the package logger.
func Info(msg string, fields ...Fields) {
	withFields(logrus.NewEntry(base), fields).Info(msg)
}

// Infof is the printf-style package logger.
// Deprecated: prefer a component logger with Fields.
func Infof(format string, args ...interface{}) {
	base.Infof(format, args...)
}

func withFields(entry *logrus.Entry, fields []Fields) *logrus.Entry {
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	return entry
}
