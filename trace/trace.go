// Package trace is the reference hal.Sink implementation: a mutex-serialized
// console writer backed by logrus, standing in for the out-of-scope
// snprintf-style formatter and raw-vprintf hook described in spec.md §4.F.
// Nothing here reimplements a format string parser; the point of this
// package is to give the kernel's trace path, when installed as its Sink, a
// concrete, library-backed writer instead of fmt.Println scattered through kernel code.
package trace

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is a process-wide, mutex-serialized wrapper around a *logrus.Logger,
// usable as a kernel's hal.Sink (kernel.Config.Sink) and so as its
// assertion/fault log target. It is not installed by default: a Config with
// no Sink discards output.
type Logger struct {
	mu  sync.Mutex
	log *logrus.Logger
}

// New wraps log as a trace sink. A nil log gets a sane default (text
// formatter, info level) so callers need not configure logrus themselves.
func New(log *logrus.Logger) *Logger {
	if log == nil {
		log = logrus.New()
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &Logger{log: log}
}

// WriteRaw implements hal.Sink by emitting p as a single info-level line.
func (l *Logger) WriteRaw(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Info(string(p))
	return len(p), nil
}

// Fields logs a structured assertion/fault record: thread ID, priority, and
// tick where known, matching the field-based style logrus encourages
// instead of building ad hoc format strings.
func (l *Logger) Fields(level logrus.Level, msg string, fields logrus.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.WithFields(fields).Log(level, msg)
}
