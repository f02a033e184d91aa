package contention

import (
	"fmt"
	"sync"
)

const logMsgEventLogLine = "event log"

// EventLog is an append-only sequence of human-readable trace lines, safe for concurrent writers.
// Concurrent appends are serialized by one short critical section; that order is the log order.
// The log survives runs and is only emptied by Clear.
type EventLog struct {
	mu     sync.Mutex
	lines  []string
	mirror Logger
}

// EventLogOption defines a functional option for configuring EventLog.
type EventLogOption func(*EventLog) error

// WithMirror additionally forwards every appended line to logger at info level.
func WithMirror(logger Logger) EventLogOption {
	return func(l *EventLog) error {
		l.mirror = logger
		return nil
	}
}

// NewEventLog creates an empty EventLog.
func NewEventLog(options ...EventLogOption) (*EventLog, error) {
	l := &EventLog{lines: make([]string, 0)}

	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Append adds one line. The mirror sees lines in the same order as Snapshot.
func (l *EventLog) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, line)

	if l.mirror != nil {
		l.mirror.Info(logMsgEventLogLine, logAttrLine, line)
	}
}

// Appendf formats and adds one line.
func (l *EventLog) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// Snapshot returns a copy of all lines appended since the last Clear, in log order.
func (l *EventLog) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := make([]string, len(l.lines))
	copy(lines, l.lines)

	return lines
}

// Len returns the number of lines currently held.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.lines)
}

// Clear empties the log. It does not touch any pool or in-flight run.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = l.lines[:0:0]
}
