package logging

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one message recorded by CaptureLogger.
type Entry struct {
	Level   string
	Message string
	Args    []any
}

// String renders the entry as "level message k=v ...".
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Level)
	b.WriteString(" ")
	b.WriteString(e.Message)
	for i := 0; i+1 < len(e.Args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.Args[i], e.Args[i+1])
	}
	return b.String()
}

// CaptureLogger records entries for assertions in tests.
type CaptureLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *CaptureLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Message: msg, Args: append([]any(nil), args...)})
}

func (l *CaptureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *CaptureLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *CaptureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *CaptureLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

// Entries returns a copy of everything recorded so far.
func (l *CaptureLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Level returns the entries recorded at level.
func (l *CaptureLogger) Level(level string) []Entry {
	var out []Entry
	for _, entry := range l.Entries() {
		if entry.Level == level {
			out = append(out, entry)
		}
	}
	return out
}

// Contains reports whether any entry at level renders with substr.
func (l *CaptureLogger) Contains(level, substr string) bool {
	for _, entry := range l.Level(level) {
		if strings.Contains(entry.String(), substr) {
			return true
		}
	}
	return false
}

// Reset drops all recorded entries.
func (l *CaptureLogger) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
