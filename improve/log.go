package improve

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Entry is one audit record of the self-improvement loop.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	ActionType string         `json:"action_type"`
	Details    map[string]any `json:"details,omitempty"`
}

// LogOptions configures a Log.
type LogOptions struct {
	// Writer, when set, receives each entry as one JSON line. Writes happen
	// under the log mutex so lines never interleave.
	Writer io.Writer
}

// WithWriter directs the log to persist entries as JSONL to w.
func WithWriter(w io.Writer) func(o *LogOptions) {
	return func(o *LogOptions) { o.Writer = w }
}

// Log is the append-only audit sink for the self-improvement loop. Entries
// are kept in memory for inspection and optionally streamed to a writer as
// JSON lines. Each Record call is atomic: the entry is either fully persisted
// and visible, or not at all.
type Log struct {
	mu      sync.Mutex
	w       io.Writer
	entries []Entry
	now     func() time.Time
}

// NewLog creates an audit log. Without WithWriter entries are held in memory
// only.
func NewLog(optFns ...func(o *LogOptions)) *Log {
	var opts LogOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Log{w: opts.Writer, now: time.Now}
}

// Record appends one entry. When a writer is configured the JSON line is
// written before the entry becomes visible in memory; a write failure leaves
// the log unchanged.
func (l *Log) Record(actionType string, details map[string]any) error {
	entry := Entry{
		Timestamp:  l.now().UTC(),
		ActionType: actionType,
		Details:    details,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w != nil {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("improvement log: marshal entry: %w", err)
		}
		if _, err := l.w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("improvement log: write entry: %w", err)
		}
	}

	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of all recorded entries in order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
