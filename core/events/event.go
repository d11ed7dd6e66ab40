package events

import "sync"

// Record is the attribute form of an emitted event, as surfaced over RPC.
type Record struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
	Record() *Record
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Log is an Emitter that retains the most recent records in memory so the RPC
// layer can serve them. It keeps at most Capacity records, dropping the
// oldest first.
type Log struct {
	mu       sync.Mutex
	capacity int
	records  []*Record
}

// DefaultLogCapacity bounds the in-memory event log when no explicit capacity
// is configured.
const DefaultLogCapacity = 1024

// NewLog creates an event log retaining up to capacity records.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{capacity: capacity}
}

// Emit implements the Emitter interface.
func (l *Log) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	record := evt.Record()
	if record == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	if overflow := len(l.records) - l.capacity; overflow > 0 {
		l.records = l.records[overflow:]
	}
}

// Latest returns up to limit records, newest last. A non-positive limit
// returns everything retained.
func (l *Log) Latest(limit int) []*Record {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if limit > 0 && len(l.records) > limit {
		start = len(l.records) - limit
	}
	out := make([]*Record, len(l.records)-start)
	copy(out, l.records[start:])
	return out
}

// Multi fans a single Emit out to several emitters.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
