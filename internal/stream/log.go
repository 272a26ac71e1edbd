// Package stream owns the process-wide event log: every payload delivered
// by the channel adapter is parsed, de-duplicated and appended here, and
// per-pattern views are restartable filters over the same log.
package stream

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/matrixagents/patternview/pkg/types"
	"github.com/pkg/errors"
)

// Log is the append-only canonical event log. It grows for the life of
// the connection; pattern views never truncate it, they only filter it.
type Log struct {
	mu     sync.RWMutex
	events []types.Event
	seen   map[string]struct{}
	subs   map[int]func(types.Event)
	nextID int
}

func NewLog() *Log {
	return &Log{
		seen: make(map[string]struct{}),
		subs: make(map[int]func(types.Event)),
	}
}

// Ingest parses one raw payload and appends it to the log. Duplicate
// event ids are discarded silently; re-delivery is expected from the
// transport, not an error. A malformed payload is reported to the caller
// so it can be dropped and logged without disturbing later messages.
func (l *Log) Ingest(raw []byte) error {
	var ev types.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return errors.Wrap(err, "unparsable event payload")
	}
	if ev.PatternName == "" {
		return errors.New("event payload missing patternName")
	}
	if ev.EventType == "" {
		return errors.New("event payload missing eventType")
	}
	l.Append(ev)
	return nil
}

// Append records an already-parsed event. Events without an id (older
// payloads) are assigned one so dedup always has a key. Returns false
// when the event was a duplicate and dropped.
func (l *Log) Append(ev types.Event) bool {
	l.mu.Lock()
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if _, dup := l.seen[ev.EventID]; dup {
		l.mu.Unlock()
		return false
	}
	l.seen[ev.EventID] = struct{}{}
	l.events = append(l.events, ev)
	subs := make([]func(types.Event), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return true
}

// Len returns the number of events appended so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// EventsFrom returns a copy of the log suffix starting at index from, in
// arrival order. Callers use it as a cursor to consume the log
// incrementally without missing or re-reading entries.
func (l *Log) EventsFrom(from int) []types.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if from >= len(l.events) {
		return nil
	}
	out := make([]types.Event, len(l.events)-from)
	copy(out, l.events[from:])
	return out
}

// FilterByPattern returns, in arrival order, the events whose pattern
// name matches. Re-filtering the full log is valid at any time and
// reproduces the same subsequence given the same log, so a view may
// attach after a pattern's events have already arrived.
func (l *Log) FilterByPattern(name string) []types.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []types.Event
	for _, ev := range l.events {
		if ev.PatternName == name {
			out = append(out, ev)
		}
	}
	return out
}

// Subscribe registers fn to be called once per newly appended event, in
// append order. The returned cancel func removes the subscription.
func (l *Log) Subscribe(fn func(types.Event)) (cancel func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}
