// Package memory holds the append-only conversation ledger. The ledger is
// the single source of truth for what the user actually heard: one committed
// record per turn and role, no more, no less.
package memory

import (
	"strings"
	"sync"
	"time"
)

// Role describes who a ledger record belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Tag annotates how a record's text came to be final.
type Tag string

const (
	// TagNone marks a record whose turn ran to natural completion.
	TagNone Tag = "none"
	// TagInterrupted marks a record cut short by a barge-in. Its text is the
	// partial response accumulated up to cancellation.
	TagInterrupted Tag = "interrupted"
)

// Record is one committed ledger entry.
type Record struct {
	TurnID      int64     `json:"turn_id"`
	Role        Role      `json:"role"`
	Text        string    `json:"text"`
	Tag         Tag       `json:"tag"`
	CommittedAt time.Time `json:"committed_at"`
}

type recordKey struct {
	turnID int64
	role   Role
}

// Ledger is an append-only conversation record. Commit is the single atomic
// check that enforces at-most-one record per turn and role, so racing
// finalization paths resolve here rather than by best-effort flags.
type Ledger struct {
	mu         sync.Mutex
	records    []Record
	index      map[recordKey]struct{}
	maxRecords int
	onCommit   func(Record)
}

type LedgerOption func(*Ledger)

// WithCommitHook registers a callback invoked once for every record that
// enters the ledger, after the commit is durable in memory. Duplicate and
// empty commits never reach the hook.
func WithCommitHook(hook func(Record)) LedgerOption {
	return func(l *Ledger) {
		l.onCommit = hook
	}
}

// WithRecords seeds the ledger with previously committed records, preserving
// their order. Used to resume a conversation from a persisted transcript.
func WithRecords(records []Record) LedgerOption {
	return func(l *Ledger) {
		l.restore(records)
	}
}

// WithMaxRecords caps how many records the ledger retains. Once the cap is
// exceeded the oldest records are dropped; trimmed history is forgotten
// entirely, including its idempotency keys. Zero means unbounded.
func WithMaxRecords(count int) LedgerOption {
	return func(l *Ledger) {
		l.maxRecords = count
		l.trimLocked()
	}
}

// NewLedger creates an empty conversation ledger.
func NewLedger(opts ...LedgerOption) *Ledger {
	ledger := &Ledger{
		index: map[recordKey]struct{}{},
	}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger
}

// Restore merges previously committed records into the ledger, preserving
// their order and skipping duplicates. Restored records do not fire the
// commit hook; they were already durable when first committed.
func (l *Ledger) Restore(records ...Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restore(records)
}

func (l *Ledger) restore(records []Record) {
	for _, record := range records {
		key := recordKey{turnID: record.TurnID, role: record.Role}
		if _, exists := l.index[key]; exists {
			continue
		}
		l.index[key] = struct{}{}
		l.records = append(l.records, record)
	}
	l.trimLocked()
}

// trimLocked drops the oldest records past the configured cap, newest kept.
func (l *Ledger) trimLocked() {
	if l.maxRecords <= 0 || len(l.records) <= l.maxRecords {
		return
	}
	drop := len(l.records) - l.maxRecords
	for _, record := range l.records[:drop] {
		delete(l.index, recordKey{turnID: record.TurnID, role: record.Role})
	}
	l.records = append(l.records[:0], l.records[drop:]...)
}

// Commit appends a record unless one already exists for the turn and role.
// It reports whether the record was appended; a duplicate commit is a no-op,
// not an error. Empty or whitespace-only text is never recorded.
func (l *Ledger) Commit(turnID int64, role Role, text string, tag Tag) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	record := Record{
		TurnID:      turnID,
		Role:        role,
		Text:        text,
		Tag:         tag,
		CommittedAt: time.Now(),
	}

	l.mu.Lock()
	key := recordKey{turnID: turnID, role: role}
	if _, exists := l.index[key]; exists {
		l.mu.Unlock()
		return false
	}
	l.index[key] = struct{}{}
	l.records = append(l.records, record)
	l.trimLocked()
	hook := l.onCommit
	l.mu.Unlock()

	if hook != nil {
		hook(record)
	}
	return true
}

// Has reports whether a record exists for the turn and role.
func (l *Ledger) Has(turnID int64, role Role) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, exists := l.index[recordKey{turnID: turnID, role: role}]
	return exists
}

// Records returns a copy of the committed records in turn order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	records := make([]Record, len(l.records))
	copy(records, l.records)
	return records
}

// Since returns the records committed at or after the given time, in turn
// order.
func (l *Ledger) Since(t time.Time) []Record {
	var matches []Record
	for _, record := range l.Records() {
		if !record.CommittedAt.Before(t) {
			matches = append(matches, record)
		}
	}
	return matches
}

// Clear forgets every committed record, including the idempotency index. The
// ledger is usable again immediately.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.index = map[recordKey]struct{}{}
}

// Len returns the number of committed records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
