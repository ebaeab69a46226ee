package events

// KindMemoryRecordCommitted identifies a record entering the conversation ledger.
const KindMemoryRecordCommitted Kind = "memory.record_committed"

// MemoryRecordCommitted marks that a record entered the conversation ledger.
// At most one record is committed per turn and role, so receivers can treat
// this event as the durable boundary of what the user actually heard.
type MemoryRecordCommitted struct {
	Base
	TurnID int64
	Role   string
	Text   string
	Tag    string
}

// NewMemoryRecordCommitted creates a memory record committed event.
func NewMemoryRecordCommitted(turnID int64, role, text, tag string) MemoryRecordCommitted {
	return MemoryRecordCommitted{Base: NewBase(KindMemoryRecordCommitted), TurnID: turnID, Role: role, Text: text, Tag: tag}
}
