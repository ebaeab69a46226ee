package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

// NewBaseAt stamps the event with a caller-provided time instead of time.Now.
// Used for events whose meaningful time is a recognition or playback boundary
// rather than the moment of emission.
func NewBaseAt(kind Kind, at time.Time) Base {
	return Base{kind: kind, timestamp: at}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
