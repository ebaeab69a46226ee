package orchestration

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nolavoice/nola-core/core/events"
)

// TurnLatencies holds the stage boundaries of one turn. Zero times mean the
// stage was never reached (an interrupted turn may never start playback).
type TurnLatencies struct {
	TurnID          int64
	UtteranceAt     time.Time
	StartedAt       time.Time
	FirstChunkAt    time.Time
	PlaybackStartAt time.Time
	EndedAt         time.Time
}

// TimeToFirstChunk is the delay from the triggering utterance boundary to the
// first speakable chunk being cut.
func (l TurnLatencies) TimeToFirstChunk() time.Duration {
	return stageDelta(l.UtteranceAt, l.FirstChunkAt)
}

// TimeToPlayback is the delay from the triggering utterance boundary to the
// first chunk starting to sound.
func (l TurnLatencies) TimeToPlayback() time.Duration {
	return stageDelta(l.UtteranceAt, l.PlaybackStartAt)
}

// TurnDuration is the full span from the triggering utterance to
// finalization.
func (l TurnLatencies) TurnDuration() time.Duration {
	return stageDelta(l.UtteranceAt, l.EndedAt)
}

func stageDelta(from, to time.Time) time.Duration {
	if from.IsZero() || to.IsZero() {
		return 0
	}
	return to.Sub(from)
}

// Status is a point-in-time snapshot of the engine for presentation layers.
// The core never reads it back; it only describes.
type Status struct {
	IsResponding    bool
	IsPlaying       bool
	IsListening     bool
	TurnID          int64
	AccumulatedText string
	TotalTurns      int
	Interrupted     int
	Errored         int
	IdleFor         time.Duration
	LastLatencies   TurnLatencies
}

// statusTracker folds orchestration events into per-turn stage stamps and
// running totals. It observes the same event stream handed to external
// handlers, so presentation state can never disagree with what was emitted.
type statusTracker struct {
	mu sync.Mutex

	listening   bool
	totalTurns  int
	interrupted int
	errored     int

	current       TurnLatencies
	last          TurnLatencies
	lastTurnEnded time.Time
	startedAt     time.Time

	turnCounter    metric.Int64Counter
	firstChunkHist metric.Float64Histogram
	playbackHist   metric.Float64Histogram
}

func newStatusTracker() *statusTracker {
	tracker := &statusTracker{startedAt: time.Now()}

	var err error
	if tracker.turnCounter, err = meter.Int64Counter("conversation.turns",
		metric.WithDescription("Finalized turns by end reason"),
	); err != nil {
		logger.Warn("failed to create turn counter", "error", err)
	}
	if tracker.firstChunkHist, err = meter.Float64Histogram("conversation.time_to_first_chunk",
		metric.WithDescription("Utterance boundary to first speakable chunk"),
		metric.WithUnit("s"),
	); err != nil {
		logger.Warn("failed to create first chunk histogram", "error", err)
	}
	if tracker.playbackHist, err = meter.Float64Histogram("conversation.time_to_playback",
		metric.WithDescription("Utterance boundary to first sounding chunk"),
		metric.WithUnit("s"),
	); err != nil {
		logger.Warn("failed to create playback histogram", "error", err)
	}

	return tracker
}

// Observe folds one orchestration event into the tracker. It is registered
// as the first event handler so stage stamps are taken as close to the
// boundary as possible.
func (t *statusTracker) Observe(event events.Event) {
	if t == nil || event == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch typed := event.(type) {
	case events.UserSpeechStarted:
		t.listening = true
	case events.UserSpeechEnded:
		t.listening = false
	case events.UserUtteranceFinal:
		// The stamp survives into the turn that this utterance triggers.
		t.current = TurnLatencies{UtteranceAt: typed.EndTime}
	case events.TurnStarted:
		t.current.TurnID = typed.TurnID
		t.current.StartedAt = typed.Timestamp()
	case events.AssistantResponseChunk:
		if typed.Sequence == 1 {
			t.current.FirstChunkAt = typed.Timestamp()
			t.record(t.firstChunkHist, t.current.UtteranceAt, typed.Timestamp())
		}
	case events.AssistantPlaybackStarted:
		t.current.PlaybackStartAt = typed.Timestamp()
		t.record(t.playbackHist, t.current.UtteranceAt, typed.Timestamp())
	case events.TurnCompleted:
		t.turnEndedLocked(typed.TurnID, EndReasonCompleted, typed.Timestamp())
	case events.TurnInterrupted:
		t.interrupted++
		t.turnEndedLocked(typed.TurnID, EndReasonInterrupted, typed.Timestamp())
	case events.TurnFailed:
		t.errored++
		t.turnEndedLocked(typed.TurnID, EndReasonErrored, typed.Timestamp())
	}
}

func (t *statusTracker) turnEndedLocked(turnID int64, reason EndReason, at time.Time) {
	t.totalTurns++
	t.current.EndedAt = at
	if t.current.TurnID == 0 {
		t.current.TurnID = turnID
	}
	t.last = t.current
	t.current = TurnLatencies{}
	t.lastTurnEnded = at

	if t.turnCounter != nil {
		t.turnCounter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("turn.end_reason", string(reason))))
	}
}

func (t *statusTracker) record(hist metric.Float64Histogram, from, to time.Time) {
	if hist == nil || from.IsZero() || to.IsZero() {
		return
	}
	hist.Record(context.Background(), to.Sub(from).Seconds())
}

// IsListening reports whether user speech activity is currently detected.
func (t *statusTracker) IsListening() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// IdleFor reports how long the engine has been without a finalized turn.
// It reads zero while a turn is in flight.
func (t *statusTracker) IdleFor(responding bool) time.Duration {
	if t == nil || responding {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	base := t.lastTurnEnded
	if base.IsZero() {
		base = t.startedAt
	}
	return time.Since(base)
}

// Snapshot fills the counter and latency portion of a Status. The caller
// layers the live pipeline state on top.
func (t *statusTracker) Snapshot() Status {
	if t == nil {
		return Status{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		IsListening:   t.listening,
		TotalTurns:    t.totalTurns,
		Interrupted:   t.interrupted,
		Errored:       t.errored,
		LastLatencies: t.last,
	}
}
