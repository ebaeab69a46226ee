package orchestration

import (
	"sync"
	"time"
)

// Utterance is a finalized unit of user speech produced by segmentation.
// Only finalized utterances drive turn-taking; interim recognition text never
// reaches the coordinator.
type Utterance struct {
	Speaker   string
	Text      string
	StartTime time.Time
	EndTime   time.Time
	IsFinal   bool
}

// RecognitionEvent is a single recognizer emission pushed into the Segmenter.
// A zero Timestamp is stamped with the arrival time.
type RecognitionEvent struct {
	Text        string
	IsFinalHint bool
	Timestamp   time.Time
}

// TurnState describes where a turn is in its lifecycle.
type TurnState string

const (
	// TurnStateResponding means generation or playback is in flight.
	TurnStateResponding TurnState = "responding"
	// TurnStateFinalizing means one finalization path has claimed the turn
	// and is committing its outcome.
	TurnStateFinalizing TurnState = "finalizing"
	// TurnStateEnded means the turn is finalized and archived.
	TurnStateEnded TurnState = "ended"
)

// EndReason describes how a turn ended.
type EndReason string

const (
	EndReasonCompleted   EndReason = "completed"
	EndReasonInterrupted EndReason = "interrupted"
	EndReasonErrored     EndReason = "errored"
)

// Chunk is a sentence-aligned slice of a response with its playback order.
// Sequence numbers start at 1 and are contiguous within a turn.
type Chunk struct {
	TurnID   int64
	Sequence int
	Text     string
	IsLast   bool
}

// Turn is a point-in-time snapshot of one assistant response, from triggering
// utterance to finalization.
type Turn struct {
	ID              int64
	Trigger         Utterance
	State           TurnState
	AccumulatedText string
	ChunkCursor     int
	StartedAt       time.Time
	EndedAt         time.Time
	EndReason       EndReason
	Err             error
}

// activeTurn is the live bookkeeping behind a Turn snapshot. State moves
// responding -> finalizing -> ended; claimFinalize is the only gate into
// finalizing, so exactly one path ever finalizes a turn.
type activeTurn struct {
	id        int64
	trigger   Utterance
	startedAt time.Time

	mu          sync.Mutex
	state       TurnState
	accumulated string
	chunkCursor int
	endedAt     time.Time
	endReason   EndReason
	err         error
}

func newActiveTurn(id int64, trigger Utterance) *activeTurn {
	return &activeTurn{
		id:        id,
		trigger:   trigger,
		startedAt: time.Now(),
		state:     TurnStateResponding,
	}
}

// claimFinalize attempts to move the turn from responding to finalizing and
// reports whether the caller won the claim. Whichever of the completion,
// barge-in, or error paths claims first owns the turn's single ledger commit;
// the losers must treat the turn as already settled.
func (t *activeTurn) claimFinalize(reason EndReason, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TurnStateResponding {
		return false
	}
	t.state = TurnStateFinalizing
	t.endReason = reason
	t.err = err
	return true
}

// settle records the final accumulated text and marks the turn ended. Only
// the claimFinalize winner calls it.
func (t *activeTurn) settle(accumulated string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accumulated = accumulated
	t.state = TurnStateEnded
	t.endedAt = time.Now()
}

// isResponding reports whether the turn is still open to finalization.
func (t *activeTurn) isResponding() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == TurnStateResponding
}

// advanceChunkCursor records that the chunk with the given sequence number
// finished playing. The cursor only moves forward.
func (t *activeTurn) advanceChunkCursor(sequence int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sequence > t.chunkCursor {
		t.chunkCursor = sequence
	}
}

// Snapshot freezes the turn's current state into an exported Turn value.
func (t *activeTurn) Snapshot() Turn {
	if t == nil {
		return Turn{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return Turn{
		ID:              t.id,
		Trigger:         t.trigger,
		State:           t.state,
		AccumulatedText: t.accumulated,
		ChunkCursor:     t.chunkCursor,
		StartedAt:       t.startedAt,
		EndedAt:         t.endedAt,
		EndReason:       t.endReason,
		Err:             t.err,
	}
}
