package orchestration

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrActiveTurnMismatch = errors.New("turn archival failed: turn IDs do not match")
	ErrActiveTurnMissing  = errors.New("turn archival failed: no active turn")
)

// conversation tracks the turn currently being responded to and the archive
// of finalized turns. Turn IDs are assigned monotonically starting at 1, so
// archived turns read back in the order they happened.
type conversation struct {
	mu sync.RWMutex

	turns      []Turn
	activeTurn *activeTurn
	nextTurnID int64
}

func newConversation() conversation {
	return conversation{nextTurnID: 1}
}

// ConversationSnapshot is a point-in-time view of conversation state.
type ConversationSnapshot struct {
	History    []Turn
	ActiveTurn *Turn
}

func (c *conversation) Snapshot() ConversationSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]Turn, len(c.turns))
	copy(history, c.turns)

	var active *Turn
	if c.activeTurn != nil {
		snapshot := c.activeTurn.Snapshot()
		active = &snapshot
	}

	return ConversationSnapshot{History: history, ActiveTurn: active}
}

func (c *conversation) History() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]Turn, len(c.turns))
	copy(history, c.turns)
	return history
}

func (c *conversation) Active() *activeTurn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.activeTurn
}

func (c *conversation) CompletedTurns() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.turns)
}

// resumeAfterTurn advances the turn counter past an already-used ID. A
// session restored from a transcript must never hand out the IDs of restored
// records, or the ledger would treat every new commit as a duplicate.
func (c *conversation) resumeAfterTurn(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id >= c.nextTurnID {
		c.nextTurnID = id + 1
	}
}

// startTurn opens a new turn for the triggering utterance. Turns are
// processed one at a time; opening a second one is a caller bug.
func (c *conversation) startTurn(trigger Utterance) (*activeTurn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeTurn != nil {
		return nil, fmt.Errorf("active turn already set")
	}

	turn := newActiveTurn(c.nextTurnID, trigger)
	c.nextTurnID++
	c.activeTurn = turn
	return turn, nil
}

// finalizeTurn archives the finalized snapshot and clears the active slot.
// The snapshot is archived even when the bookkeeping disagrees, so no turn
// is ever lost from history.
func (c *conversation) finalizeTurn(finalized Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeTurn == nil {
		c.turns = append(c.turns, finalized)
		return ErrActiveTurnMissing
	}
	if c.activeTurn.id != finalized.ID {
		c.turns = append(c.turns, finalized)
		return ErrActiveTurnMismatch
	}

	c.turns = append(c.turns, finalized)
	c.activeTurn = nil
	return nil
}
