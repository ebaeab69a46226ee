package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrPlaybackWrongTurn  = errors.New("playback rejected: chunk belongs to another turn")
	ErrPlaybackOutOfOrder = errors.New("playback rejected: chunk sequence out of order")
	ErrPlaybackStopped    = errors.New("playback rejected: sequencer already stopped")
)

// ChunkPlayer turns one chunk of response text into audible output. Play
// blocks until the chunk has finished sounding or the context is cancelled.
type ChunkPlayer interface {
	Play(ctx context.Context, chunk Chunk) error
}

// playbackSequencer plays one turn's chunks strictly in sequence order. A
// chunk is accepted only if it belongs to the bound turn and extends the
// accepted sequence by exactly one; nothing is ever reordered. Chunks that
// arrive faster than playback queue up. Stop halts the in-flight chunk and
// discards the queue immediately.
type playbackSequencer struct {
	turnID int64
	player ChunkPlayer
	queue  *chunkQueue

	onChunkStarted func(Chunk)
	onChunkPlayed  func(Chunk)

	mu           sync.Mutex
	lastAccepted int
	paused       bool

	playing atomic.Bool
	stopped atomic.Bool

	stopSignal   chan struct{}
	updateSignal chan struct{}
}

func newPlaybackSequencer(turnID int64, player ChunkPlayer, onChunkStarted, onChunkPlayed func(Chunk)) *playbackSequencer {
	return &playbackSequencer{
		turnID:         turnID,
		player:         player,
		queue:          newChunkQueue(),
		onChunkStarted: onChunkStarted,
		onChunkPlayed:  onChunkPlayed,
		stopSignal:     make(chan struct{}),
		updateSignal:   make(chan struct{}, 1),
	}
}

// Enqueue accepts the next chunk for playback. Sequences start at 1 and must
// arrive contiguously; a chunk from another turn, a gap, or a replay is
// rejected rather than reordered.
func (s *playbackSequencer) Enqueue(chunk Chunk) error {
	if s == nil || s.stopped.Load() {
		return ErrPlaybackStopped
	}

	s.mu.Lock()
	if chunk.TurnID != s.turnID {
		s.mu.Unlock()
		return fmt.Errorf("%w: got turn %d while playing turn %d", ErrPlaybackWrongTurn, chunk.TurnID, s.turnID)
	}
	if chunk.Sequence != s.lastAccepted+1 {
		s.mu.Unlock()
		return fmt.Errorf("%w: got sequence %d, expected %d", ErrPlaybackOutOfOrder, chunk.Sequence, s.lastAccepted+1)
	}
	s.lastAccepted++
	s.mu.Unlock()

	s.queue.Push(chunk)
	return nil
}

// Complete marks that no further chunks will arrive for this turn. Run drains
// what is queued and then returns.
func (s *playbackSequencer) Complete() {
	if s == nil {
		return
	}
	s.queue.Complete()
}

// Run plays queued chunks one at a time until the queue completes, the
// sequencer stops, or a chunk fails to play. The next chunk never starts
// before the previous one has finished sounding.
func (s *playbackSequencer) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.stopSignal:
			cancel()
			s.queue.Clear()
		case <-ctx.Done():
			s.queue.Clear()
		case <-done:
		}
	}()

	var playErr error
	s.queue.Chunks(func(chunk Chunk) bool {
		if ok := s.waitIfPaused(); !ok {
			return false
		}

		s.playing.Store(true)
		if s.onChunkStarted != nil {
			s.onChunkStarted(chunk)
		}
		err := s.play(ctx, chunk)
		s.playing.Store(false)

		if err != nil {
			if s.stopped.Load() || ctx.Err() != nil {
				return false
			}
			playErr = fmt.Errorf("chunk %d playback failed: %w", chunk.Sequence, err)
			return false
		}
		if s.stopped.Load() {
			return false
		}
		if s.onChunkPlayed != nil {
			s.onChunkPlayed(chunk)
		}
		return true
	})

	return playErr
}

func (s *playbackSequencer) play(ctx context.Context, chunk Chunk) error {
	if s.player == nil {
		return nil
	}
	return s.player.Play(ctx, chunk)
}

func (s *playbackSequencer) waitIfPaused() bool {
	for {
		s.mu.Lock()
		paused := s.paused
		s.mu.Unlock()

		if s.stopped.Load() {
			return false
		}
		if !paused {
			return true
		}

		select {
		case <-s.updateSignal:
		case <-s.stopSignal:
			return false
		}
	}
}

// Stop halts the in-flight chunk and discards everything still queued. It is
// idempotent and takes effect immediately; IsPlaying reads false from the
// moment Stop returns.
func (s *playbackSequencer) Stop() {
	if s == nil || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	s.queue.Clear()
	close(s.stopSignal)
}

// IsPlaying reports whether a chunk is audibly playing right now.
func (s *playbackSequencer) IsPlaying() bool {
	if s == nil {
		return false
	}
	return s.playing.Load() && !s.stopped.Load()
}

func (s *playbackSequencer) IsStopped() bool {
	if s == nil {
		return false
	}
	return s.stopped.Load()
}

// Pause holds back the next chunk; the in-flight chunk finishes sounding.
func (s *playbackSequencer) Pause() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *playbackSequencer) Resume() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.signalUpdate()
}

func (s *playbackSequencer) IsPaused() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Drained reports whether every accepted chunk has been consumed by playback.
func (s *playbackSequencer) Drained() bool {
	if s == nil {
		return true
	}
	return s.queue.Drained()
}

func (s *playbackSequencer) signalUpdate() {
	select {
	case s.updateSignal <- struct{}{}:
	default:
	}
}
