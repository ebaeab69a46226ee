package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPlaybackSequencerPlaysChunksInOrder(t *testing.T) {
	player := &orderedPlayer{}
	sequencer := newPlaybackSequencer(1, player, nil, nil)

	for i := 1; i <= 3; i++ {
		if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: i, Text: "chunk"}); err != nil {
			t.Fatalf("expected chunk %d to be accepted, got %v", i, err)
		}
	}
	sequencer.Complete()

	if err := sequencer.Run(context.Background()); err != nil {
		t.Fatalf("expected clean playback run, got %v", err)
	}

	if got := player.playedCount(); got != 3 {
		t.Fatalf("expected three chunks played, got %d", got)
	}
	for i := range 3 {
		if got := player.playedAt(i).Sequence; got != i+1 {
			t.Fatalf("expected position %d to play sequence %d, got %d", i, i+1, got)
		}
	}
}

func TestPlaybackSequencerRejectsOutOfOrderChunks(t *testing.T) {
	sequencer := newPlaybackSequencer(1, &orderedPlayer{}, nil, nil)

	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 2, Text: "early"}); !errors.Is(err, ErrPlaybackOutOfOrder) {
		t.Fatalf("expected sequence 2 before 1 to be rejected, got %v", err)
	}
	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 1, Text: "first"}); err != nil {
		t.Fatalf("expected sequence 1 to be accepted, got %v", err)
	}
	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 3, Text: "gap"}); !errors.Is(err, ErrPlaybackOutOfOrder) {
		t.Fatalf("expected a sequence gap to be rejected, got %v", err)
	}
	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 1, Text: "replay"}); !errors.Is(err, ErrPlaybackOutOfOrder) {
		t.Fatalf("expected a replayed sequence to be rejected, got %v", err)
	}
}

func TestPlaybackSequencerRejectsChunksFromAnotherTurn(t *testing.T) {
	sequencer := newPlaybackSequencer(5, &orderedPlayer{}, nil, nil)

	if err := sequencer.Enqueue(Chunk{TurnID: 6, Sequence: 1, Text: "stray"}); !errors.Is(err, ErrPlaybackWrongTurn) {
		t.Fatalf("expected a chunk from another turn to be rejected, got %v", err)
	}
}

func TestPlaybackSequencerNeverOverlapsChunks(t *testing.T) {
	player := &orderedPlayer{playDelay: 20 * time.Millisecond}
	sequencer := newPlaybackSequencer(1, player, nil, nil)

	for i := 1; i <= 3; i++ {
		if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: i, Text: "chunk"}); err != nil {
			t.Fatalf("expected chunk %d to queue while playback lags, got %v", i, err)
		}
	}
	sequencer.Complete()

	if err := sequencer.Run(context.Background()); err != nil {
		t.Fatalf("expected clean playback run, got %v", err)
	}

	if player.overlapped.Load() {
		t.Fatalf("expected no chunk to start before the previous one finished")
	}
	if got := player.playedCount(); got != 3 {
		t.Fatalf("expected all queued chunks to play, got %d", got)
	}
}

func TestPlaybackSequencerStopHaltsCurrentAndDiscardsQueued(t *testing.T) {
	player := &orderedPlayer{gate: make(chan struct{}), gateOn: 1}
	sequencer := newPlaybackSequencer(1, player, nil, nil)

	for i := 1; i <= 3; i++ {
		if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: i, Text: "chunk"}); err != nil {
			t.Fatalf("expected chunk %d to be accepted, got %v", i, err)
		}
	}

	runDone := make(chan error, 1)
	go func() { runDone <- sequencer.Run(context.Background()) }()

	waitForCondition(t, time.Second, "the first chunk to start playing", func() bool {
		return sequencer.IsPlaying()
	})

	sequencer.Stop()
	if sequencer.IsPlaying() {
		t.Fatalf("expected IsPlaying to read false as soon as Stop returns")
	}

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("expected stopped run to return without error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected run to return promptly after stop")
	}

	if got := player.playedCount(); got != 0 {
		t.Fatalf("expected the halted chunk not to finish, got %d played", got)
	}
	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 4, Text: "late"}); !errors.Is(err, ErrPlaybackStopped) {
		t.Fatalf("expected enqueue after stop to be rejected, got %v", err)
	}
	if !sequencer.Drained() {
		t.Fatalf("expected discarded queue to read as drained")
	}
}

func TestPlaybackSequencerStopIsIdempotent(t *testing.T) {
	sequencer := newPlaybackSequencer(1, &orderedPlayer{}, nil, nil)

	sequencer.Stop()
	sequencer.Stop()
	sequencer.Stop()

	if !sequencer.IsStopped() {
		t.Fatalf("expected sequencer to stay stopped")
	}
	if err := sequencer.Run(context.Background()); err != nil {
		t.Fatalf("expected run after stop to return immediately, got %v", err)
	}
}

func TestPlaybackSequencerIsPlayingOnlyWhileChunkSounds(t *testing.T) {
	player := &orderedPlayer{gate: make(chan struct{}), gateOn: 1}
	sequencer := newPlaybackSequencer(1, player, nil, nil)

	if sequencer.IsPlaying() {
		t.Fatalf("expected IsPlaying to be false before any chunk")
	}

	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 1, Text: "only"}); err != nil {
		t.Fatalf("expected chunk to be accepted, got %v", err)
	}
	sequencer.Complete()

	runDone := make(chan error, 1)
	go func() { runDone <- sequencer.Run(context.Background()) }()

	waitForCondition(t, time.Second, "playback to start", func() bool {
		return sequencer.IsPlaying()
	})

	close(player.gate)

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("expected clean playback run, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected run to finish after the chunk played")
	}
	if sequencer.IsPlaying() {
		t.Fatalf("expected IsPlaying to be false after the queue drained")
	}
}

func TestPlaybackSequencerSurfacesPlayerFailure(t *testing.T) {
	scriptedErr := errors.New("scripted synthesis failure")
	player := &orderedPlayer{errOn: 2, err: scriptedErr}
	sequencer := newPlaybackSequencer(1, player, nil, nil)

	for i := 1; i <= 2; i++ {
		if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: i, Text: "chunk"}); err != nil {
			t.Fatalf("expected chunk %d to be accepted, got %v", i, err)
		}
	}
	sequencer.Complete()

	err := sequencer.Run(context.Background())
	if !errors.Is(err, scriptedErr) {
		t.Fatalf("expected the player failure to surface, got %v", err)
	}
	if got := player.playedCount(); got != 1 {
		t.Fatalf("expected only the first chunk to finish, got %d", got)
	}
}

func TestPlaybackSequencerPauseHoldsNextChunk(t *testing.T) {
	player := &orderedPlayer{}
	sequencer := newPlaybackSequencer(1, player, nil, nil)
	sequencer.Pause()

	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 1, Text: "held"}); err != nil {
		t.Fatalf("expected chunk to queue while paused, got %v", err)
	}
	sequencer.Complete()

	runDone := make(chan error, 1)
	go func() { runDone <- sequencer.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	if got := player.playedCount(); got != 0 {
		t.Fatalf("expected no chunk to play while paused, got %d", got)
	}

	sequencer.Resume()

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("expected clean playback run, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected run to finish after resume")
	}
	if got := player.playedCount(); got != 1 {
		t.Fatalf("expected the held chunk to play after resume, got %d", got)
	}
}

func TestPlaybackSequencerContextCancelHaltsPlayback(t *testing.T) {
	player := &orderedPlayer{gate: make(chan struct{}), gateOn: 1}
	sequencer := newPlaybackSequencer(1, player, nil, nil)

	if err := sequencer.Enqueue(Chunk{TurnID: 1, Sequence: 1, Text: "chunk"}); err != nil {
		t.Fatalf("expected chunk to be accepted, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- sequencer.Run(ctx) }()

	waitForCondition(t, time.Second, "playback to start", func() bool {
		return sequencer.IsPlaying()
	})

	cancel()

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("expected cancelled run to return without error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected run to return promptly after context cancellation")
	}
	if got := player.playedCount(); got != 0 {
		t.Fatalf("expected the halted chunk not to finish, got %d played", got)
	}
}

// orderedPlayer pretends to sound chunks. It can delay, gate on a specific
// sequence until released, or fail a specific sequence.
type orderedPlayer struct {
	playDelay time.Duration
	gate      chan struct{}
	gateOn    int
	errOn     int
	err       error

	mu         sync.Mutex
	played     []Chunk
	inFlight   atomic.Int32
	overlapped atomic.Bool
}

func (p *orderedPlayer) Play(ctx context.Context, chunk Chunk) error {
	if p.inFlight.Add(1) > 1 {
		p.overlapped.Store(true)
	}
	defer p.inFlight.Add(-1)

	if p.gate != nil && chunk.Sequence == p.gateOn {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.playDelay > 0 {
		select {
		case <-time.After(p.playDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.errOn != 0 && chunk.Sequence == p.errOn {
		return p.err
	}

	p.mu.Lock()
	p.played = append(p.played, chunk)
	p.mu.Unlock()
	return nil
}

func (p *orderedPlayer) playedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

func (p *orderedPlayer) playedAt(i int) Chunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played[i]
}
