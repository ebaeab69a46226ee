package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nolavoice/nola-core/core/events"
	"github.com/nolavoice/nola-core/core/llms"
	"github.com/nolavoice/nola-core/core/memory"
	"go.opentelemetry.io/otel/codes"
)

// turnPipeline drives one turn end to end: it streams the model response,
// cuts it into chunks, and plays them in order. Whichever of its completion
// and error paths first claims the turn finalizes it; a barge-in claims the
// turn from outside and the pipeline then only unwinds.
type turnPipeline struct {
	ctxMu     sync.RWMutex
	ctx       context.Context
	runCancel context.CancelFunc

	turn      *activeTurn
	streamer  *responseStreamer
	sequencer *playbackSequencer
	ledger    *memory.Ledger

	instructions string
	emit         func(events.Event)
	onCancel     func()

	cancelled atomic.Bool
}

type turnPipelineConfig struct {
	llm           StreamingLLM
	player        ChunkPlayer
	ledger        *memory.Ledger
	instructions  string
	boundaryRunes string
	minChunkRunes int
	maxChunkRunes int
	stallTimeout  time.Duration
	emit          func(events.Event)
	onCancel      func()
}

func newTurnPipeline(turn *activeTurn, cfg turnPipelineConfig) *turnPipeline {
	p := &turnPipeline{
		turn:         turn,
		ledger:       cfg.ledger,
		instructions: cfg.instructions,
		emit:         cfg.emit,
		onCancel:     cfg.onCancel,
	}

	p.sequencer = newPlaybackSequencer(turn.id, cfg.player,
		func(chunk Chunk) {
			if chunk.Sequence == 1 {
				p.emitEvent(events.NewAssistantPlaybackStarted(turn.id))
			}
			p.emitEvent(events.NewAssistantPlaybackChunkStarted(turn.id, chunk.Sequence, chunk.Text))
		},
		func(chunk Chunk) {
			turn.advanceChunkCursor(chunk.Sequence)
			p.emitEvent(events.NewAssistantPlaybackChunkPlayed(turn.id, chunk.Sequence, chunk.Text))
		},
	)

	cutter := newChunkCutter(cfg.boundaryRunes, cfg.minChunkRunes, cfg.maxChunkRunes)
	p.streamer = newResponseStreamer(cfg.llm, turn.id, cutter, cfg.stallTimeout, func(chunk Chunk) {
		p.emitEvent(events.NewAssistantResponseChunk(turn.id, chunk.Sequence, chunk.Text, chunk.IsLast))
		if err := p.sequencer.Enqueue(chunk); err != nil {
			if errors.Is(err, ErrPlaybackStopped) {
				logger.Debug("dropping chunk cut after playback stopped", "turn_id", turn.id, "sequence", chunk.Sequence)
				return
			}
			logger.Warn("playback rejected chunk", "turn_id", turn.id, "sequence", chunk.Sequence, "error", err)
		}
	})
	p.streamer.onSegment = func(segment string) {
		p.emitEvent(events.NewAssistantResponseSegment(turn.id, segment))
	}

	return p
}

// Run processes the turn until generation and playback both settle, then
// finalizes it unless a barge-in already claimed it. It returns the turn
// snapshot for archiving.
func (p *turnPipeline) Run(ctx context.Context) (Turn, error) {
	if p == nil {
		return Turn{}, fmt.Errorf("turn pipeline is required")
	}
	if p.turn == nil {
		return Turn{}, fmt.Errorf("active turn is required")
	}

	p.ctxMu.Lock()
	p.ctx = ctx
	p.ctxMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.ctxMu.Lock()
	p.runCancel = cancel
	p.ctxMu.Unlock()

	var workerErr error
	workerErrMu := sync.Mutex{}
	addWorkerErr := func(err error) {
		if err == nil {
			return
		}
		workerErrMu.Lock()
		workerErr = errors.Join(workerErr, err)
		workerErrMu.Unlock()
	}

	run := func(name string, f func(context.Context) error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				addWorkerErr(fmt.Errorf("%s worker panicked: %v", name, recovered))
				cancel()
			}
		}()

		if err := f(ctx); err != nil {
			addWorkerErr(fmt.Errorf("%s worker failed: %w", name, err))
			cancel()
		}
	}

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		run("response generation", func(ctx context.Context) error {
			return p.generateResponse(ctx)
		})
	}()
	go func() {
		defer wg.Done()
		run("chunk playback", func(ctx context.Context) error {
			return p.playResponse(ctx)
		})
	}()

	wg.Wait()

	finaliseErr := func() (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("turn finalisation panicked: %v", recovered)
			}
		}()

		p.finalise(workerErr)
		return nil
	}()
	addWorkerErr(finaliseErr)

	if workerErr != nil {
		return p.turn.Snapshot(), fmt.Errorf("one or more turn processes failed: %w", workerErr)
	}

	return p.turn.Snapshot(), nil
}

func (p *turnPipeline) generateResponse(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "generate response")
	defer span.End()

	opts := []llms.PromptOption{}
	if p.instructions != "" {
		opts = append(opts, llms.WithInstructions(p.instructions))
	}
	if p.ledger != nil {
		if history := p.ledger.MessagesBefore(p.turn.id); len(history) > 0 {
			opts = append(opts, llms.WithMessages(history...))
		}
	}

	p.emitEvent(events.NewAssistantResponseStarted(p.turn.id))
	accumulated, err := p.streamer.Run(ctx, p.turn.trigger.Text, opts...)
	p.sequencer.Complete()
	if err != nil {
		err = fmt.Errorf("failed to generate response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !p.streamer.IsCancelled() {
		p.emitEvent(events.NewAssistantResponseFinal(p.turn.id, accumulated))
	}
	return nil
}

func (p *turnPipeline) playResponse(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "play response")
	defer span.End()

	if err := p.sequencer.Run(ctx); err != nil {
		err = fmt.Errorf("failed to play response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !p.sequencer.IsStopped() {
		p.emitEvent(events.NewAssistantPlaybackEnded(p.turn.id, p.streamer.AccumulatedText()))
	}
	return nil
}

// finalise settles the turn after the workers unwind. The completion and
// error paths claim here; a cancelled pipeline finds the turn already claimed
// by the barge-in path and leaves it untouched.
func (p *turnPipeline) finalise(workerErr error) {
	accumulated := p.streamer.AccumulatedText()

	if workerErr != nil {
		if p.turn.claimFinalize(EndReasonErrored, workerErr) {
			p.turn.settle(accumulated)
			// A failed turn still reaches memory: whatever accumulated before
			// the failure is committed like a natural completion.
			if p.ledger != nil {
				p.ledger.Commit(p.turn.id, memory.RoleAssistant, accumulated, memory.TagNone)
			}
			p.emitEvent(events.NewTurnFailed(p.turn.id, workerErr))
		}
		return
	}

	if p.IsCancelled() {
		return
	}

	if p.turn.claimFinalize(EndReasonCompleted, nil) {
		p.turn.settle(accumulated)
		if p.ledger != nil {
			p.ledger.Commit(p.turn.id, memory.RoleAssistant, accumulated, memory.TagNone)
		}
		p.emitEvent(events.NewTurnCompleted(p.turn.id, accumulated))
	}
}

// Cancel stops generation and playback so Run unwinds promptly. It does not
// finalize the turn; the caller that cancelled owns finalization.
func (p *turnPipeline) Cancel() {
	if p == nil || !p.cancelled.CompareAndSwap(false, true) {
		return
	}

	p.streamer.Cancel()
	p.sequencer.Stop()

	p.ctxMu.RLock()
	runCancel := p.runCancel
	p.ctxMu.RUnlock()
	if runCancel != nil {
		runCancel()
	}

	if p.onCancel != nil {
		p.onCancel()
	}
}

func (p *turnPipeline) IsCancelled() bool {
	if p == nil {
		return false
	}

	return p.cancelled.Load()
}

// StopSpeaking halts playback for the rest of the turn while letting
// generation run to completion.
func (p *turnPipeline) StopSpeaking() {
	if p == nil {
		return
	}

	p.sequencer.Stop()
	p.emitEvent(events.NewAssistantPlaybackStopped(p.turn.id))
}

func (p *turnPipeline) Pause() {
	if p == nil {
		return
	}

	p.sequencer.Pause()
}

func (p *turnPipeline) Unpause() {
	if p == nil {
		return
	}

	p.sequencer.Resume()
}

// IsStreaming reports whether the model stream is still being pulled.
func (p *turnPipeline) IsStreaming() bool {
	if p == nil {
		return false
	}

	return p.streamer.IsActive()
}

// IsPlaying reports whether a chunk is audibly playing.
func (p *turnPipeline) IsPlaying() bool {
	if p == nil {
		return false
	}

	return p.sequencer.IsPlaying()
}

// AccumulatedText returns the response text streamed so far for this turn.
func (p *turnPipeline) AccumulatedText() string {
	if p == nil {
		return ""
	}

	return p.streamer.AccumulatedText()
}

func (p *turnPipeline) emitEvent(event events.Event) {
	if p == nil || p.emit == nil {
		return
	}

	p.emit(event)
}

func (p *turnPipeline) Ctx() context.Context {
	if p == nil {
		return nil
	}

	p.ctxMu.RLock()
	defer p.ctxMu.RUnlock()

	return p.ctx
}
