package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nolavoice/nola-core/core/audio"
	"github.com/nolavoice/nola-core/core/events"
	"github.com/nolavoice/nola-core/core/texttospeech"
)

// speechPlayer plays one turn's chunks through a synthesis session and the
// audio output device. Play blocks until the chunk has actually sounded: the
// synthesizer confirms generation up to a mark, the mark is re-registered
// against the output buffer, and the device confirms it was played. That
// confirmation chain is what keeps chunk-played events honest.
type speechPlayer struct {
	turnID      int64
	synthesizer SpeechSynthesizer
	output      AudioOutput
	encoding    audio.EncodingInfo
	emit        func(events.Event)

	generator texttospeech.SpeechGenerator
	initOnce  sync.Once
	initErr   error

	markPlayed chan struct{}
	errs       chan error

	frames atomic.Int64
	closed atomic.Bool
}

func newSpeechPlayer(turnID int64, synthesizer SpeechSynthesizer, output AudioOutput, encoding audio.EncodingInfo, emit func(events.Event)) *speechPlayer {
	if emit == nil {
		emit = func(events.Event) {}
	}
	return &speechPlayer{
		turnID:      turnID,
		synthesizer: synthesizer,
		output:      output,
		encoding:    encoding,
		emit:        emit,
		markPlayed:  make(chan struct{}, 1),
		errs:        make(chan error, 1),
	}
}

// init opens the synthesis session lazily, on the first chunk. A turn that is
// interrupted before its first chunk never opens a websocket.
func (p *speechPlayer) init(ctx context.Context) error {
	p.initOnce.Do(func() {
		generator, err := p.synthesizer.NewSpeechGenerator(ctx,
			texttospeech.WithSpeechAudioCallback(p.handleAudio),
			texttospeech.WithSpeechMarkCallback(p.handleMark),
			texttospeech.WithSpeechEndedCallback(p.handleSpeechEnded),
			texttospeech.WithErrorCallback(p.handleError),
			texttospeech.WithEncodingInfo(p.encoding),
		)
		if err != nil {
			p.initErr = fmt.Errorf("failed to open speech generator: %w", err)
			return
		}
		p.generator = generator
	})
	return p.initErr
}

// Play synthesizes one chunk and blocks until the device confirms it was
// heard. Context cancellation discards generation and clears the output
// buffer, so an interrupt goes silent mid-sentence instead of draining.
func (p *speechPlayer) Play(ctx context.Context, chunk Chunk) error {
	if err := p.init(ctx); err != nil {
		return err
	}

	if err := p.generator.SendText(chunk.Text); err != nil {
		return fmt.Errorf("failed to send chunk text to synthesizer: %w", err)
	}
	if err := p.generator.Mark(); err != nil {
		return fmt.Errorf("failed to mark chunk boundary: %w", err)
	}

	select {
	case <-p.markPlayed:
		return nil
	case err := <-p.errs:
		return err
	case <-ctx.Done():
		_ = p.generator.Cancel()
		if p.output != nil {
			p.output.ClearBuffer()
		}
		return ctx.Err()
	}
}

func (p *speechPlayer) handleAudio(frame []byte) {
	sequence := int(p.frames.Add(1))
	p.emit(events.NewAssistantSpeechFrame(p.turnID, sequence, frame))

	if p.output != nil {
		if err := p.output.SendAudio(frame); err != nil {
			logger.Warn("failed to send speech frame to audio output", "turn_id", p.turnID, "error", err)
		}
	}
}

// handleMark fires when generation has covered all text up to the mark. The
// mark is re-registered against the output buffer so confirmation waits for
// the device, not just the synthesizer.
func (p *speechPlayer) handleMark(markedText string) {
	p.emit(events.NewAssistantSpeechMarkGenerated(p.turnID, markedText))

	if p.output == nil {
		p.confirmMark()
		return
	}
	if err := p.output.Mark(markedText, func(string) { p.confirmMark() }); err != nil {
		logger.Warn("failed to register playback mark", "turn_id", p.turnID, "error", err)
		p.confirmMark()
	}
}

func (p *speechPlayer) confirmMark() {
	select {
	case p.markPlayed <- struct{}{}:
	default:
	}
}

func (p *speechPlayer) handleSpeechEnded() {
	p.emit(events.NewAssistantSpeechFinal(p.turnID, int(p.frames.Load())))
}

func (p *speechPlayer) handleError(err error) {
	select {
	case p.errs <- err:
	default:
	}
}

// Close ends the synthesis session. Called after playback has drained, so
// EndOfText has nothing left to flush and the generator shuts down cleanly.
func (p *speechPlayer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.generator == nil {
		return nil
	}

	_ = p.generator.EndOfText()
	return p.generator.Close()
}
