package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nolavoice/nola-core/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrModelStreamStalled reports that the model stream produced no delta within
// the configured stall timeout.
var ErrModelStreamStalled = errors.New("model stream stalled: no delta within the stall timeout")

// responseStreamer drains one model stream for one turn. It accumulates the
// raw response text and cuts it into sequenced chunks as deltas arrive.
// Cancellation stops the pull promptly; the text accumulated up to that point
// survives, including any remainder that never reached a chunk boundary.
type responseStreamer struct {
	llm          StreamingLLM
	turnID       int64
	cutter       *chunkCutter
	onChunk      func(Chunk)
	onSegment    func(string)
	stallTimeout time.Duration

	mu          sync.Mutex
	accumulated strings.Builder
	sequence    int

	active    atomic.Bool
	cancelled atomic.Bool
	errored   atomic.Bool
}

func newResponseStreamer(llm StreamingLLM, turnID int64, cutter *chunkCutter, stallTimeout time.Duration, onChunk func(Chunk)) *responseStreamer {
	if cutter == nil {
		cutter = newChunkCutter("", 0, 0)
	}
	return &responseStreamer{
		llm:          llm,
		turnID:       turnID,
		cutter:       cutter,
		onChunk:      onChunk,
		stallTimeout: stallTimeout,
	}
}

// Run pulls the model stream to completion and returns the accumulated
// response text. Chunks are handed to onChunk as they are cut; a non-empty
// remainder after a clean stream end becomes the final chunk with IsLast set.
// A cancelled run returns the accumulated text with no error, a failed stream
// returns it alongside the failure.
func (s *responseStreamer) Run(ctx context.Context, prompt string, opts ...llms.PromptOption) (string, error) {
	if s == nil || s.llm == nil {
		return "", nil
	}

	s.active.Store(true)
	defer s.active.Store(false)

	ctx, span := tracer.Start(ctx, "stream assistant response")
	defer span.End()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var stallGuard *time.Timer
	if s.stallTimeout > 0 {
		stallGuard = time.AfterFunc(s.stallTimeout, func() {
			cancel(ErrModelStreamStalled)
		})
		defer stallGuard.Stop()
	}

	stream := s.llm.PromptWithStream(ctx, prompt, opts...)
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			if s.cancelled.Load() {
				return s.AccumulatedText(), nil
			}
			if cause := context.Cause(ctx); errors.Is(cause, ErrModelStreamStalled) {
				err = cause
			}
			err = fmt.Errorf("model stream failed: %w", err)
			s.errored.Store(true)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return s.AccumulatedText(), err
		}

		if s.cancelled.Load() {
			return s.AccumulatedText(), nil
		}

		if stallGuard != nil {
			stallGuard.Reset(s.stallTimeout)
		}

		content, ok := chunk.(llms.StreamContentChunk)
		if !ok {
			continue
		}
		s.consumeDelta(content.Content())
	}

	if !s.cancelled.Load() {
		s.flushRemainder()
	}

	accumulated := s.AccumulatedText()
	span.SetAttributes(
		attribute.Int("assistant_response.chunks", s.chunkCount()),
		attribute.Int("assistant_response.length", len(accumulated)),
	)
	return accumulated, nil
}

func (s *responseStreamer) consumeDelta(delta string) {
	if delta == "" {
		return
	}

	s.mu.Lock()
	s.accumulated.WriteString(delta)
	cut := s.cutter.Append(delta)
	chunks := make([]Chunk, 0, len(cut))
	for _, text := range cut {
		s.sequence++
		chunks = append(chunks, Chunk{TurnID: s.turnID, Sequence: s.sequence, Text: text})
	}
	s.mu.Unlock()

	if s.onSegment != nil && !s.cancelled.Load() {
		s.onSegment(delta)
	}
	for _, chunk := range chunks {
		s.emit(chunk)
	}
}

// flushRemainder turns uncut trailing text into the turn's final chunk. A
// response that ends exactly on a boundary leaves nothing to flush; the
// downstream completion signal marks the end in that case.
func (s *responseStreamer) flushRemainder() {
	s.mu.Lock()
	remainder := s.cutter.Flush()
	if remainder == "" {
		s.mu.Unlock()
		return
	}
	s.sequence++
	chunk := Chunk{TurnID: s.turnID, Sequence: s.sequence, Text: remainder, IsLast: true}
	s.mu.Unlock()

	s.emit(chunk)
}

func (s *responseStreamer) emit(chunk Chunk) {
	if s.onChunk == nil || s.cancelled.Load() {
		return
	}
	s.onChunk(chunk)
}

// Cancel stops the streamer from pulling and emitting further deltas. It is
// safe to call from any goroutine and more than once.
func (s *responseStreamer) Cancel() {
	if s == nil {
		return
	}
	s.cancelled.Store(true)
}

// IsActive reports whether the streamer is still pulling deltas.
func (s *responseStreamer) IsActive() bool {
	if s == nil {
		return false
	}
	return s.active.Load()
}

func (s *responseStreamer) IsCancelled() bool {
	if s == nil {
		return false
	}
	return s.cancelled.Load()
}

func (s *responseStreamer) Errored() bool {
	if s == nil {
		return false
	}
	return s.errored.Load()
}

// AccumulatedText returns the raw response text received so far, independent
// of how much of it has been cut into chunks.
func (s *responseStreamer) AccumulatedText() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.String()
}

func (s *responseStreamer) chunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}
