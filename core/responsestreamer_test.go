package orchestration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nolavoice/nola-core/core/llms"
)

func TestResponseStreamerCutsAndSequencesChunks(t *testing.T) {
	llmStub := &scriptedLLM{streams: []*scriptedStream{
		contentStream("It's su", "nny today. And", " warm."),
	}}
	recorder := &chunkRecorder{}
	streamer := newResponseStreamer(llmStub, 7, newChunkCutter("", 0, 0), 0, recorder.record)

	accumulated, err := streamer.Run(context.Background(), "what's the weather")
	if err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
	if accumulated != "It's sunny today. And warm." {
		t.Fatalf("expected full accumulated response, got %q", accumulated)
	}

	if got := recorder.count(); got != 2 {
		t.Fatalf("expected two chunks, got %d", got)
	}
	first, second := recorder.at(0), recorder.at(1)
	if first.Text != "It's sunny today." || second.Text != "And warm." {
		t.Fatalf("expected sentence chunks, got %q and %q", first.Text, second.Text)
	}
	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("expected sequences 1 and 2, got %d and %d", first.Sequence, second.Sequence)
	}
	if first.TurnID != 7 || second.TurnID != 7 {
		t.Fatalf("expected chunks bound to turn 7, got %d and %d", first.TurnID, second.TurnID)
	}
}

func TestResponseStreamerFlushesRemainderAsFinalChunk(t *testing.T) {
	llmStub := &scriptedLLM{streams: []*scriptedStream{
		contentStream("It's sunny", " today"),
	}}
	recorder := &chunkRecorder{}
	streamer := newResponseStreamer(llmStub, 1, newChunkCutter("", 0, 10), 0, recorder.record)

	accumulated, err := streamer.Run(context.Background(), "what's the weather")
	if err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
	if accumulated != "It's sunny today" {
		t.Fatalf("expected accumulated response, got %q", accumulated)
	}

	if got := recorder.count(); got != 2 {
		t.Fatalf("expected a length cut plus the flushed remainder, got %d chunks", got)
	}
	if got := recorder.at(0); got.Text != "It's sunny" || got.IsLast {
		t.Fatalf("expected first chunk %q without the last flag, got %+v", "It's sunny", got)
	}
	if got := recorder.at(1); got.Text != "today" || !got.IsLast {
		t.Fatalf("expected flushed remainder %q with the last flag, got %+v", "today", got)
	}
}

func TestResponseStreamerCancelStopsPullingAndKeepsAccumulated(t *testing.T) {
	stream := contentStream("Hello there, ", "I am", " happy to help.")
	stream.gate = make(chan struct{})
	stream.gateAfter = 2
	llmStub := &scriptedLLM{streams: []*scriptedStream{stream}}

	recorder := &chunkRecorder{}
	streamer := newResponseStreamer(llmStub, 1, newChunkCutter("", 0, 0), 0, recorder.record)

	type runResult struct {
		accumulated string
		err         error
	}
	results := make(chan runResult, 1)
	go func() {
		accumulated, err := streamer.Run(context.Background(), "say something")
		results <- runResult{accumulated, err}
	}()

	waitForCondition(t, time.Second, "the first two deltas to accumulate", func() bool {
		return streamer.AccumulatedText() == "Hello there, I am"
	})
	if !streamer.IsActive() {
		t.Fatalf("expected streamer to be active mid-stream")
	}

	streamer.Cancel()
	close(stream.gate)

	select {
	case got := <-results:
		if got.err != nil {
			t.Fatalf("expected cancelled run to return without error, got %v", got.err)
		}
		if got.accumulated != "Hello there, I am" {
			t.Fatalf("expected accumulated text to survive cancellation, got %q", got.accumulated)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected run to return promptly after cancellation")
	}

	if streamer.IsActive() {
		t.Fatalf("expected streamer to be inactive after the run returned")
	}
	for i := range recorder.count() {
		if strings.Contains(recorder.at(i).Text, "happy") {
			t.Fatalf("expected no chunk emitted after cancellation, got %q", recorder.at(i).Text)
		}
	}
}

func TestResponseStreamerSurfacesStreamFailureWithAccumulated(t *testing.T) {
	scriptedErr := errors.New("scripted stream failure")
	stream := contentStream("I think")
	stream.err = scriptedErr
	llmStub := &scriptedLLM{streams: []*scriptedStream{stream}}

	streamer := newResponseStreamer(llmStub, 1, newChunkCutter("", 0, 0), 0, nil)
	accumulated, err := streamer.Run(context.Background(), "go on")
	if !errors.Is(err, scriptedErr) {
		t.Fatalf("expected the stream failure to surface, got %v", err)
	}
	if accumulated != "I think" {
		t.Fatalf("expected accumulated text alongside the failure, got %q", accumulated)
	}
	if !streamer.Errored() {
		t.Fatalf("expected streamer to be marked errored")
	}
}

func TestResponseStreamerStallTimeoutFailsTheStream(t *testing.T) {
	stream := contentStream("one delta ", "never arrives")
	stream.gate = make(chan struct{})
	stream.gateAfter = 1
	llmStub := &scriptedLLM{streams: []*scriptedStream{stream}}

	streamer := newResponseStreamer(llmStub, 1, newChunkCutter("", 0, 0), 50*time.Millisecond, nil)
	accumulated, err := streamer.Run(context.Background(), "go on")
	if !errors.Is(err, ErrModelStreamStalled) {
		t.Fatalf("expected stall failure, got %v", err)
	}
	if accumulated != "one delta " {
		t.Fatalf("expected pre-stall text to survive, got %q", accumulated)
	}
	if !streamer.Errored() {
		t.Fatalf("expected streamer to be marked errored after a stall")
	}
}

func TestResponseStreamerIgnoresNonContentChunks(t *testing.T) {
	stream := &scriptedStream{chunks: []llms.StreamChunk{
		scriptedRoleChunk{},
		scriptedContentChunk{content: "Hi."},
		scriptedUsageChunk{},
	}}
	llmStub := &scriptedLLM{streams: []*scriptedStream{stream}}

	recorder := &chunkRecorder{}
	streamer := newResponseStreamer(llmStub, 1, newChunkCutter("", 0, 0), 0, recorder.record)

	accumulated, err := streamer.Run(context.Background(), "hi")
	if err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
	if accumulated != "Hi." {
		t.Fatalf("expected only content deltas to accumulate, got %q", accumulated)
	}
	if got := recorder.count(); got != 1 {
		t.Fatalf("expected one chunk, got %d", got)
	}
}

func TestResponseStreamerEmptyStreamProducesNoChunks(t *testing.T) {
	llmStub := &scriptedLLM{streams: []*scriptedStream{contentStream()}}
	recorder := &chunkRecorder{}
	streamer := newResponseStreamer(llmStub, 1, newChunkCutter("", 0, 0), 0, recorder.record)

	accumulated, err := streamer.Run(context.Background(), "anything")
	if err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
	if accumulated != "" {
		t.Fatalf("expected empty accumulated text, got %q", accumulated)
	}
	if got := recorder.count(); got != 0 {
		t.Fatalf("expected no chunks, got %d", got)
	}
}

type chunkRecorder struct {
	mu     sync.Mutex
	chunks []Chunk
}

func (r *chunkRecorder) record(chunk Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk)
}

func (r *chunkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

func (r *chunkRecorder) at(i int) Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunks[i]
}

// scriptedLLM hands out one scripted stream per prompt, recording the prompts
// and options it was called with.
type scriptedLLM struct {
	mu      sync.Mutex
	streams []*scriptedStream
	calls   int
	prompts []string
	options []llms.PromptOptions
}

func (l *scriptedLLM) PromptWithStream(_ context.Context, prompt string, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	l.options = append(l.options, options)
	stream := &scriptedStream{}
	if l.calls < len(l.streams) {
		stream = l.streams[l.calls]
	}
	l.calls++
	return stream
}

func (l *scriptedLLM) promptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

func (l *scriptedLLM) promptAt(i int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prompts[i]
}

func (l *scriptedLLM) optionsAt(i int) llms.PromptOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.options[i]
}

// scriptedStream yields a fixed chunk script. A gate, when set, blocks before
// yielding chunk gateAfter until the gate is closed or the context ends.
type scriptedStream struct {
	chunks    []llms.StreamChunk
	err       error
	gate      chan struct{}
	gateAfter int

	mu      sync.Mutex
	yielded int
}

func contentStream(deltas ...string) *scriptedStream {
	stream := &scriptedStream{}
	for _, delta := range deltas {
		stream.chunks = append(stream.chunks, scriptedContentChunk{content: delta})
	}
	return stream
}

func (s *scriptedStream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		for i, chunk := range s.chunks {
			if s.gate != nil && i == s.gateAfter {
				select {
				case <-s.gate:
				case <-ctx.Done():
					yield(nil, ctx.Err())
					return
				}
			}
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			if !yield(chunk, nil) {
				return
			}
			s.mu.Lock()
			s.yielded++
			s.mu.Unlock()
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

func (s *scriptedStream) yieldedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.yielded
}

type scriptedContentChunk struct{ content string }

func (scriptedContentChunk) FinishReason() *string { return nil }
func (c scriptedContentChunk) Content() string     { return c.content }

type scriptedRoleChunk struct{}

func (scriptedRoleChunk) FinishReason() *string { return nil }
func (scriptedRoleChunk) Role() string          { return "assistant" }

type scriptedUsageChunk struct{}

func (scriptedUsageChunk) FinishReason() *string { return nil }
func (scriptedUsageChunk) Usage() llms.Usage     { return llms.Usage{TotalTokens: 7} }
