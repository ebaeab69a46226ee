package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nolavoice/nola-core/core/audio"
	"github.com/nolavoice/nola-core/core/events"
	"github.com/nolavoice/nola-core/core/memory"
	"github.com/nolavoice/nola-core/core/speechtotext"
)

func TestSpeechToTextBridgeRegistersCallbacksAndEncoding(t *testing.T) {
	recognizer := &scriptedRecognizer{}
	bridge := newSpeechToText(recognizer, speechToTextCallbacks{})

	encoding := audio.EncodingInfo{SampleRate: audio.DefaultSampleRate, Format: audio.EncodingLinear16}
	if err := bridge.Start(context.Background(), encoding); err != nil {
		t.Fatalf("expected clean start, got %v", err)
	}

	options := recognizer.capturedOptions()
	if options.PartialTranscriptionCallback == nil || options.TranscriptionCallback == nil {
		t.Fatalf("expected segment and utterance callbacks to be registered")
	}
	if options.SpeechStartedCallback == nil || options.SpeechEndedCallback == nil {
		t.Fatalf("expected speech activity callbacks to be registered")
	}
	if options.InterimTranscriptionCallback == nil {
		t.Fatalf("expected the interim callback to be registered")
	}
	if options.EncodingInfo != encoding {
		t.Fatalf("expected the encoding to reach the recognizer, got %+v", options.EncodingInfo)
	}
}

func TestSpeechToTextBridgeRoutesRecognitionSignals(t *testing.T) {
	recognizer := &scriptedRecognizer{}
	recorder := &eventRecorder{}

	var segments []string
	finals, started, ended := 0, 0, 0
	bridge := newSpeechToText(recognizer, speechToTextCallbacks{
		emit:            recorder.record,
		onSegment:       func(segment string) { segments = append(segments, segment) },
		onSpeechFinal:   func() { finals++ },
		onSpeechStarted: func() { started++ },
		onSpeechEnded:   func() { ended++ },
	})
	if err := bridge.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected clean start, got %v", err)
	}

	options := recognizer.capturedOptions()
	options.SpeechStartedCallback()
	options.InterimTranscriptionCallback("what's the")
	options.PartialTranscriptionCallback("What's the weather")
	options.PartialTranscriptionCallback("   ")
	options.SpeechEndedCallback()
	options.TranscriptionCallback("What's the weather")

	if started != 1 || ended != 1 {
		t.Fatalf("expected one speech start and end, got %d and %d", started, ended)
	}
	if len(segments) != 1 || segments[0] != "What's the weather" {
		t.Fatalf("expected one non-blank segment, got %v", segments)
	}
	if finals != 1 {
		t.Fatalf("expected one end-of-speech signal, got %d", finals)
	}

	if got := recorder.countKind(events.KindUserSpeechStarted); got != 1 {
		t.Fatalf("expected one speech started event, got %d", got)
	}
	if got := recorder.countKind(events.KindUserTranscriptSegment); got != 1 {
		t.Fatalf("expected one segment event, got %d", got)
	}

	// End of speech clears the interim display rather than repeating the text.
	interims := recorder.ofKind(events.KindUserTranscriptInterimUpdated)
	if len(interims) != 2 {
		t.Fatalf("expected the interim update plus its clear, got %d", len(interims))
	}
	if got := interims[1].(events.UserTranscriptInterimUpdated).Transcript; got != "" {
		t.Fatalf("expected the final interim update to clear, got %q", got)
	}
}

func TestSpeechToTextBridgeForwardsAudio(t *testing.T) {
	recognizer := &scriptedRecognizer{}
	bridge := newSpeechToText(recognizer, speechToTextCallbacks{})

	if err := bridge.SendAudio([]byte{1, 2, 3}); err != nil {
		t.Fatalf("expected clean send, got %v", err)
	}
	if got := recognizer.audioFrameCount(); got != 1 {
		t.Fatalf("expected one forwarded frame, got %d", got)
	}
}

func TestSpeechToTextBridgeWithoutClientIsNoop(t *testing.T) {
	bridge := newSpeechToText(nil, speechToTextCallbacks{})

	if err := bridge.Start(context.Background(), audio.GetDefaultEncodingInfo()); err != nil {
		t.Fatalf("expected no-op start, got %v", err)
	}
	if err := bridge.SendAudio([]byte{1}); err != nil {
		t.Fatalf("expected no-op send, got %v", err)
	}
	if err := bridge.Close(context.Background()); err != nil {
		t.Fatalf("expected no-op close, got %v", err)
	}
}

func TestSpeechToTextBridgeClosesWhateverShapeExists(t *testing.T) {
	withCtx := &scriptedRecognizer{}
	bridge := newSpeechToText(withCtx, speechToTextCallbacks{})
	if err := bridge.Close(context.Background()); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	if !withCtx.closed() {
		t.Fatalf("expected the context close shape to be called")
	}

	bare := &bareCloseRecognizer{}
	bridge = newSpeechToText(bare, speechToTextCallbacks{})
	if err := bridge.Close(context.Background()); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	if !bare.closedFlag {
		t.Fatalf("expected the bare close shape to be called")
	}
}

func TestOrchestratorDrivesTurnFromRecognitionCallbacks(t *testing.T) {
	recognizer := &scriptedRecognizer{}
	llmStub := &scriptedLLM{streams: []*scriptedStream{contentStream("It's sunny today.")}}

	engine := NewOrchestrator(
		WithStreamingLLM(llmStub),
		WithChunkPlayer(&scriptedPlayer{}),
		WithSpeechToText(recognizer),
	)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("expected clean start, got %v", err)
	}
	defer engine.Close()

	options := recognizer.capturedOptions()
	options.SpeechStartedCallback()
	options.PartialTranscriptionCallback("What's the")
	options.PartialTranscriptionCallback("weather")
	options.SpeechEndedCallback()
	options.TranscriptionCallback("What's the weather")

	waitForCondition(t, time.Second, "the recognized utterance to complete a turn", func() bool {
		return engine.Ledger().Len() == 2 && !engine.IsResponding()
	})

	records := engine.Ledger().Records()
	if records[0].Role != memory.RoleUser || records[0].Text != "What's the weather" {
		t.Fatalf("expected the joined segments as the user record, got %+v", records[0])
	}
	if got := llmStub.promptAt(0); got != "What's the weather" {
		t.Fatalf("expected the joined segments as the prompt, got %q", got)
	}
}

// scriptedRecognizer captures the options it is started with so tests can
// drive the registered callbacks directly.
type scriptedRecognizer struct {
	mu       sync.Mutex
	options  speechtotext.TranscriptionOptions
	frames   [][]byte
	isClosed bool
}

func (r *scriptedRecognizer) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range opts {
		opt(&r.options)
	}
	return nil
}

func (r *scriptedRecognizer) SendAudio(audio []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, audio)
	return nil
}

func (r *scriptedRecognizer) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isClosed = true
	return nil
}

func (r *scriptedRecognizer) capturedOptions() speechtotext.TranscriptionOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options
}

func (r *scriptedRecognizer) audioFrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *scriptedRecognizer) closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isClosed
}

type bareCloseRecognizer struct {
	closedFlag bool
}

func (r *bareCloseRecognizer) Transcribe(context.Context, ...speechtotext.TranscriptionOption) error {
	return nil
}

func (r *bareCloseRecognizer) SendAudio([]byte) error { return nil }
func (r *bareCloseRecognizer) Close()                 { r.closedFlag = true }
