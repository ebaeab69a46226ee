package orchestration

import (
	"context"
	"fmt"
	"strings"

	"github.com/nolavoice/nola-core/core/audio"
	"github.com/nolavoice/nola-core/core/events"
	"github.com/nolavoice/nola-core/core/speechtotext"
)

// SpeechToText is the contract a recognition collaborator fulfils. Transcribe
// opens the recognition stream and wires the given callbacks; SendAudio feeds
// it captured frames. Implementations may additionally expose a Close method
// in any of the common shapes; the orchestrator calls whichever exists.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

// speechToTextCallbacks routes recognition signals into the engine: finalized
// segments and end-of-speech into the segmenter, activity boundaries into
// playback pausing, everything into the event stream.
type speechToTextCallbacks struct {
	emit            func(events.Event)
	onSegment       func(segment string)
	onSpeechFinal   func()
	onSpeechStarted func()
	onSpeechEnded   func()
}

// speechToText adapts a SpeechToText client to the engine's recognition
// callbacks. All methods are no-ops when no client is configured, so callers
// that push text directly need no special casing.
type speechToText struct {
	client    SpeechToText
	callbacks speechToTextCallbacks
}

func newSpeechToText(client SpeechToText, callbacks speechToTextCallbacks) *speechToText {
	return &speechToText{client: client, callbacks: callbacks}
}

func (s *speechToText) Start(ctx context.Context, encodingInfo audio.EncodingInfo) error {
	if !s.isConfigured() {
		return nil
	}

	sttOptions := []speechtotext.TranscriptionOption{
		speechtotext.WithSpeechStartedCallback(s.invokeSpeechStarted),
		speechtotext.WithSpeechEndedCallback(s.invokeSpeechEnded),
		speechtotext.WithInterimTranscriptionCallback(s.invokeInterimTranscription),
		speechtotext.WithPartialTranscriptionCallback(s.invokePartialTranscription),
		speechtotext.WithTranscriptionCallback(s.invokeTranscription),
		speechtotext.WithEncodingInfo(encodingInfo),
	}

	if err := s.client.Transcribe(ctx, sttOptions...); err != nil {
		return fmt.Errorf("failed to start transcribing: %w", err)
	}

	return nil
}

func (s *speechToText) SendAudio(audio []byte) error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.SendAudio(audio)
}

func (s *speechToText) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	switch c := s.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}

func (s *speechToText) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechToText) emitEvent(event events.Event) {
	if s.callbacks.emit != nil {
		s.callbacks.emit(event)
	}
}

func (s *speechToText) invokeSpeechStarted() {
	s.emitEvent(events.NewUserSpeechStarted())
	if s.callbacks.onSpeechStarted != nil {
		s.callbacks.onSpeechStarted()
	}
}

func (s *speechToText) invokeSpeechEnded() {
	s.emitEvent(events.NewUserSpeechEnded())
	if s.callbacks.onSpeechEnded != nil {
		s.callbacks.onSpeechEnded()
	}
}

func (s *speechToText) invokeInterimTranscription(transcript string) {
	s.emitEvent(events.NewUserTranscriptInterimUpdated(transcript))
}

// invokePartialTranscription receives a finalized recognizer segment. The
// segment extends the utterance buffer but never finalizes it.
func (s *speechToText) invokePartialTranscription(transcript string) {
	if strings.TrimSpace(transcript) == "" {
		return
	}
	s.emitEvent(events.NewUserTranscriptSegment(transcript))
	if s.callbacks.onSegment != nil {
		s.callbacks.onSegment(transcript)
	}
}

// invokeTranscription receives the recognizer's end-of-speech signal. The
// transcript text itself arrived segment by segment already; this clears the
// interim display and finalizes the buffered utterance.
func (s *speechToText) invokeTranscription(string) {
	s.emitEvent(events.NewUserTranscriptInterimUpdated(""))
	if s.callbacks.onSpeechFinal != nil {
		s.callbacks.onSpeechFinal()
	}
}
