// Package speechtotext defines the configuration contract between the
// orchestration engine and streaming speech recognizers.
package speechtotext

import "github.com/nolavoice/nola-core/core/audio"

// TranscriptionOptions collects the callbacks a recognizer invokes as the
// stream progresses. Interim callbacks carry mutable text that may still
// change; partial callbacks carry finalized segments; TranscriptionCallback
// fires once per detected utterance with the full accumulated transcript.
type TranscriptionOptions struct {
	PartialInterimTranscriptionCallback func(transcript string)
	InterimTranscriptionCallback        func(transcript string)
	PartialTranscriptionCallback        func(transcript string)
	TranscriptionCallback               func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

// WithTranscriptionCallback registers a callback for the full utterance
// transcript, fired once speech is detected to have ended.
func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

// WithPartialTranscriptionCallback registers a callback for finalized
// transcript segments. Segments never change once delivered.
func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

// WithPartialInterimTranscriptionCallback registers a callback for the
// mutable text of the segment currently being recognized.
func WithPartialInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialInterimTranscriptionCallback = callback
	}
}

// WithInterimTranscriptionCallback registers a callback for the mutable
// transcript of the whole utterance so far, finalized segments included.
func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
