// Package texttospeech defines the configuration contract between the
// orchestration engine and streaming speech synthesizers.
package texttospeech

import "github.com/nolavoice/nola-core/core/audio"

type TextToSpeechOptions struct {
	// SpeechAudioCallback is called for every audio frame the synthesizer
	// produces.
	SpeechAudioCallback func(audio []byte)
	// SpeechMarkCallback is called once per mark, after all speech for the
	// text sent up to that mark has been generated. The callback receives the
	// text covered by the mark.
	SpeechMarkCallback func(markedText string)
	// SpeechEndedCallback is called once all requested speech has been
	// generated, after EndOfText.
	SpeechEndedCallback func()
	// ErrorCallback is called when the synthesizer fails mid-stream. Speech
	// generation stops after an error.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithSpeechAudioCallback(callback func([]byte)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.SpeechAudioCallback = callback
	}
}

func WithSpeechMarkCallback(callback func(markedText string)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.SpeechMarkCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithErrorCallback(callback func(error)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.ErrorCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// SpeechGenerator is one streaming synthesis session.
type SpeechGenerator interface {
	// SendText queues text for synthesis. Speech is guaranteed to be
	// generated in the order text is sent.
	//
	// SendText errors if EndOfText, Cancel or Close has been called.
	SendText(text string) error
	// Mark marks the current point in the text. The mark callback fires after
	// the speech for all text sent up to the mark has been generated.
	//
	// Mark errors if EndOfText, Cancel or Close has been called.
	Mark() error
	// EndOfText signals that no more text will be sent. The generator closes
	// itself once all remaining speech has been generated.
	//
	// EndOfText errors if Cancel or Close has been called. Repeated calls are
	// ignored.
	EndOfText() error
	// Cancel discards any speech not yet generated and closes the generator.
	//
	// Cancel errors if Close has been called. Repeated calls are ignored.
	Cancel() error
	// Close immediately closes the generator. No more speech is generated
	// after this call. Repeated calls are ignored.
	Close() error
}
