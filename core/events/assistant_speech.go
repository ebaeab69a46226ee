package events

const (
	// KindAssistantSpeechFrame identifies synthesized assistant speech audio.
	KindAssistantSpeechFrame Kind = "assistant_speech.frame"
	// KindAssistantSpeechMarkGenerated identifies a generated TTS mark.
	KindAssistantSpeechMarkGenerated Kind = "assistant_speech.mark_generated"
	// KindAssistantSpeechFinal identifies TTS generation completion for a chunk.
	KindAssistantSpeechFinal Kind = "assistant_speech.final"
)

// AssistantSpeechFrame carries a synthesized assistant speech audio frame.
// Synthesis is chunk-scoped, so frames carry the chunk's sequence number.
type AssistantSpeechFrame struct {
	Base
	TurnID   int64
	Sequence int
	Audio    []byte
}

// NewAssistantSpeechFrame creates an assistant speech audio frame event.
func NewAssistantSpeechFrame(turnID int64, sequence int, audio []byte) AssistantSpeechFrame {
	return AssistantSpeechFrame{Base: NewBase(KindAssistantSpeechFrame), TurnID: turnID, Sequence: sequence, Audio: audio}
}

// AssistantSpeechMarkGenerated carries transcript text attached to a generated TTS mark.
type AssistantSpeechMarkGenerated struct {
	Base
	TurnID     int64
	Transcript string
}

// NewAssistantSpeechMarkGenerated creates an assistant speech mark generated event.
func NewAssistantSpeechMarkGenerated(turnID int64, transcript string) AssistantSpeechMarkGenerated {
	return AssistantSpeechMarkGenerated{Base: NewBase(KindAssistantSpeechMarkGenerated), TurnID: turnID, Transcript: transcript}
}

// AssistantSpeechFinal marks completion of TTS generation for a chunk.
type AssistantSpeechFinal struct {
	Base
	TurnID   int64
	Sequence int
}

// NewAssistantSpeechFinal creates an assistant speech final event.
func NewAssistantSpeechFinal(turnID int64, sequence int) AssistantSpeechFinal {
	return AssistantSpeechFinal{Base: NewBase(KindAssistantSpeechFinal), TurnID: turnID, Sequence: sequence}
}
