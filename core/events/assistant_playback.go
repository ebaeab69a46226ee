package events

const (
	// KindAssistantPlaybackStarted identifies playback start for the current turn.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackChunkStarted identifies the start of a sounding chunk.
	KindAssistantPlaybackChunkStarted Kind = "assistant_playback.chunk_started"
	// KindAssistantPlaybackChunkPlayed identifies completion of a sounding chunk.
	KindAssistantPlaybackChunkPlayed Kind = "assistant_playback.chunk_played"
	// KindAssistantPlaybackStopped identifies a halt that discarded queued chunks.
	KindAssistantPlaybackStopped Kind = "assistant_playback.stopped"
	// KindAssistantPlaybackEnded identifies natural playback completion.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
)

// AssistantPlaybackStarted marks the start of assistant playback for a turn.
type AssistantPlaybackStarted struct {
	Base
	TurnID int64
}

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(turnID int64) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), TurnID: turnID}
}

// AssistantPlaybackChunkStarted marks that a chunk began sounding.
type AssistantPlaybackChunkStarted struct {
	Base
	TurnID   int64
	Sequence int
	Chunk    string
}

// NewAssistantPlaybackChunkStarted creates a playback chunk started event.
func NewAssistantPlaybackChunkStarted(turnID int64, sequence int, chunk string) AssistantPlaybackChunkStarted {
	return AssistantPlaybackChunkStarted{
		Base:     NewBase(KindAssistantPlaybackChunkStarted),
		TurnID:   turnID,
		Sequence: sequence,
		Chunk:    chunk,
	}
}

// AssistantPlaybackChunkPlayed marks that a chunk finished sounding. Chunks
// are confirmed strictly in sequence order.
type AssistantPlaybackChunkPlayed struct {
	Base
	TurnID   int64
	Sequence int
	Chunk    string
}

// NewAssistantPlaybackChunkPlayed creates a playback chunk played event.
func NewAssistantPlaybackChunkPlayed(turnID int64, sequence int, chunk string) AssistantPlaybackChunkPlayed {
	return AssistantPlaybackChunkPlayed{
		Base:     NewBase(KindAssistantPlaybackChunkPlayed),
		TurnID:   turnID,
		Sequence: sequence,
		Chunk:    chunk,
	}
}

// AssistantPlaybackStopped marks that playback was halted and queued chunks
// were discarded.
type AssistantPlaybackStopped struct {
	Base
	TurnID int64
}

// NewAssistantPlaybackStopped creates an assistant playback stopped event.
func NewAssistantPlaybackStopped(turnID int64) AssistantPlaybackStopped {
	return AssistantPlaybackStopped{Base: NewBase(KindAssistantPlaybackStopped), TurnID: turnID}
}

// AssistantPlaybackEnded marks that playback drained naturally and carries
// the transcript of everything that was played.
type AssistantPlaybackEnded struct {
	Base
	TurnID     int64
	Transcript string
}

// NewAssistantPlaybackEnded creates an assistant playback ended event.
func NewAssistantPlaybackEnded(turnID int64, transcript string) AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: NewBase(KindAssistantPlaybackEnded), TurnID: turnID, Transcript: transcript}
}
