package events

const (
	// KindAssistantResponseStarted identifies the opening of a model stream.
	KindAssistantResponseStarted Kind = "assistant_response.started"
	// KindAssistantResponseSegment identifies streamed assistant response text.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseChunk identifies a sentence-aligned cut handed to playback.
	KindAssistantResponseChunk Kind = "assistant_response.chunk"
	// KindAssistantResponseFinal identifies assistant response stream completion.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseStarted marks that the model stream opened for a turn.
type AssistantResponseStarted struct {
	Base
	TurnID int64
}

// NewAssistantResponseStarted creates an assistant response started event.
func NewAssistantResponseStarted(turnID int64) AssistantResponseStarted {
	return AssistantResponseStarted{Base: NewBase(KindAssistantResponseStarted), TurnID: turnID}
}

// AssistantResponseSegment carries a raw streamed model text delta.
type AssistantResponseSegment struct {
	Base
	TurnID  int64
	Segment string
}

// NewAssistantResponseSegment creates an assistant response segment event.
func NewAssistantResponseSegment(turnID int64, segment string) AssistantResponseSegment {
	return AssistantResponseSegment{Base: NewBase(KindAssistantResponseSegment), TurnID: turnID, Segment: segment}
}

// AssistantResponseChunk carries a sentence-aligned response slice with its
// playback sequence number. Sequence numbers start at 1 and are contiguous
// within a turn.
type AssistantResponseChunk struct {
	Base
	TurnID   int64
	Sequence int
	Chunk    string
	IsLast   bool
}

// NewAssistantResponseChunk creates an assistant response chunk event.
func NewAssistantResponseChunk(turnID int64, sequence int, chunk string, isLast bool) AssistantResponseChunk {
	return AssistantResponseChunk{
		Base:     NewBase(KindAssistantResponseChunk),
		TurnID:   turnID,
		Sequence: sequence,
		Chunk:    chunk,
		IsLast:   isLast,
	}
}

// AssistantResponseFinal marks assistant response stream completion and
// carries the full accumulated response text.
type AssistantResponseFinal struct {
	Base
	TurnID   int64
	Response string
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(turnID int64, response string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), TurnID: turnID, Response: response}
}
