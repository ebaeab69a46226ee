package events

const (
	// KindTurnStarted identifies entry into the responding state.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnCompleted identifies natural turn completion.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnInterrupted identifies a turn cut short by a barge-in.
	KindTurnInterrupted Kind = "turn_state.interrupted"
	// KindTurnFailed identifies a turn ended by a model or synthesis failure.
	KindTurnFailed Kind = "turn_state.failed"
)

// TurnStarted marks that a turn entered the responding state.
type TurnStarted struct {
	Base
	TurnID  int64
	Trigger string
}

// NewTurnStarted creates a turn started event.
func NewTurnStarted(turnID int64, trigger string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, Trigger: trigger}
}

// TurnCompleted marks that generation and playback both ran to their natural end.
type TurnCompleted struct {
	Base
	TurnID   int64
	Response string
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(turnID int64, response string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID, Response: response}
}

// TurnInterrupted marks that a newer final utterance barged in on the turn.
type TurnInterrupted struct {
	Base
	TurnID          int64
	AccumulatedText string
}

// NewTurnInterrupted creates a turn interrupted event carrying the text
// accumulated up to the moment of cancellation.
func NewTurnInterrupted(turnID int64, accumulatedText string) TurnInterrupted {
	return TurnInterrupted{Base: NewBase(KindTurnInterrupted), TurnID: turnID, AccumulatedText: accumulatedText}
}

// TurnFailed marks that the turn ended on a reportable failure.
type TurnFailed struct {
	Base
	TurnID int64
	Err    error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(turnID int64, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, Err: err}
}
