package orchestration

import "context"

// BargeInPolicy decides what a final utterance does when it arrives while a
// turn is still responding.
type BargeInPolicy string

const (
	// BargeInOnFinal cancels the active turn and immediately starts a new one
	// triggered by the interrupting utterance. This is the default.
	BargeInOnFinal BargeInPolicy = "on_final"
	// BargeInNone drops utterances that arrive while a turn is responding.
	BargeInNone BargeInPolicy = "none"
)

// InterruptClass is a classifier's verdict on an interrupting utterance.
type InterruptClass string

const (
	// InterruptClassPrompt means the utterance is a real new prompt; the
	// active turn is cancelled and a new one starts.
	InterruptClassPrompt InterruptClass = "prompt"
	// InterruptClassNoise means the utterance is recognizer noise; it is
	// dropped and the active turn keeps going.
	InterruptClassNoise InterruptClass = "noise"
	// InterruptClassBackchannel means the utterance is listener feedback
	// ("mhm", "right"); it is dropped and the active turn keeps going.
	InterruptClassBackchannel InterruptClass = "backchannel"
)

// InterruptClassifier decides whether an utterance that arrived mid-turn
// should actually barge in. Without a classifier every final utterance does.
type InterruptClassifier interface {
	Classify(ctx context.Context, utterance string, responseSoFar string) (InterruptClass, error)
}
