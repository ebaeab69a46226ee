package orchestration

import (
	"context"

	"github.com/nolavoice/nola-core/core/texttospeech"
)

// SpeechSynthesizer is the contract a synthesis collaborator fulfils. Each
// responding turn opens its own generator so cancelling one turn's speech
// never bleeds into the next.
type SpeechSynthesizer interface {
	NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error)
}
