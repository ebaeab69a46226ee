package orchestration

import (
	"time"

	"github.com/nolavoice/nola-core/core/audio"
)

// OrchestratorOption configures an Orchestrator at construction.
type OrchestratorOption func(*Orchestrator)

// WithStreamingLLM sets the language-model collaborator responses are
// streamed from. Without one, turns finalize immediately with empty text.
func WithStreamingLLM(client StreamingLLM) OrchestratorOption {
	return func(o *Orchestrator) {
		o.llm = client
	}
}

// WithSpeechSynthesizer sets the synthesis collaborator. A per-turn speech
// session is opened against it and chunks sound through the configured audio
// output.
func WithSpeechSynthesizer(client SpeechSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.synthesizer = client
	}
}

// WithAudioOutput sets the device sink synthesized speech plays through.
func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) {
		o.audioOutput = client
	}
}

// WithChunkPlayer bypasses the synthesis path entirely and plays chunks
// through the given player. Takes precedence over WithSpeechSynthesizer.
func WithChunkPlayer(player ChunkPlayer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.player = player
	}
}

// WithAudioInput sets the capture source. Captured frames are forwarded to
// the speech-to-text collaborator for the life of the session.
func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) {
		o.captureInput = client
	}
}

// WithSpeechToText sets the recognition collaborator. Its transcript segments
// and end-of-speech signals feed the segmenter directly.
func WithSpeechToText(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sttClient = client
	}
}

// WithEncodingInfo sets the audio encoding shared by capture, recognition,
// synthesis, and playback.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) OrchestratorOption {
	return func(o *Orchestrator) {
		if encodingInfo.IsZero() {
			return
		}
		o.encoding = encodingInfo
	}
}

// WithInstructions sets the system instructions prepended to every turn's
// prompt context.
func WithInstructions(instructions string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.instructions = instructions
	}
}

// WithTranscript persists every committed ledger record to the JSON-lines
// file at path and restores previously recorded conversation on Start.
func WithTranscript(path string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.transcriptPath = path
	}
}

// WithMemoryCapacity caps how many records the conversation ledger retains,
// dropping the oldest past the cap. Zero, the default, keeps everything.
func WithMemoryCapacity(records int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.memoryCapacity = records
	}
}

// WithChunkBoundaries overrides the sentence-terminal runes responses are cut
// at. The default covers ASCII and full-width CJK punctuation.
func WithChunkBoundaries(boundaryRunes string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.boundaryRunes = boundaryRunes
	}
}

// WithMinChunkLength holds boundary cuts back until a chunk has at least this
// many runes, so stray short sentences do not become tiny synthesis requests.
// Zero, the default, cuts at every boundary.
func WithMinChunkLength(runes int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.minChunkRunes = runes
	}
}

// WithMaxChunkLength caps how many runes a chunk may grow to before it is cut
// even without a sentence boundary.
func WithMaxChunkLength(runes int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxChunkRunes = runes
	}
}

// WithBargeInPolicy decides what a final utterance does while a turn is
// responding. The default cancels the turn and starts a new one.
func WithBargeInPolicy(policy BargeInPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.bargeInPolicy = policy
	}
}

// WithInterruptClassifier routes barge-in candidates through a classifier
// before they cancel the active turn. Noise and backchannel verdicts leave
// the turn running.
func WithInterruptClassifier(classifier InterruptClassifier) OrchestratorOption {
	return func(o *Orchestrator) {
		o.classifier = classifier
	}
}

// WithPauseOnSpeechActivity pauses playback the moment voice activity is
// detected, before any transcript exists. The pause lifts again if the
// speech never finalizes into an utterance.
func WithPauseOnSpeechActivity() OrchestratorOption {
	return func(o *Orchestrator) {
		o.pauseOnSpeech = true
	}
}

// WithStallTimeout finalizes a turn as errored when the model stream
// produces nothing for the given duration. Zero, the default, imposes no
// timeout: a stalled collaborator stalls the turn until barged in.
func WithStallTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.stallTimeout = timeout
	}
}

// WithIdleThreshold arms the idle monitor: once the conversation has been
// quiet for the given duration, a self-starter prompt opens a new turn.
func WithIdleThreshold(threshold time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.idleThreshold = threshold
	}
}

// WithIdleCheckInterval sets how often the idle monitor polls. Defaults to
// one second.
func WithIdleCheckInterval(interval time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.idleInterval = interval
	}
}

// WithIdlePrompts sets the rotation of self-starter prompts the idle monitor
// submits.
func WithIdlePrompts(prompts ...string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.idlePrompts = prompts
	}
}

// WithSegmenterOptions forwards options to the utterance segmenter (silence
// gap, speaker label, minimum utterance length).
func WithSegmenterOptions(opts ...SegmenterOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.segmenterOpts = append(o.segmenterOpts, opts...)
	}
}

// WithEventHandler registers a handler for orchestration events. Repeating
// the option registers additional handlers in order.
func WithEventHandler(handler EventHandler) OrchestratorOption {
	return func(o *Orchestrator) {
		if handler != nil {
			o.handlers = append(o.handlers, handler)
		}
	}
}
