// Command nola runs a spoken-dialogue companion in the terminal: microphone
// in, recognized speech through the turn-taking engine, synthesized speech
// out, with a chat-style view of the conversation. Typing works alongside
// speech; both feed the same turn-taking rules.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/nolavoice/nola-core/core"
	"github.com/nolavoice/nola-core/core/audio/miniaudio"
	"github.com/nolavoice/nola-core/core/events"
	interruptllm "github.com/nolavoice/nola-core/core/interruptions/llm"
	"github.com/nolavoice/nola-core/core/llms/groq"
	"github.com/nolavoice/nola-core/core/llms/openai"
	sttdeepgram "github.com/nolavoice/nola-core/core/speechtotext/deepgram"
	ttsdeepgram "github.com/nolavoice/nola-core/core/texttospeech/deepgram"
)

const defaultInstructions = "You are a friendly voice companion. Answer briefly " +
	"and conversationally, in a way that sounds natural when spoken aloud. " +
	"Prefer a couple of short sentences over lists."

func main() {
	textOnly := flag.Bool("text-only", false, "keyboard only, no microphone or speaker")
	transcript := flag.String("transcript", "", "append conversation records to this JSON-lines file and resume from it")
	provider := flag.String("provider", "groq", "language model provider (groq, openai)")
	model := flag.String("model", "", "override the language model")
	voiceName := flag.String("voice", "asteria", "synthesis voice (asteria, luna, orion, zeus, ...)")
	classify := flag.Bool("classify-interrupts", false, "classify barge-ins so backchannels do not cancel turns")
	idleAfter := flag.Duration("idle-after", 0, "re-open the conversation after this much silence (0 disables)")
	flag.Parse()

	if err := run(*textOnly, *transcript, *provider, *model, *voiceName, *classify, *idleAfter); err != nil {
		fmt.Fprintln(os.Stderr, "nola:", err)
		os.Exit(1)
	}
}

func run(textOnly bool, transcript, provider, model, voiceName string, classify bool, idleAfter time.Duration) error {
	ctx := context.Background()

	chat, err := newChatClient(provider, model)
	if err != nil {
		return err
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithStreamingLLM(chat),
		orchestration.WithInstructions(defaultInstructions),
	}
	if transcript != "" {
		opts = append(opts, orchestration.WithTranscript(transcript))
	}
	if classify {
		// Classification needs structured output, which only the groq client
		// speaks; it stays on groq regardless of the chat provider.
		opts = append(opts, orchestration.WithInterruptClassifier(interruptllm.NewClassifier(groq.NewClient())))
	}
	if idleAfter > 0 {
		opts = append(opts, orchestration.WithIdleThreshold(idleAfter))
	}

	if !textOnly {
		audioClient, err := miniaudio.NewClient()
		if err != nil {
			return fmt.Errorf("failed to open audio devices: %w", err)
		}
		defer audioClient.Close()

		synthesizer, err := ttsdeepgram.NewTextToSpeechClient(ctx, resolveVoice(voiceName))
		if err != nil {
			return fmt.Errorf("failed to create synthesizer: %w", err)
		}

		opts = append(opts,
			orchestration.WithSpeechToText(sttdeepgram.NewTranscriptionClient()),
			orchestration.WithSpeechSynthesizer(synthesizer),
			orchestration.WithAudioOutput(audioClient),
			orchestration.WithAudioInput(audioClient),
			orchestration.WithEncodingInfo(audioClient.EncodingInfo()),
			orchestration.WithPauseOnSpeechActivity(),
		)
	}

	// The engine publishes into the UI event loop; the program variable is
	// assigned before Start so no event can race the hookup.
	var program *tea.Program
	opts = append(opts, orchestration.WithEventHandler(func(event events.Event) {
		if program != nil {
			program.Send(event)
		}
	}))

	engine := orchestration.NewOrchestrator(opts...)
	program = tea.NewProgram(newUI(engine, !textOnly), tea.WithAltScreen())

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Close()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ui failed: %w", err)
	}
	return nil
}

func newChatClient(provider, model string) (orchestration.StreamingLLM, error) {
	switch provider {
	case "groq":
		llmOpts := []groq.ClientOption{}
		if model != "" {
			llmOpts = append(llmOpts, groq.WithModel(model))
		}
		return groq.NewClient(llmOpts...), nil
	case "openai":
		llmOpts := []openai.ClientOption{}
		if model != "" {
			llmOpts = append(llmOpts, openai.WithModel(model))
		}
		return openai.NewClient(llmOpts...), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func resolveVoice(name string) ttsdeepgram.Voice {
	switch name {
	case "luna":
		return ttsdeepgram.VoiceLuna
	case "stella":
		return ttsdeepgram.VoiceStella
	case "athena":
		return ttsdeepgram.VoiceAthena
	case "hera":
		return ttsdeepgram.VoiceHera
	case "orion":
		return ttsdeepgram.VoiceOrion
	case "arcas":
		return ttsdeepgram.VoiceArcas
	case "perseus":
		return ttsdeepgram.VoicePerseus
	case "angus":
		return ttsdeepgram.VoiceAngus
	case "orpheus":
		return ttsdeepgram.VoiceOrpheus
	case "helios":
		return ttsdeepgram.VoiceHelios
	case "zeus":
		return ttsdeepgram.VoiceZeus
	default:
		return ttsdeepgram.VoiceAsteria
	}
}
