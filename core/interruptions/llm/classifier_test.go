package llm

import (
	"context"
	"errors"
	"testing"

	orchestration "github.com/nolavoice/nola-core/core"
	"github.com/nolavoice/nola-core/core/llms"
)

func TestClassifyMapsModelVerdicts(t *testing.T) {
	cases := []struct {
		verdict string
		want    orchestration.InterruptClass
	}{
		{verdict: "prompt", want: orchestration.InterruptClassPrompt},
		{verdict: "backchannel", want: orchestration.InterruptClassBackchannel},
		{verdict: "noise", want: orchestration.InterruptClassNoise},
	}

	for _, tc := range cases {
		t.Run(tc.verdict, func(t *testing.T) {
			classifier := NewClassifier(&scriptedStructuredLLM{verdict: tc.verdict})

			class, err := classifier.Classify(context.Background(), "wait a second", "The capital of France")
			if err != nil {
				t.Fatalf("expected clean classification, got %v", err)
			}
			if class != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, class)
			}
		})
	}
}

func TestClassifyProvidesResponseContextToTheModel(t *testing.T) {
	llmStub := &scriptedStructuredLLM{verdict: "backchannel"}
	classifier := NewClassifier(llmStub)

	if _, err := classifier.Classify(context.Background(), "mhm", "As I was saying"); err != nil {
		t.Fatalf("expected clean classification, got %v", err)
	}

	if llmStub.prompt != "mhm" {
		t.Fatalf("expected the utterance as the prompt, got %q", llmStub.prompt)
	}
	if llmStub.options.Instructions == "" {
		t.Fatalf("expected classification instructions on the prompt")
	}
	if len(llmStub.options.Messages) != 1 {
		t.Fatalf("expected the spoken response as context, got %d messages", len(llmStub.options.Messages))
	}
	message := llmStub.options.Messages[0]
	if message.Role != llms.MessageRoleAssistant || message.Content != "As I was saying" {
		t.Fatalf("expected the response so far as an assistant message, got %+v", message)
	}
}

func TestClassifyOmitsContextWhenNothingWasSpoken(t *testing.T) {
	llmStub := &scriptedStructuredLLM{verdict: "noise"}
	classifier := NewClassifier(llmStub)

	if _, err := classifier.Classify(context.Background(), "uh", ""); err != nil {
		t.Fatalf("expected clean classification, got %v", err)
	}
	if got := len(llmStub.options.Messages); got != 0 {
		t.Fatalf("expected no context messages before the first word, got %d", got)
	}
}

func TestClassifySurfacesModelFailure(t *testing.T) {
	scriptedErr := errors.New("scripted model failure")
	classifier := NewClassifier(&scriptedStructuredLLM{err: scriptedErr})

	if _, err := classifier.Classify(context.Background(), "hello", ""); !errors.Is(err, scriptedErr) {
		t.Fatalf("expected the model failure to surface, got %v", err)
	}
}

func TestClassifyRejectsUnknownVerdicts(t *testing.T) {
	classifier := NewClassifier(&scriptedStructuredLLM{verdict: "shrug"})

	if _, err := classifier.Classify(context.Background(), "hello", ""); err == nil {
		t.Fatalf("expected an unknown verdict to fail")
	}
}

// scriptedStructuredLLM answers every structured prompt with a fixed verdict,
// recording what it was asked.
type scriptedStructuredLLM struct {
	verdict string
	err     error

	prompt  string
	options llms.PromptOptions
}

func (l *scriptedStructuredLLM) PromptWithStructure(_ context.Context, prompt string, output any, opts ...llms.PromptOption) error {
	l.prompt = prompt
	for _, opt := range opts {
		opt(&l.options)
	}
	if l.err != nil {
		return l.err
	}

	typed, ok := output.(*classification)
	if !ok {
		return errors.New("unexpected output type")
	}
	typed.Type = l.verdict
	return nil
}
