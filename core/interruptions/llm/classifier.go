// Package llm classifies barge-in candidates with a structured-output model
// call, so that backchannel feedback and recognizer noise do not cancel a
// turn mid-sentence.
package llm

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	orchestration "github.com/nolavoice/nola-core/core"
	"github.com/nolavoice/nola-core/core/llms"
)

const classifierInstructions = `You are classifying what a user said while a ` +
	`voice assistant was mid-answer. Classify the utterance as exactly one of:
- "prompt": a real new request, question, correction, or a demand to stop; the assistant should break off and react
- "backchannel": listener feedback that needs no reaction ("mhm", "right", "okay", "go on")
- "noise": a recognition artifact or fragment that carries no intent

When unsure between prompt and the others, choose prompt; talking over a real
request is worse than pausing for feedback.`

// StructuredLLM is the model contract the classifier needs: a single prompt
// answered directly into a schema-derived structure.
type StructuredLLM interface {
	PromptWithStructure(ctx context.Context, prompt string, output any, opts ...llms.PromptOption) error
}

type classification struct {
	Type string `json:"type" jsonschema:"title=Type,description=The kind of interruption,enum=prompt,enum=backchannel,enum=noise"`
}

// Classifier decides whether a mid-turn utterance should barge in.
type Classifier struct {
	llm StructuredLLM
}

func NewClassifier(classificationLLM StructuredLLM) *Classifier {
	return &Classifier{llm: classificationLLM}
}

// Classify maps one interrupting utterance to a verdict. The response the
// assistant has spoken so far is provided as context, since "stop" only
// means something against what is being said.
func (c *Classifier) Classify(ctx context.Context, utterance string, responseSoFar string) (orchestration.InterruptClass, error) {
	ctx, span := tracer.Start(ctx, "classify interruption")
	defer span.End()

	var messages []llms.Message
	if responseSoFar != "" {
		messages = append(messages, llms.Message{Role: llms.MessageRoleAssistant, Content: responseSoFar})
	}

	resp := classification{}
	if err := c.llm.PromptWithStructure(ctx, utterance, &resp,
		llms.WithInstructions(classifierInstructions),
		llms.WithMessages(messages...),
	); err != nil {
		return "", fmt.Errorf("failed to prompt interruption classifier: %w", err)
	}

	class, err := toInterruptClass(resp.Type)
	if err != nil {
		return "", err
	}

	span.SetAttributes(attribute.String("interruption.class", string(class)))
	logger.Debug("classified interruption", "class", string(class))
	return class, nil
}

func toInterruptClass(classified string) (orchestration.InterruptClass, error) {
	switch classified {
	case "prompt":
		return orchestration.InterruptClassPrompt, nil
	case "backchannel":
		return orchestration.InterruptClassBackchannel, nil
	case "noise":
		return orchestration.InterruptClassNoise, nil
	default:
		return "", fmt.Errorf("unknown interruption class: %s", classified)
	}
}
