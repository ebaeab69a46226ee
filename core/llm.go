package orchestration

import (
	"context"

	"github.com/nolavoice/nola-core/core/llms"
)

// StreamingLLM is the language-model collaborator contract. PromptWithStream
// opens a request for the turn's prompt and returns a lazily-evaluated delta
// stream; cancellation travels through the context handed to the stream.
type StreamingLLM interface {
	PromptWithStream(ctx context.Context, prompt string, opts ...llms.PromptOption) llms.Stream
}

// StructuredLLM is the optional structured-output contract used by the
// barge-in classifier. Output must be a pointer to a struct; the response is
// constrained to its reflected JSON schema.
type StructuredLLM interface {
	PromptWithStructure(ctx context.Context, prompt string, output any, opts ...llms.PromptOption) error
}
