package groq

import (
	"context"
	"os"

	"github.com/nolavoice/nola-core/core/llms"
)

const (
	url = "https://api.groq.com/openai/v1/chat/completions"

	defaultModel = "llama-3.3-70b-versatile"

	endMessage  = "[DONE]"
	chunkPrefix = "data:"
)

// Client talks to Groq's OpenAI-compatible chat completions API.
type Client struct {
	apiKey string
	model  string
}

type ClientOption func(*Client)

// WithAPIKey overrides the key taken from the GROQ_API_KEY environment
// variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithModel overrides the default model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// NewClient creates a Groq client. The API key defaults to the GROQ_API_KEY
// environment variable.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		apiKey: os.Getenv("GROQ_API_KEY"),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// PromptWithStream prepares a streamed completion for the given prompt. The
// request is not sent until the returned stream is iterated, so the context
// that matters is the one passed to Chunks.
func (c *Client) PromptWithStream(_ context.Context, prompt string, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	messages := toMessages(options.Instructions, options.Messages)
	messages = append(messages, message{
		Role:    messageRoleUser,
		Content: prompt,
	})

	return &Stream{
		apiKey:   c.apiKey,
		model:    c.model,
		messages: messages,
	}
}
