package openai

import (
	"context"
	"os"

	"github.com/nolavoice/nola-core/core/llms"
)

const (
	url = "https://api.openai.com/v1/responses"

	defaultModel = "gpt-4o-mini"

	eventPrefix = "event:"
	chunkPrefix = "data:"
)

// Client talks to OpenAI's Responses API.
type Client struct {
	apiKey string
	model  string
}

type ClientOption func(*Client)

// WithAPIKey overrides the key taken from the OPENAI_API_KEY environment
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

// NewClient creates an OpenAI client. The API key defaults to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// PromptWithStream prepares a streamed response for the given prompt. The
// request is not sent until the returned stream is iterated, so the context
// that matters is the one passed to Chunks.
func (c *Client) PromptWithStream(_ context.Context, prompt string, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	messages := toOpenAIMessages(options.Instructions, options.Messages)
	messages = append(messages, openAIMessage{
		Type:    messageTypeMessage,
		Role:    messageRoleUser,
		Content: prompt,
	})

	return &Stream{
		apiKey:   c.apiKey,
		model:    c.model,
		messages: messages,
	}
}
