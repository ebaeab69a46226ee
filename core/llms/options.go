package llms

// PromptOptions carries the prompt context shared by streaming and structured
// prompting.
type PromptOptions struct {
	Instructions string
	Messages     []Message
}

// PromptOption is a function that can be used to modify the prompt options.
type PromptOption func(*PromptOptions)

// WithInstructions sets the system instructions for the prompt.
// Repeating this option overwrites the previous instructions.
func WithInstructions(instructions string) PromptOption {
	return func(opts *PromptOptions) {
		opts.Instructions = instructions
	}
}

// WithMessages appends conversation history to the prompt.
// Repeating this option sequentially appends more messages.
func WithMessages(messages ...Message) PromptOption {
	return func(opts *PromptOptions) {
		opts.Messages = append(opts.Messages, messages...)
	}
}
