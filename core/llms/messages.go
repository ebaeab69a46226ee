package llms

// MessageRole describes who authored a conversation message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a single provider-facing conversation message. History handed to
// a provider is expressed as a flat message list; the engine's own turn
// bookkeeping stays outside this package.
type Message struct {
	Role    MessageRole
	Content string
}
