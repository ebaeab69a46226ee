package openai

import "github.com/nolavoice/nola-core/core/llms"

type openAIMessage struct {
	Type messageType `json:"type"`

	Role    messageRole `json:"role,omitempty"`
	Content string      `json:"content,omitempty"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleDeveloper messageRole = "developer"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

type messageType string

const (
	messageTypeMessage messageType = "message"
)

func toOpenAIMessages(instructions string, history []llms.Message) []openAIMessage {
	messages := []openAIMessage{}
	if instructions != "" {
		messages = append(messages, openAIMessage{
			Role:    messageRoleDeveloper,
			Type:    messageTypeMessage,
			Content: instructions,
		})
	}

	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		messages = append(messages, openAIMessage{
			Type:    messageTypeMessage,
			Role:    toMessageRole(msg.Role),
			Content: msg.Content,
		})
	}
	return messages
}

func toMessageRole(role llms.MessageRole) messageRole {
	switch role {
	case llms.MessageRoleSystem:
		return messageRoleDeveloper
	case llms.MessageRoleAssistant:
		return messageRoleAssistant
	default:
		return messageRoleUser
	}
}
