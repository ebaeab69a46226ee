package openai

import (
	"testing"

	"github.com/nolavoice/nola-core/core/llms"
)

func TestToOpenAIMessages_PrependsInstructionsAsDeveloperMessage(t *testing.T) {
	history := []llms.Message{
		{Role: llms.MessageRoleUser, Content: "first prompt"},
		{Role: llms.MessageRoleAssistant, Content: "first answer"},
	}

	messages := toOpenAIMessages("be brief", history)

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Role != messageRoleDeveloper || messages[0].Content != "be brief" {
		t.Fatalf("unexpected instructions message: %+v", messages[0])
	}
	if messages[1].Role != messageRoleUser || messages[1].Content != "first prompt" {
		t.Fatalf("unexpected user message: %+v", messages[1])
	}
	if messages[2].Role != messageRoleAssistant || messages[2].Content != "first answer" {
		t.Fatalf("unexpected assistant message: %+v", messages[2])
	}
}

func TestToOpenAIMessages_SkipsEmptyContent(t *testing.T) {
	history := []llms.Message{
		{Role: llms.MessageRoleUser, Content: "kept"},
		{Role: llms.MessageRoleAssistant, Content: ""},
		{Role: llms.MessageRoleUser, Content: "also kept"},
	}

	messages := toOpenAIMessages("", history)

	if len(messages) != 2 {
		t.Fatalf("expected empty assistant message to be dropped, got %d messages", len(messages))
	}
	if messages[0].Content != "kept" || messages[1].Content != "also kept" {
		t.Fatalf("unexpected messages: %+v", messages)
	}
}

func TestToOpenAIMessages_SystemRoleMapsToDeveloper(t *testing.T) {
	history := []llms.Message{
		{Role: llms.MessageRoleSystem, Content: "stay on topic"},
	}

	messages := toOpenAIMessages("", history)

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Role != messageRoleDeveloper {
		t.Fatalf("expected system role to map to developer, got %q", messages[0].Role)
	}
}
