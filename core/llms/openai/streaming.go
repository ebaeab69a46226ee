package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/nolavoice/nola-core/core/llms"
)

// Stream is a prepared streamed response. The HTTP request is performed when
// Chunks is iterated.
type Stream struct {
	apiKey string

	model    string
	messages []openAIMessage
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		reqBody := requestBody{
			Model:  s.model,
			Input:  s.messages,
			Stream: true,
		}

		requestBodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			yield(nil, fmt.Errorf("error marshalling JSON: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
		if err != nil {
			yield(nil, fmt.Errorf("error creating HTTP request: %w", err))
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			yield(nil, fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield(nil, fmt.Errorf("non-OK HTTP status: %s", resp.Status))
			return
		}

		usage := llms.Usage{}
		lapTime := time.Now()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))

			if len(chunk) == 0 {
				continue
			}

			if !strings.HasPrefix(chunk, eventPrefix) {
				continue
			}

			event := strings.TrimSpace(strings.TrimPrefix(chunk, eventPrefix))

			scanner.Scan()
			chunk = strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))

			switch streamingEventType(event) {
			case streamingEventResponseCreated:
				lapTime = time.Now()

			case streamingEventResponseQueued:
				lapTime = time.Now()

			case streamingEventResponseInProgress:
				usage.QueueTime = time.Since(lapTime).Seconds()
				lapTime = time.Now()

			case streamingEventResponseOutputItemAdded:
				usage.InputProcessingTime = time.Since(lapTime).Seconds()
				lapTime = time.Now()

			case streamingEventResponseOutputTextDelta:
				var responseBody streamingBodyResponseTextDelta
				if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
					if !yield(nil, fmt.Errorf("error unmarshalling JSON: %w", err)) {
						return
					}
					continue
				}
				if !yield(StreamContentChunk{finishReason: nil, content: responseBody.Delta}, nil) {
					return
				}

			case streamingEventResponseReasoningTextDelta,
				streamingEventResponseReasoningSummaryTextDelta:
				var responseBody streamingBodyResponseTextDelta
				err := json.Unmarshal([]byte(chunk), &responseBody)
				if err != nil {
					if !yield(nil, fmt.Errorf("error unmarshalling JSON: %w", err)) {
						return
					}
					continue
				}
				if !yield(StreamReasoningChunk{reasoning: responseBody.Delta}, nil) {
					return
				}

			case streamingEventResponseCompleted:
				usage.OutputProcessingTime = time.Since(lapTime).Seconds()
				usage.TotalTime = usage.InputProcessingTime + usage.OutputProcessingTime

				var responseBody streamingBodyResponseCompleted
				if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
					if !yield(StreamUsageChunk{usage: usage}, nil) {
						return
					}
					if !yield(nil, fmt.Errorf("error unmarshalling JSON: %w", err)) {
						return
					}
					continue
				}

				if responseBody.Response.Usage != nil {
					copier.Copy(&usage, responseBody.Response.Usage)
				}

				if !yield(StreamUsageChunk{usage: usage}, nil) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("error reading streamed response: %w", err))
			return
		}
	}
}

type requestBody struct {
	Model  string          `json:"model"`
	Input  []openAIMessage `json:"input"`
	Stream bool            `json:"stream"`
}

type streamingEventType string

const (
	streamingEventResponseOutputTextDelta           streamingEventType = "response.output_text.delta"
	streamingEventResponseOutputItemAdded           streamingEventType = "response.output_item.added"
	streamingEventResponseReasoningTextDelta        streamingEventType = "response.reasoning_text.delta"
	streamingEventResponseReasoningSummaryTextDelta streamingEventType = "response.reasoning_summary_text.delta"
	streamingEventResponseCreated                   streamingEventType = "response.created"
	streamingEventResponseQueued                    streamingEventType = "response.queued"
	streamingEventResponseInProgress                streamingEventType = "response.in_progress"
	streamingEventResponseCompleted                 streamingEventType = "response.completed"
)

type streamingBodyResponseTextDelta struct {
	Delta string `json:"delta"`
}

// streamingBodyResponseCompleted is emitted when the model response is complete
type streamingBodyResponseCompleted struct {
	Response struct {
		// Usage represents token usage details including input tokens, output
		// tokens, a breakdown of output tokens, and the total tokens used.
		Usage *responseBodyUsage `json:"usage"`
	} `json:"response"`
}

// responseBodyUsage mirrors the Responses API usage payload. Field names match
// llms.Usage so token counts copy over field by field.
type responseBodyUsage struct {
	// InputTokens represents the number of input tokens.
	InputTokens int `json:"input_tokens"`
	// InputTokensDetails represents a detailed breakdown of the input tokens.
	InputTokensDetails *struct {
		// CachedTokens represents the number of tokens that were retrieved
		// from the cache.
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details"`
	// OutputTokens represents the number of output tokens.
	OutputTokens int `json:"output_tokens"`
	// OutputTokensDetails represents a detailed breakdown of the output tokens.
	OutputTokensDetails *struct {
		// ReasoningTokens represents the number of reasoning tokens.
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
	// TotalTokens represents the total number of tokens used.
	TotalTokens int `json:"total_tokens"`
}

type StreamRoleChunk struct {
	finishReason *string
	role         string
}

func (s StreamRoleChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamRoleChunk) Role() string {
	return s.role
}

type StreamReasoningChunk struct {
	finishReason *string
	reasoning    string
	channel      string
}

func (s StreamReasoningChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamReasoningChunk) Reasoning() string {
	return s.reasoning
}

func (s StreamReasoningChunk) Channel() string {
	return s.channel
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}

type StreamUsageChunk struct {
	finishReason *string
	usage        llms.Usage
}

func (s StreamUsageChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamUsageChunk) Usage() llms.Usage {
	return s.usage
}
