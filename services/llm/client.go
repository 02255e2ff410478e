package llm

import (
	"context"
	"encoding/json"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// ToolCall is a provider-reported request to run one tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSpec describes one tool the model may call.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"parameters"`
}

// Message is one entry of the provider-facing conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Delta is one streamed fragment. Thinking fragments are reasoning
// traces some models emit alongside the answer.
type Delta struct {
	Content  string `json:"content,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// StreamCallback receives deltas as they arrive. Returning an error
// aborts the stream.
type StreamCallback func(Delta) error

// StepResult is the completed outcome of one chat turn: the full
// assistant text plus any tool calls the model decided on.
type StepResult struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChatRequest is one streaming chat completion request.
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Tools    []ToolSpec       `json:"tools,omitempty"`
	Params   GenerationParams `json:"params"`
}

// ChatClient defines the standard interface for any chat backend.
// Implementations stream deltas through the callback and return the
// assembled result when the turn completes.
type ChatClient interface {
	ChatStream(ctx context.Context, req ChatRequest, cb StreamCallback) (*StepResult, error)
}
