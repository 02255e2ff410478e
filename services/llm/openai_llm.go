package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// deepseekBaseURL is the OpenAI-compatible DeepSeek endpoint.
const deepseekBaseURL = "https://api.deepseek.com/v1"

// OpenAICompatClient streams chat completions from any OpenAI-compatible
// backend (OpenAI itself, DeepSeek, or a local gateway).
type OpenAICompatClient struct {
	client *openai.Client
	label  string
}

// NewOpenAIChatClient builds a client for the hosted OpenAI API.
// Falls back to the OPENAI_API_KEY environment variable, then the
// container secret, when no key is passed.
func NewOpenAIChatClient(apiKey string) (*OpenAICompatClient, error) {
	key, err := resolveKey(apiKey, "OPENAI_API_KEY", "/run/secrets/openai_api_key")
	if err != nil {
		return nil, err
	}
	slog.Info("Initializing OpenAI client")
	return &OpenAICompatClient{client: openai.NewClient(key), label: "openai"}, nil
}

// NewDeepSeekChatClient builds a client for the DeepSeek API, which
// speaks the OpenAI wire protocol on its own base URL.
func NewDeepSeekChatClient(apiKey string) (*OpenAICompatClient, error) {
	key, err := resolveKey(apiKey, "DEEPSEEK_API_KEY", "/run/secrets/deepseek_api_key")
	if err != nil {
		return nil, err
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = deepseekBaseURL
	slog.Info("Initializing DeepSeek client", "base_url", deepseekBaseURL)
	return &OpenAICompatClient{client: openai.NewClientWithConfig(cfg), label: "deepseek"}, nil
}

func resolveKey(explicit, envVar, secretPath string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	if raw, err := os.ReadFile(secretPath); err == nil {
		slog.Info("Read API key from container secret", "path", secretPath)
		return strings.TrimSpace(string(raw)), nil
	}
	return "", fmt.Errorf("%s not set and secret not found at %s", envVar, secretPath)
}

// ChatStream implements the ChatClient interface.
func (o *OpenAICompatClient) ChatStream(ctx context.Context, req ChatRequest,
	cb StreamCallback) (*StepResult, error) {

	slog.Debug("Streaming chat completion", "provider", o.label, "model", req.Model)

	apiReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		Tools:    toOpenAITools(req.Tools),
		Stream:   true,
	}
	if req.Params.Temperature != nil {
		apiReq.Temperature = *req.Params.Temperature
	}
	if req.Params.MaxTokens != nil {
		apiReq.MaxCompletionTokens = *req.Params.MaxTokens
	}
	if req.Params.TopP != nil {
		apiReq.TopP = *req.Params.TopP
	}
	if len(req.Params.Stop) > 0 {
		apiReq.Stop = req.Params.Stop
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		slog.Error("Chat completion stream failed to open", "provider", o.label, "error", err)
		return nil, fmt.Errorf("%s stream failed: %w", o.label, err)
	}
	defer stream.Close()

	var content strings.Builder
	calls := newToolCallAssembler()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("Chat completion stream broke", "provider", o.label, "error", err)
			return nil, fmt.Errorf("%s stream recv: %w", o.label, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.ReasoningContent != "" {
			if err := cb(Delta{Thinking: delta.ReasoningContent}); err != nil {
				return nil, err
			}
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if err := cb(Delta{Content: delta.Content}); err != nil {
				return nil, err
			}
		}
		for _, tc := range delta.ToolCalls {
			calls.add(tc)
		}
	}

	return &StepResult{
		Content:   content.String(),
		ToolCalls: calls.finish(),
	}, nil
}

// toolCallAssembler stitches streamed tool-call fragments back into
// whole calls. OpenAI splits one call across many deltas keyed by index.
type toolCallAssembler struct {
	order []int
	parts map[int]*toolCallPart
}

type toolCallPart struct {
	id   string
	name string
	args strings.Builder
}

func newToolCallAssembler() *toolCallAssembler {
	return &toolCallAssembler{parts: make(map[int]*toolCallPart)}
}

func (a *toolCallAssembler) add(tc openai.ToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	part, ok := a.parts[idx]
	if !ok {
		part = &toolCallPart{}
		a.parts[idx] = part
		a.order = append(a.order, idx)
	}
	if tc.ID != "" {
		part.id = tc.ID
	}
	if tc.Function.Name != "" {
		part.name = tc.Function.Name
	}
	part.args.WriteString(tc.Function.Arguments)
}

func (a *toolCallAssembler) finish() []ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	out := make([]ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		part := a.parts[idx]
		args := part.args.String()
		if args == "" {
			args = "{}"
		}
		out = append(out, ToolCall{
			ID:        part.id,
			Name:      part.name,
			Arguments: json.RawMessage(args),
		})
	}
	return out
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		converted := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, converted)
	}
	return out
}

func toOpenAITools(specs []ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Schema,
			},
		})
	}
	return out
}
