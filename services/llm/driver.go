package llm

import (
	"context"

	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
)

// Driver adapts a ChatClient to the step interface the session runner
// drives. One driver is bound to a resolved provider, model, and tool
// list; handlers build one per request.
type Driver struct {
	client ChatClient
	model  string
	tools  []ToolSpec
	system string
	params GenerationParams
}

// NewDriver binds a resolved client and model to the runner's step
// interface. system may be empty; tools may be nil for a chat with no
// capabilities.
func NewDriver(client ChatClient, model string, tools []ToolSpec,
	system string, params GenerationParams) *Driver {

	return &Driver{
		client: client,
		model:  model,
		tools:  tools,
		system: system,
		params: params,
	}
}

// Step implements agent.StepDriver: it streams one chat completion over
// the full history and reports the terminal decision.
func (d *Driver) Step(ctx context.Context, history []agent.Turn,
	emit func(agent.StepEvent) error) error {

	req := ChatRequest{
		Model:    d.model,
		Messages: d.toMessages(history),
		Tools:    d.tools,
		Params:   d.params,
	}

	result, err := d.client.ChatStream(ctx, req, func(delta Delta) error {
		if delta.Thinking != "" {
			if err := emit(agent.StepEvent{Text: delta.Thinking, Thought: true}); err != nil {
				return err
			}
		}
		if delta.Content != "" {
			return emit(agent.StepEvent{Text: delta.Content})
		}
		return nil
	})
	if err != nil {
		return err
	}

	return emit(agent.StepEvent{
		Text:      result.Content,
		ToolCalls: toAgentCalls(result.ToolCalls),
		Terminal:  true,
	})
}

func (d *Driver) toMessages(history []agent.Turn) []Message {
	msgs := make([]Message, 0, len(history)+1)
	if d.system != "" {
		msgs = append(msgs, Message{Role: "system", Content: d.system})
	}
	for _, turn := range history {
		msg := Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
		switch turn.Role {
		case agent.RoleAssistant:
			for _, tc := range turn.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, ToolCall{
					ID:        tc.ID,
					Name:      tc.Name,
					Arguments: tc.Arguments,
				})
			}
		case agent.RoleTool:
			msg.ToolCallID = turn.CallID
			msg.Name = turn.Name
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func toAgentCalls(calls []ToolCall) []agent.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]agent.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = agent.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}
