package llm

import (
	"context"
	"fmt"
)

// MockTurn scripts one ChatStream call of a MockChatClient.
type MockTurn struct {
	Deltas []Delta
	Result StepResult
	Err    error
}

// MockChatClient replays scripted turns. Used by handler and CLI tests
// so no real backend is needed.
type MockChatClient struct {
	Turns []MockTurn

	// Requests records every request received, in order.
	Requests []ChatRequest

	next int
}

// ChatStream implements the ChatClient interface.
func (m *MockChatClient) ChatStream(ctx context.Context, req ChatRequest,
	cb StreamCallback) (*StepResult, error) {

	m.Requests = append(m.Requests, req)
	if m.next >= len(m.Turns) {
		return nil, fmt.Errorf("mock exhausted after %d turns", len(m.Turns))
	}
	turn := m.Turns[m.next]
	m.next++

	if turn.Err != nil {
		return nil, turn.Err
	}
	for _, d := range turn.Deltas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := cb(d); err != nil {
			return nil, err
		}
	}
	result := turn.Result
	return &result, nil
}
