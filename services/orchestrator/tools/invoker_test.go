// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/observability"
)

// stubTool is a scriptable tool for invoker tests.
type stubTool struct {
	name  string
	delay time.Duration
	reply string
	err   error
}

func (t *stubTool) Name() string            { return t.name }
func (t *stubTool) Description() string     { return "stub" }
func (t *stubTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }

func (t *stubTool) Call(ctx context.Context, _ json.RawMessage) (string, error) {
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if t.err != nil {
		return "", t.err
	}
	return t.reply, nil
}

func TestCatalog_RegistrationOrder(t *testing.T) {
	cat := NewCatalog()
	cat.Register(&stubTool{name: "charlie"})
	cat.Register(&stubTool{name: "alpha"})
	cat.Register(&stubTool{name: "bravo"})

	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, cat.Names())

	defs := cat.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "charlie", defs[0].Name)
}

func TestCatalog_ReplaceKeepsPosition(t *testing.T) {
	cat := NewCatalog()
	cat.Register(&stubTool{name: "alpha", reply: "v1"})
	cat.Register(&stubTool{name: "bravo"})
	cat.Register(&stubTool{name: "alpha", reply: "v2"})

	assert.Equal(t, []string{"alpha", "bravo"}, cat.Names())
	assert.Equal(t, 2, cat.Len())

	tool, ok := cat.Get("alpha")
	require.True(t, ok)
	got, err := tool.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestInvoker_OrderPreserved(t *testing.T) {
	cat := NewCatalog()
	// The slowest tool comes first; its result must still come first.
	cat.Register(&stubTool{name: "slow", delay: 50 * time.Millisecond, reply: "slow done"})
	cat.Register(&stubTool{name: "fast", reply: "fast done"})

	inv := NewInvoker(cat, nil)
	results := inv.Invoke(context.Background(), []agent.ToolCall{
		{ID: "call-1", Name: "slow"},
		{ID: "call-2", Name: "fast"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "call-1", results[0].CallID)
	assert.Equal(t, "slow done", results[0].Content)
	assert.Equal(t, "call-2", results[1].CallID)
	assert.Equal(t, "fast done", results[1].Content)
}

func TestInvoker_FailureIsolated(t *testing.T) {
	cat := NewCatalog()
	cat.Register(&stubTool{name: "broken", err: errors.New("backend unreachable")})
	cat.Register(&stubTool{name: "healthy", reply: "still fine"})

	inv := NewInvoker(cat, nil)
	results := inv.Invoke(context.Background(), []agent.ToolCall{
		{ID: "call-1", Name: "broken"},
		{ID: "call-2", Name: "healthy"},
	})

	require.Len(t, results, 2)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Content, "backend unreachable")
	assert.True(t, results[1].OK)
	assert.Equal(t, "still fine", results[1].Content)
}

func TestInvoker_UnknownTool(t *testing.T) {
	inv := NewInvoker(NewCatalog(), nil)
	results := inv.Invoke(context.Background(), []agent.ToolCall{
		{ID: "call-1", Name: "no_such_tool"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Content, "tool not found")
	assert.Equal(t, agent.RoleTool, results[0].Role)
}

func TestInvoker_CallTimeout(t *testing.T) {
	cat := NewCatalog()
	cat.Register(&stubTool{name: "stuck", delay: time.Second, reply: "never"})

	inv := NewInvoker(cat, &InvokerOptions{CallTimeout: 20 * time.Millisecond})
	results := inv.Invoke(context.Background(), []agent.ToolCall{
		{ID: "call-1", Name: "stuck"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Content, "deadline")
}

func TestInvoker_EmptyBatch(t *testing.T) {
	inv := NewInvoker(NewCatalog(), nil)
	results := inv.Invoke(context.Background(), nil)
	assert.Empty(t, results)
}

func TestInvoker_ManyCallsWithLimit(t *testing.T) {
	cat := NewCatalog()
	cat.Register(&stubTool{name: "echo", reply: "ok"})

	inv := NewInvoker(cat, &InvokerOptions{MaxParallel: 2, CallTimeout: time.Second})

	calls := make([]agent.ToolCall, 10)
	for i := range calls {
		calls[i] = agent.ToolCall{ID: "call-" + strings.Repeat("x", i+1), Name: "echo"}
	}
	results := inv.Invoke(context.Background(), calls)

	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, calls[i].ID, r.CallID)
		assert.True(t, r.OK)
	}
}

func TestInvoker_RecordsCallMetrics(t *testing.T) {
	metrics := &observability.StreamingMetrics{
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_tool_calls_total"},
			[]string{"tool", "status"},
		),
	}

	cat := NewCatalog()
	cat.Register(&stubTool{name: "echo", reply: "ok"})
	cat.Register(&stubTool{name: "broken", err: errors.New("boom")})

	inv := NewInvoker(cat, &InvokerOptions{CallTimeout: time.Second, Metrics: metrics})
	inv.Invoke(context.Background(), []agent.ToolCall{
		{ID: "c1", Name: "echo"},
		{ID: "c2", Name: "broken"},
		{ID: "c3", Name: "missing"},
	})

	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues("echo", "ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues("broken", "error")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues("missing", "error")))
}
