// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"encoding/json"
	"strings"
	"testing"
)

// sseBody renders events in SSE wire format.
func sseBody(t *testing.T, events ...StreamEvent) string {
	t.Helper()
	var b strings.Builder
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("Failed to marshal event: %v", err)
		}
		b.WriteString("event: " + string(ev.Type) + "\n")
		b.WriteString("data: " + string(data) + "\n\n")
	}
	return b.String()
}

func TestStreamProcessor_AccumulatesAnswer(t *testing.T) {
	body := sseBody(t,
		StreamEvent{Type: StreamEventContent, Content: "Hello "},
		StreamEvent{Type: StreamEventContent, Content: "world."},
		StreamEvent{Type: StreamEventDone, SessionID: "sess-1"},
	)

	var out strings.Builder
	result, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Answer != "Hello world." {
		t.Errorf("Expected accumulated answer, got %q", result.Answer)
	}
	if result.SessionID != "sess-1" {
		t.Errorf("Expected session from done event, got %q", result.SessionID)
	}
	if result.Suspended() {
		t.Error("Completed turn should not be suspended")
	}
	if !strings.Contains(out.String(), "Hello world.") {
		t.Errorf("Tokens should be printed as they arrive, got %q", out.String())
	}
	if len(result.Events) != 3 {
		t.Errorf("Expected 3 recorded events, got %d", len(result.Events))
	}
}

func TestStreamProcessor_StopsAtToolRequest(t *testing.T) {
	body := sseBody(t,
		StreamEvent{Type: StreamEventContent, Content: "Let me check."},
		StreamEvent{
			Type:      StreamEventToolRequest,
			SessionID: "sess-1",
			ToolCalls: []ToolCallInfo{{ID: "call-1", Name: "get_weather",
				Arguments: json.RawMessage(`{"city":"Nome"}`)}},
		},
	)

	var out strings.Builder
	result, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !result.Suspended() {
		t.Fatal("tool_request should leave the result suspended")
	}
	if len(result.PendingCalls) != 1 || result.PendingCalls[0].Name != "get_weather" {
		t.Errorf("Expected get_weather pending, got %+v", result.PendingCalls)
	}
	if result.SessionID != "sess-1" {
		t.Errorf("tool_request should carry the session id, got %q", result.SessionID)
	}
}

func TestStreamProcessor_ErrorEvent(t *testing.T) {
	body := sseBody(t,
		StreamEvent{Type: StreamEventError, Content: "model unavailable"},
	)

	var out strings.Builder
	_, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader(body))
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("Expected error from error event, got %v", err)
	}
}

func TestStreamProcessor_Thoughts(t *testing.T) {
	body := sseBody(t,
		StreamEvent{Type: StreamEventThought, Content: "considering"},
		StreamEvent{Type: StreamEventContent, Content: "Answer."},
		StreamEvent{Type: StreamEventDone, SessionID: "sess-1"},
	)

	t.Run("hidden by default", func(t *testing.T) {
		var out strings.Builder
		result, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader(body))
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		if strings.Contains(out.String(), "considering") {
			t.Error("Thoughts should be hidden unless requested")
		}
		if strings.Contains(result.Answer, "considering") {
			t.Error("Thoughts must never join the answer")
		}
	})

	t.Run("shown when enabled", func(t *testing.T) {
		var out strings.Builder
		if _, err := NewStreamProcessorWithWriter(&out, true).Process(strings.NewReader(body)); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		if !strings.Contains(out.String(), "considering") {
			t.Error("Thoughts should print when enabled")
		}
	})
}

func TestStreamProcessor_ToolResults(t *testing.T) {
	ok := false
	body := sseBody(t,
		StreamEvent{Type: StreamEventToolResult, ToolName: "get_weather",
			Content: "timeout", OK: &ok},
		StreamEvent{Type: StreamEventContent, Content: "Could not check."},
		StreamEvent{Type: StreamEventDone, SessionID: "sess-1"},
	)

	var out strings.Builder
	if _, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader(body)); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(out.String(), "get_weather") || !strings.Contains(out.String(), "failed") {
		t.Errorf("Failed tool result should be surfaced, got %q", out.String())
	}
}

func TestStreamProcessor_IgnoresKeepAlives(t *testing.T) {
	body := ": ping\n\n" + sseBody(t,
		StreamEvent{Type: StreamEventContent, Content: "hi"},
		StreamEvent{Type: StreamEventDone, SessionID: "sess-1"},
	)

	var out strings.Builder
	result, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(result.Events) != 2 {
		t.Errorf("Keepalives must not be recorded as events, got %d", len(result.Events))
	}
}

func TestStreamProcessor_EndsChainVerifiable(t *testing.T) {
	// Build a server-side chained stream and verify client-side.
	events := chainedEvents("Hello ", "world.")
	done := StreamEvent{
		Type:      StreamEventDone,
		SessionID: "sess-1",
		ID:        "evt-done",
		Timestamp: 1700000000777,
		PrevHash:  events[len(events)-1].Hash,
	}
	done.Hash = ComputeEventHash(done)
	events = append(events, done)

	var out strings.Builder
	result, err := NewStreamProcessorWithWriter(&out, false).Process(
		strings.NewReader(sseBody(t, events...)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	verification := NewChainVerifier().Verify(result.Events)
	if !verification.Valid {
		t.Errorf("Received chain should verify: %s", verification.Reason)
	}
}
