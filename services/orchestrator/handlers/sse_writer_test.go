// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
)

// =============================================================================
// SSE Writer
// =============================================================================

func TestSSEWriter_WireFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter failed: %v", err)
	}

	if err := w.WriteEvent(datatypes.NewContentEvent("hello")); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: content\n") {
		t.Errorf("Expected event type line, got %q", body)
	}
	if !strings.Contains(body, "\ndata: {") {
		t.Errorf("Expected data line with JSON payload, got %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("Events must end with a blank line, got %q", body)
	}
}

func TestSSEWriter_HashChain(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter failed: %v", err)
	}

	for _, ev := range []datatypes.StreamEvent{
		datatypes.NewContentEvent("one"),
		datatypes.NewContentEvent("two"),
		datatypes.NewDoneEvent("sess-1"),
	} {
		if err := w.WriteEvent(ev); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}

	events := parseSSE(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}

	if events[0].PrevHash != "" {
		t.Errorf("First event must have empty prev_hash, got %q", events[0].PrevHash)
	}
	for i, ev := range events {
		if ev.ID == "" || ev.Timestamp == 0 {
			t.Errorf("Event %d missing stamped metadata: %+v", i, ev)
		}
		if got := computeEventHash(datatypes.StreamEvent{
			ID: ev.ID, Type: ev.Type, Timestamp: ev.Timestamp,
			PrevHash: ev.PrevHash, Content: ev.Content,
			SessionID: ev.SessionID, ToolName: ev.ToolName,
			OK: ev.OK, ToolCalls: ev.ToolCalls,
		}); got != ev.Hash {
			t.Errorf("Event %d hash does not verify", i)
		}
		if i > 0 && ev.PrevHash != events[i-1].Hash {
			t.Errorf("Event %d prev_hash does not link to event %d", i, i-1)
		}
	}
}

func TestSSEWriter_KeepAliveIsComment(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter failed: %v", err)
	}

	if err := w.WriteKeepAlive(); err != nil {
		t.Fatalf("WriteKeepAlive failed: %v", err)
	}
	if err := w.WriteEvent(datatypes.NewContentEvent("hi")); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	if !strings.HasPrefix(rec.Body.String(), ": ping\n\n") {
		t.Errorf("Keepalive must be an SSE comment, got %q", rec.Body.String())
	}
	events := parseSSE(t, rec.Body.String())
	if len(events) != 1 || events[0].PrevHash != "" {
		t.Error("Keepalives must not advance the hash chain")
	}
}

func TestSetSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSSEHeaders(rec)

	want := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"X-Accel-Buffering": "no",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("Header %s: expected %q, got %q", k, v, got)
		}
	}
}
