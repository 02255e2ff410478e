// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChatStreamRequest_Validate(t *testing.T) {
	t.Run("minimal request is valid", func(t *testing.T) {
		req := ChatStreamRequest{Message: "hello"}
		if err := req.Validate(); err != nil {
			t.Fatalf("Expected valid request, got: %v", err)
		}
	})

	t.Run("empty message rejected", func(t *testing.T) {
		req := ChatStreamRequest{}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for empty message")
		}
	})

	t.Run("oversized message rejected", func(t *testing.T) {
		req := ChatStreamRequest{Message: strings.Repeat("a", MaxMessageContentBytes+1)}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for oversized message")
		}
	})

	t.Run("message at the limit accepted", func(t *testing.T) {
		req := ChatStreamRequest{Message: strings.Repeat("a", MaxMessageContentBytes)}
		if err := req.Validate(); err != nil {
			t.Errorf("Expected 32KB message to pass, got: %v", err)
		}
	})

	t.Run("multibyte content measured in bytes", func(t *testing.T) {
		// Each rune is 3 bytes; rune count alone would pass.
		req := ChatStreamRequest{Message: strings.Repeat("語", MaxMessageContentBytes/3+1)}
		if err := req.Validate(); err == nil {
			t.Error("Expected byte-length validation to reject multibyte overflow")
		}
	})

	t.Run("overlong session id rejected", func(t *testing.T) {
		req := ChatStreamRequest{
			Message:   "hi",
			SessionID: strings.Repeat("s", MaxSessionIDLength+1),
		}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for overlong session_id")
		}
	})

	t.Run("bad request id rejected", func(t *testing.T) {
		req := ChatStreamRequest{Message: "hi", RequestID: "not-a-uuid"}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for malformed request_id")
		}
	})
}

func TestChatStreamRequest_EnsureDefaults(t *testing.T) {
	req := ChatStreamRequest{Message: "hello"}
	req.EnsureDefaults()

	if req.RequestID == "" {
		t.Error("Expected RequestID to be generated")
	}
	if req.Timestamp == 0 {
		t.Error("Expected Timestamp to be stamped")
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Defaults must produce a valid request, got: %v", err)
	}

	// Existing values survive.
	again := req
	again.EnsureDefaults()
	if again.RequestID != req.RequestID || again.Timestamp != req.Timestamp {
		t.Error("EnsureDefaults must not overwrite provided values")
	}
}

func TestResumeRequest_Validate(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		req := ResumeRequest{SessionID: "sess-1", Decision: DecisionApprove}
		if err := req.Validate(); err != nil {
			t.Fatalf("Expected valid request, got: %v", err)
		}
		if !req.Approved() {
			t.Error("Expected Approved() for approve decision")
		}
	})

	t.Run("reject", func(t *testing.T) {
		req := ResumeRequest{SessionID: "sess-1", Decision: DecisionReject}
		if err := req.Validate(); err != nil {
			t.Fatalf("Expected valid request, got: %v", err)
		}
		if req.Approved() {
			t.Error("Expected Approved() false for reject decision")
		}
	})

	t.Run("unknown decision rejected", func(t *testing.T) {
		req := ResumeRequest{SessionID: "sess-1", Decision: "maybe"}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for unknown decision")
		}
	})

	t.Run("missing session rejected", func(t *testing.T) {
		req := ResumeRequest{Decision: DecisionApprove}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for missing session_id")
		}
	})
}

func TestStreamEvent_JSONShape(t *testing.T) {
	t.Run("tool_request", func(t *testing.T) {
		ev := NewToolRequestEvent("sess-1", []ToolCallView{
			{ID: "call-1", Name: "web_search", Arguments: json.RawMessage(`{"query":"x"}`)},
		})

		raw, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}
		s := string(raw)
		for _, want := range []string{`"type":"tool_request"`, `"session_id":"sess-1"`, `"web_search"`} {
			if !strings.Contains(s, want) {
				t.Errorf("Expected %s in JSON, got: %s", want, s)
			}
		}
	})

	t.Run("content omits empty fields", func(t *testing.T) {
		raw, err := json.Marshal(NewContentEvent("hi"))
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}
		s := string(raw)
		if strings.Contains(s, "tool_calls") || strings.Contains(s, "session_id") {
			t.Errorf("Unexpected fields in content event: %s", s)
		}
	})

	t.Run("tool_result keeps ok false", func(t *testing.T) {
		raw, err := json.Marshal(NewToolResultEvent("web_search", "boom", false))
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}
		if !strings.Contains(string(raw), `"ok":false`) {
			t.Errorf("Expected explicit ok:false, got: %s", raw)
		}
	})
}
