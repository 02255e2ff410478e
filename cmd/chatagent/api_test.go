// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
)

func TestStreamChat_OpensBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/stream" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		var req datatypes.ChatStreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Message != "hello" {
			t.Errorf("Expected message to pass through, got %q", req.Message)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: done\ndata: {\"type\":\"done\",\"session_id\":\"s1\",\"timestamp\":1}\n\n"))
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	body, err := client.StreamChat(context.Background(), datatypes.ChatStreamRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if !strings.Contains(string(data), "done") {
		t.Errorf("Expected stream body, got %q", string(data))
	}
}

func TestStreamChat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "session is busy"})
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	_, err := client.StreamChat(context.Background(), datatypes.ChatStreamRequest{Message: "hello"})
	if err == nil {
		t.Fatal("Expected error for 409 response")
	}
	if !strings.Contains(err.Error(), "session is busy") || !strings.Contains(err.Error(), "409") {
		t.Errorf("Error should carry status and server message, got %v", err)
	}
}

func TestModels_DecodesCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(datatypes.ModelsResponse{
			Providers: map[string][]string{"deepseek": {"deepseek-chat"}},
		})
	}))
	defer server.Close()

	resp, err := newAPIClient(server.URL).Models(context.Background())
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if len(resp.Providers["deepseek"]) != 1 {
		t.Errorf("Expected deepseek models, got %+v", resp.Providers)
	}
}

func TestListSessions_DecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"sessions": []map[string]any{{
				"session_id":    "s1",
				"status":        "AWAITING_APPROVAL",
				"turns":         2,
				"pending_tools": []string{"web_search"},
			}},
		})
	}))
	defer server.Close()

	list, err := newAPIClient(server.URL).ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if list.Count != 1 || list.Sessions[0].PendingTools[0] != "web_search" {
		t.Errorf("Unexpected snapshot: %+v", list)
	}
}

func TestDeleteSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/sessions/s1" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"deleted": "s1"})
	}))
	defer server.Close()

	if err := newAPIClient(server.URL).DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
}
