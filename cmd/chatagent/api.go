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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
)

// apiClient talks to the orchestrator's HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		// Streams are long-lived; only dialing should time out, so no
		// global client timeout here.
		http: &http.Client{},
	}
}

// StreamChat opens a chat stream. The caller owns the returned body
// and must close it after processing.
func (c *apiClient) StreamChat(ctx context.Context, req datatypes.ChatStreamRequest) (io.ReadCloser, error) {
	return c.openStream(ctx, "/v1/chat/stream", req)
}

// Resume sends an approval decision and opens the continuation stream.
func (c *apiClient) Resume(ctx context.Context, req datatypes.ResumeRequest) (io.ReadCloser, error) {
	return c.openStream(ctx, "/v1/chat/resume", req)
}

func (c *apiClient) openStream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cannot reach the orchestrator at %s: %w", c.baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp.Body, nil
}

// Models fetches the provider and model catalog.
func (c *apiClient) Models(ctx context.Context) (*datatypes.ModelsResponse, error) {
	var out datatypes.ModelsResponse
	if err := c.getJSON(ctx, "/v1/models", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SessionList is the /v1/sessions response shape.
type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
}

// SessionSummary mirrors the server's session snapshot.
type SessionSummary struct {
	SessionID    string   `json:"session_id"`
	Status       string   `json:"status"`
	Turns        int      `json:"turns"`
	PendingTools []string `json:"pending_tools,omitempty"`
	LastActiveAt int64    `json:"last_active_at"`
}

// ListSessions fetches the live session snapshot.
func (c *apiClient) ListSessions(ctx context.Context) (*SessionList, error) {
	var out SessionList
	if err := c.getJSON(ctx, "/v1/sessions", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes an idle session.
func (c *apiClient) DeleteSession(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/v1/sessions/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach the orchestrator at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach the orchestrator at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeAPIError turns a non-200 response into a readable error.
func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
