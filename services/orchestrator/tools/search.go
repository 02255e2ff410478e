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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// tavilyEndpoint is the Tavily search API.
	tavilyEndpoint = "https://api.tavily.com/search"

	// tavilyMaxResults bounds how many hits reach the model.
	tavilyMaxResults = 5
)

// SearchTool answers web queries through the Tavily search API.
//
// Thread Safety:
//
//	SearchTool is safe for concurrent use.
type SearchTool struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSearchTool creates a Tavily-backed web search tool.
//
// Inputs:
//
//	apiKey - The Tavily API key. An empty key still registers the tool;
//	         calls then fail with a clear error instead of a silent 401.
func NewSearchTool(apiKey string) *SearchTool {
	return &SearchTool{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
}

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "Search the web for current information. Use for questions about " +
		"recent events or facts that may have changed since training."
}

func (t *SearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query"
			}
		},
		"required": ["query"]
	}`)
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Answer  string `json:"answer,omitempty"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Call runs the search and renders the hits as plain text for the
// conversation.
func (t *SearchTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	if strings.TrimSpace(params.Query) == "" {
		return "", fmt.Errorf("%w: query is required", ErrBadArguments)
	}
	if t.apiKey == "" {
		return "", fmt.Errorf("web_search is not configured: missing API key")
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       params.Query,
		MaxResults:  tavilyMaxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search API returned %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	return formatSearchResults(params.Query, parsed), nil
}

// formatSearchResults renders hits into the text block the model reads.
func formatSearchResults(query string, resp tavilyResponse) string {
	var b strings.Builder
	if resp.Answer != "" {
		b.WriteString(resp.Answer)
		b.WriteString("\n\n")
	}
	if len(resp.Results) == 0 && resp.Answer == "" {
		return fmt.Sprintf("No results found for %q.", query)
	}
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%d. %s (%s)\n%s\n", i+1, r.Title, r.URL, r.Content)
	}
	return strings.TrimSpace(b.String())
}
