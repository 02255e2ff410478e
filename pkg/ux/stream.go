// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides user experience components for the Aleutian chat
// CLI: the SSE stream consumer and hash chain verification.
package ux

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// StreamEventType represents the type of streaming event
type StreamEventType string

const (
	StreamEventContent     StreamEventType = "content"
	StreamEventThought     StreamEventType = "thought"
	StreamEventToolRequest StreamEventType = "tool_request"
	StreamEventToolResult  StreamEventType = "tool_result"
	StreamEventDone        StreamEventType = "done"
	StreamEventError       StreamEventType = "error"
)

// ToolCallInfo describes one tool call awaiting approval.
type ToolCallInfo struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// StreamEvent represents a single streaming event from the server
type StreamEvent struct {
	ID        string          `json:"id,omitempty"`
	Type      StreamEventType `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallInfo  `json:"tool_calls,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	OK        *bool           `json:"ok,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Hash      string          `json:"hash,omitempty"`
	PrevHash  string          `json:"prev_hash,omitempty"`
}

// StreamResult contains the complete result of processing a stream
type StreamResult struct {
	// Answer is the assistant prose accumulated from content events.
	Answer string

	// SessionID is the server-assigned session, from done or
	// tool_request events.
	SessionID string

	// PendingCalls is non-empty when the stream ended suspended on a
	// tool_request; the caller must send an approval decision.
	PendingCalls []ToolCallInfo

	// Events holds every event received, in order, for chain
	// verification.
	Events []StreamEvent
}

// Suspended reports whether the turn is waiting for a tool decision.
func (r *StreamResult) Suspended() bool {
	return len(r.PendingCalls) > 0
}

// StreamProcessor defines the interface for processing streaming responses.
type StreamProcessor interface {
	// Process reads a streaming response until done, tool_request, or
	// error, printing as it goes.
	Process(reader io.Reader) (*StreamResult, error)
}

// sseStreamProcessor implements StreamProcessor for Server-Sent Events
type sseStreamProcessor struct {
	writer       io.Writer
	showThoughts bool
	answer       strings.Builder
	result       StreamResult
}

// NewStreamProcessor creates a new SSE stream processor
func NewStreamProcessor(showThoughts bool) StreamProcessor {
	return &sseStreamProcessor{writer: os.Stdout, showThoughts: showThoughts}
}

// NewStreamProcessorWithWriter creates a stream processor with custom writer (for testing)
func NewStreamProcessorWithWriter(w io.Writer, showThoughts bool) StreamProcessor {
	return &sseStreamProcessor{writer: w, showThoughts: showThoughts}
}

// Process reads and processes a streaming response
func (p *sseStreamProcessor) Process(reader io.Reader) (*StreamResult, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		// Skip blank separators and SSE comments (keepalives).
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			// "event:" lines are redundant with the type field.
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			return nil, fmt.Errorf("malformed stream event: %w", err)
		}
		p.result.Events = append(p.result.Events, event)

		switch event.Type {
		case StreamEventContent:
			p.answer.WriteString(event.Content)
			fmt.Fprint(p.writer, event.Content)
		case StreamEventThought:
			if p.showThoughts {
				fmt.Fprintf(p.writer, "[thinking] %s\n", event.Content)
			}
		case StreamEventToolRequest:
			p.result.SessionID = event.SessionID
			p.result.PendingCalls = event.ToolCalls
			p.finalize()
			return p.snapshot(), nil
		case StreamEventToolResult:
			p.printToolResult(event)
		case StreamEventDone:
			p.result.SessionID = event.SessionID
			p.finalize()
			return p.snapshot(), nil
		case StreamEventError:
			p.finalize()
			return nil, fmt.Errorf("%s", event.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		p.finalize()
		return nil, err
	}

	// Stream ended without explicit done event
	p.finalize()
	return p.snapshot(), nil
}

func (p *sseStreamProcessor) printToolResult(event StreamEvent) {
	status := "ok"
	if event.OK != nil && !*event.OK {
		status = "failed"
	}
	fmt.Fprintf(p.writer, "[tool %s: %s] %s\n", event.ToolName, status, event.Content)
}

func (p *sseStreamProcessor) finalize() {
	// Ensure we end with a newline
	if p.answer.Len() > 0 && !strings.HasSuffix(p.answer.String(), "\n") {
		fmt.Fprintln(p.writer)
	}
}

func (p *sseStreamProcessor) snapshot() *StreamResult {
	result := p.result
	result.Answer = p.answer.String()
	return &result
}
