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
	"time"
)

// EventType identifies one kind of stream event.
type EventType string

const (
	// EventContent carries a delta of assistant prose.
	EventContent EventType = "content"

	// EventThought carries an informational reasoning note.
	EventThought EventType = "thought"

	// EventToolRequest announces pending tool calls awaiting approval.
	EventToolRequest EventType = "tool_request"

	// EventToolResult reports one executed tool call.
	EventToolResult EventType = "tool_result"

	// EventError reports a terminal failure for the operation.
	EventError EventType = "error"

	// EventDone marks the end of the stream for a completed turn.
	EventDone EventType = "done"
)

// ToolCallView is the client-facing form of one requested tool call.
type ToolCallView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// StreamEvent is one typed entry of the chat event stream, shared by
// the SSE and WebSocket transports.
//
// # Fields
//
//   - ID: Unique event identifier, assigned by the transport writer.
//   - Type: The event kind; decides which payload fields are set.
//   - SessionID: The server-assigned session ID, stamped on every
//     event of a turn.
//   - Content: Prose delta, thought text, tool result text, or error
//     message depending on Type.
//   - ToolCalls: The pending calls, tool_request only.
//   - ToolName / OK: Which call a tool_result answers and whether it
//     succeeded.
//   - Timestamp: Unix milliseconds when the event was built.
//   - Hash / PrevHash: Integrity chain values, assigned by the
//     transport writer.
type StreamEvent struct {
	ID        string         `json:"id,omitempty"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []ToolCallView `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	OK        *bool          `json:"ok,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Hash      string         `json:"hash,omitempty"`
	PrevHash  string         `json:"prev_hash,omitempty"`
}

func newEvent(t EventType) StreamEvent {
	return StreamEvent{Type: t, Timestamp: time.Now().UnixMilli()}
}

// NewContentEvent builds a prose delta event.
func NewContentEvent(text string) StreamEvent {
	ev := newEvent(EventContent)
	ev.Content = text
	return ev
}

// NewThoughtEvent builds a reasoning note event.
func NewThoughtEvent(text string) StreamEvent {
	ev := newEvent(EventThought)
	ev.Content = text
	return ev
}

// NewToolRequestEvent announces the calls a suspended session is
// waiting on.
func NewToolRequestEvent(sessionID string, calls []ToolCallView) StreamEvent {
	ev := newEvent(EventToolRequest)
	ev.SessionID = sessionID
	ev.ToolCalls = calls
	return ev
}

// NewToolResultEvent reports one executed call.
func NewToolResultEvent(name, content string, ok bool) StreamEvent {
	ev := newEvent(EventToolResult)
	ev.ToolName = name
	ev.Content = content
	ev.OK = &ok
	return ev
}

// NewErrorEvent reports a terminal failure.
func NewErrorEvent(message string) StreamEvent {
	ev := newEvent(EventError)
	ev.Content = message
	return ev
}

// NewDoneEvent closes the stream for a completed turn.
func NewDoneEvent(sessionID string) StreamEvent {
	ev := newEvent(EventDone)
	ev.SessionID = sessionID
	return ev
}
