// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent implements the session/interrupt state machine at the
// heart of the orchestrator.
//
// A session holds one conversation: an append-only history of turns and
// a lifecycle status. The runner advances a session one reasoning step
// at a time. When the model requests tool calls the runner freezes the
// session in AWAITING_APPROVAL and emits a single tool_request event;
// a later resume either executes the pending calls or discards them,
// then drives the next step. Sessions are single-writer: concurrent
// operations on the same session fail fast with ErrSessionBusy.
//
// Thread Safety:
//
//	All exported types in this package are designed for concurrent use.
//	Sessions are protected by internal synchronization.
package agent

import "encoding/json"

// Status represents a state in the session lifecycle state machine.
//
// Valid transitions are enforced by the state machine. Invalid
// transitions return ErrInvalidTransition.
type Status string

const (
	// StatusIdle means the session is ready to accept a new user turn.
	StatusIdle Status = "IDLE"

	// StatusStreaming means a reasoning step is in flight and partial
	// output is being emitted.
	StatusStreaming Status = "STREAMING"

	// StatusAwaitingApproval means the model requested tool calls and
	// the session is suspended until the caller resumes.
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"

	// StatusResuming means an approval decision was received and the
	// pending tool calls are being settled.
	StatusResuming Status = "RESUMING"

	// StatusTerminated means the current turn produced a final answer.
	// The session returns to IDLE immediately after; it does not vanish.
	StatusTerminated Status = "TERMINATED"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsSuspended returns true if the session is waiting on an external
// approval decision.
func (s Status) IsSuspended() bool {
	return s == StatusAwaitingApproval
}

// AllStatuses returns all valid session statuses.
func AllStatuses() []Status {
	return []Status{
		StatusIdle,
		StatusStreaming,
		StatusAwaitingApproval,
		StatusResuming,
		StatusTerminated,
	}
}

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser is a turn supplied by the caller.
	RoleUser Role = "user"

	// RoleAssistant is a turn produced by the model.
	RoleAssistant Role = "assistant"

	// RoleTool is a turn recording the outcome of one tool call.
	RoleTool Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
//
// A pending tool call is consumed exactly once: executed by the invoker
// on approval, or discarded in favor of a synthetic rejection turn.
type ToolCall struct {
	// ID is the model-assigned identifier linking the call to its result.
	ID string `json:"id"`

	// Name is the tool name to look up in the catalog.
	Name string `json:"name"`

	// Arguments are the tool arguments as raw JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// Turn is one atomic contribution to a session's history.
//
// Turns are immutable once appended. An assistant turn may carry tool
// calls alongside (or instead of) text; a tool turn records the result
// of exactly one call.
type Turn struct {
	// Role is the turn author: user, assistant, or tool.
	Role Role `json:"role"`

	// Content is the turn text. May be empty for an assistant turn that
	// carries only tool calls.
	Content string `json:"content"`

	// ToolCalls are the calls requested in an assistant turn.
	// Non-empty only when Role is RoleAssistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// CallID links a tool turn back to the call it answers.
	CallID string `json:"call_id,omitempty"`

	// Name is the tool name for a tool turn.
	Name string `json:"name,omitempty"`

	// OK reports whether a tool turn's call succeeded.
	OK bool `json:"ok,omitempty"`
}

// UserTurn builds a user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Content: text}
}

// AssistantTurn builds an assistant turn with optional tool calls.
func AssistantTurn(text string, calls []ToolCall) Turn {
	return Turn{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolResultTurn builds a tool turn for one settled call.
func ToolResultTurn(callID, name, content string, ok bool) Turn {
	return Turn{Role: RoleTool, CallID: callID, Name: name, Content: content, OK: ok}
}

// StepEvent is one event produced by a reasoning step.
//
// A step yields zero or more partial-text events followed by exactly
// one decision. PartialText monotonically extends the current turn's
// text; Decision is the step's terminal event.
type StepEvent struct {
	// Text is the delta for a partial-text event, or the complete turn
	// text for the terminal decision.
	Text string

	// Thought marks an informational reasoning note. Thought deltas are
	// surfaced to the caller but never become part of the turn text.
	Thought bool

	// ToolCalls are the calls the model decided to make. Non-nil only
	// on the terminal decision, and only when the model chose tools.
	ToolCalls []ToolCall

	// Terminal marks the decision event. At most one per step.
	Terminal bool
}

// SessionInfo is a read-only snapshot of a session for listings.
type SessionInfo struct {
	// ID is the session identifier.
	ID string `json:"session_id"`

	// Status is the session status at snapshot time.
	Status Status `json:"status"`

	// Turns is the history length at snapshot time.
	Turns int `json:"turns"`

	// PendingTools are the names of suspended tool calls, if any.
	PendingTools []string `json:"pending_tools,omitempty"`

	// CreatedAt is the session creation time in Unix milliseconds.
	CreatedAt int64 `json:"created_at"`

	// LastActiveAt is the last mutation time in Unix milliseconds.
	LastActiveAt int64 `json:"last_active_at"`
}
