// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"strings"
)

// EventSink receives the ordered, typed events produced while a session
// streams. Transports (SSE, WebSocket, CLI) implement this interface;
// the runner never knows which transport is attached.
//
// Thread Safety:
//
//	Implementations need not be safe for concurrent use. The runner
//	calls a sink from a single goroutine.
type EventSink interface {
	// Content delivers a delta of assistant prose.
	Content(text string) error

	// Thought delivers an informational reasoning note. Thoughts never
	// become part of the recorded turn.
	Thought(text string) error

	// ToolRequest announces the calls awaiting approval. Emitted at
	// most once per suspension, after all prose for the turn.
	ToolRequest(sessionID string, calls []ToolCall) error

	// ToolResult delivers the outcome of one executed tool call.
	ToolResult(name, content string, ok bool) error

	// Error delivers a terminal error for the current operation.
	Error(message string) error

	// Done signals that the current operation produced no further
	// events and the session is reusable.
	Done(sessionID string) error
}

// multiplexer adapts a raw step event stream onto an EventSink.
//
// It enforces the stream contract the transports rely on: prose is
// forwarded delta-by-delta as it arrives, the terminal decision's text
// is emitted only for the suffix not already streamed, and at most one
// tool request is surfaced per step.
type multiplexer struct {
	sessionID string
	sink      EventSink

	// streamed accumulates the prose already forwarded, so the
	// decision flush never duplicates content.
	streamed strings.Builder

	// decision holds the terminal event once observed.
	decision *StepEvent

	sinkErr error
}

func newMultiplexer(sessionID string, sink EventSink) *multiplexer {
	return &multiplexer{sessionID: sessionID, sink: sink}
}

// emit consumes one step event. Passed to the step driver as its
// callback; returning an error aborts the step.
func (m *multiplexer) emit(ev StepEvent) error {
	if ev.Terminal {
		// First terminal event wins; drivers must not emit a second.
		if m.decision == nil {
			cp := ev
			m.decision = &cp
		}
		return nil
	}
	if ev.Thought {
		if ev.Text != "" {
			m.sinkErr = m.sink.Thought(ev.Text)
		}
		return m.sinkErr
	}
	if ev.Text != "" {
		m.streamed.WriteString(ev.Text)
		m.sinkErr = m.sink.Content(ev.Text)
	}
	return m.sinkErr
}

// flushText emits the portion of the decision text that was never
// streamed as a delta. Drivers that stream every token leave nothing to
// flush; drivers that only report a final text flush it whole.
func (m *multiplexer) flushText() error {
	if m.decision == nil {
		return nil
	}
	full := m.decision.Text
	seen := m.streamed.String()
	if full == "" || full == seen {
		return nil
	}
	rest := full
	if strings.HasPrefix(full, seen) {
		rest = full[len(seen):]
	}
	if rest == "" {
		return nil
	}
	m.streamed.WriteString(rest)
	return m.sink.Content(rest)
}

// announceTools emits the single tool request for this step.
func (m *multiplexer) announceTools() error {
	if m.decision == nil || len(m.decision.ToolCalls) == 0 {
		return nil
	}
	return m.sink.ToolRequest(m.sessionID, m.decision.ToolCalls)
}
