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
	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
)

// writerSink adapts an EventWriter to the sink interface the session
// runner emits into. It is the only place runner-level events become
// wire-level StreamEvents, so SSE and WebSocket stay byte-compatible.
type writerSink struct {
	writer EventWriter

	// sessionID is stamped on every event so clients learn the
	// server-assigned id no matter which event they see first.
	sessionID string

	// onFirstContent fires once, before the first content delta is
	// written. Used for time-to-first-token measurement.
	onFirstContent func()
	contentSeen    bool
}

func newWriterSink(w EventWriter, sessionID string) *writerSink {
	return &writerSink{writer: w, sessionID: sessionID}
}

// setSessionID updates the stamped id. The WebSocket transport reuses
// one sink across actions and learns the id per action.
func (s *writerSink) setSessionID(id string) {
	s.sessionID = id
}

func (s *writerSink) write(ev datatypes.StreamEvent) error {
	if ev.SessionID == "" {
		ev.SessionID = s.sessionID
	}
	return s.writer.WriteEvent(ev)
}

func (s *writerSink) Content(text string) error {
	if !s.contentSeen {
		s.contentSeen = true
		if s.onFirstContent != nil {
			s.onFirstContent()
		}
	}
	return s.write(datatypes.NewContentEvent(text))
}

func (s *writerSink) Thought(text string) error {
	return s.write(datatypes.NewThoughtEvent(text))
}

func (s *writerSink) ToolRequest(sessionID string, calls []agent.ToolCall) error {
	views := make([]datatypes.ToolCallView, len(calls))
	for i, c := range calls {
		views[i] = datatypes.ToolCallView{
			ID:        c.ID,
			Name:      c.Name,
			Arguments: c.Arguments,
		}
	}
	return s.write(datatypes.NewToolRequestEvent(sessionID, views))
}

func (s *writerSink) ToolResult(name, content string, ok bool) error {
	return s.write(datatypes.NewToolResultEvent(name, content, ok))
}

func (s *writerSink) Error(message string) error {
	return s.write(datatypes.NewErrorEvent(message))
}

func (s *writerSink) Done(sessionID string) error {
	return s.write(datatypes.NewDoneEvent(sessionID))
}

var _ agent.EventSink = (*writerSink)(nil)
