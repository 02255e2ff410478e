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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplexer_FlushEmitsOnlySuffix(t *testing.T) {
	sink := &recordSink{}
	mux := newMultiplexer("sess-1", sink)

	require.NoError(t, mux.emit(StepEvent{Text: "Hello, "}))
	require.NoError(t, mux.emit(StepEvent{Text: "Hello, world", Terminal: true}))
	require.NoError(t, mux.flushText())

	assert.Equal(t, []string{"content", "content"}, sink.kinds())
	assert.Equal(t, "Hello, world", sink.joinedContent())
	assert.Equal(t, "world", sink.events[1].text)
}

func TestMultiplexer_FlushNothingWhenFullyStreamed(t *testing.T) {
	sink := &recordSink{}
	mux := newMultiplexer("sess-1", sink)

	require.NoError(t, mux.emit(StepEvent{Text: "done"}))
	require.NoError(t, mux.emit(StepEvent{Text: "done", Terminal: true}))
	require.NoError(t, mux.flushText())

	assert.Equal(t, []string{"content"}, sink.kinds())
}

func TestMultiplexer_FlushWholeTextWhenNoneStreamed(t *testing.T) {
	sink := &recordSink{}
	mux := newMultiplexer("sess-1", sink)

	require.NoError(t, mux.emit(StepEvent{Text: "complete answer", Terminal: true}))
	require.NoError(t, mux.flushText())

	assert.Equal(t, "complete answer", sink.joinedContent())
}

func TestMultiplexer_FirstTerminalWins(t *testing.T) {
	sink := &recordSink{}
	mux := newMultiplexer("sess-1", sink)

	require.NoError(t, mux.emit(StepEvent{Text: "first", Terminal: true}))
	require.NoError(t, mux.emit(StepEvent{Text: "second", Terminal: true}))

	require.NotNil(t, mux.decision)
	assert.Equal(t, "first", mux.decision.Text)
}

func TestMultiplexer_ThoughtsBypassContent(t *testing.T) {
	sink := &recordSink{}
	mux := newMultiplexer("sess-1", sink)

	require.NoError(t, mux.emit(StepEvent{Text: "considering sources", Thought: true}))
	require.NoError(t, mux.emit(StepEvent{Text: "Answer", Terminal: true}))
	require.NoError(t, mux.flushText())

	assert.Equal(t, []string{"thought", "content"}, sink.kinds())
	assert.Equal(t, "Answer", sink.joinedContent())
}

func TestMultiplexer_AnnounceToolsOnlyWithCalls(t *testing.T) {
	sink := &recordSink{}
	mux := newMultiplexer("sess-1", sink)

	require.NoError(t, mux.emit(StepEvent{Text: "plain", Terminal: true}))
	require.NoError(t, mux.announceTools())
	assert.Empty(t, sink.events, "no tool request without calls")

	mux2 := newMultiplexer("sess-1", sink)
	require.NoError(t, mux2.emit(StepEvent{
		ToolCalls: []ToolCall{{ID: "call-1", Name: "web_search"}},
		Terminal:  true,
	}))
	require.NoError(t, mux2.announceTools())
	require.Len(t, sink.events, 1)
	assert.Equal(t, "tool_request", sink.events[0].kind)
}
