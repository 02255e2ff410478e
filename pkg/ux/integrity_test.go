// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"testing"
)

// =============================================================================
// Chain Verifier Tests
// =============================================================================

// chainedEvents builds a valid chain of content events.
func chainedEvents(contents ...string) []StreamEvent {
	events := make([]StreamEvent, 0, len(contents))
	prevHash := ""
	for i, content := range contents {
		event := StreamEvent{
			ID:        "evt-" + string(rune('a'+i)),
			Type:      StreamEventContent,
			Content:   content,
			Timestamp: 1700000000000 + int64(i),
			PrevHash:  prevHash,
		}
		event.Hash = ComputeEventHash(event)
		prevHash = event.Hash
		events = append(events, event)
	}
	return events
}

func TestChainVerifier_ValidChain(t *testing.T) {
	verifier := NewChainVerifier()
	events := chainedEvents("one", "two", "three")

	result := verifier.Verify(events)
	if !result.Valid {
		t.Errorf("Valid chain rejected: %s", result.Reason)
	}
	if result.BreakIndex != -1 {
		t.Errorf("Expected break index -1, got %d", result.BreakIndex)
	}
	if result.EventCount != 3 {
		t.Errorf("Expected 3 events examined, got %d", result.EventCount)
	}
}

func TestChainVerifier_EmptyChain(t *testing.T) {
	result := NewChainVerifier().Verify(nil)
	if !result.Valid || result.EventCount != 0 {
		t.Errorf("Empty chain should be valid, got %+v", result)
	}
}

func TestChainVerifier_TamperedContent(t *testing.T) {
	events := chainedEvents("one", "two", "three")
	events[1].Content = "evil"

	result := NewChainVerifier().Verify(events)
	if result.Valid {
		t.Fatal("Tampered content must fail verification")
	}
	if result.BreakIndex != 1 {
		t.Errorf("Expected break at index 1, got %d", result.BreakIndex)
	}
}

func TestChainVerifier_DroppedEvent(t *testing.T) {
	events := chainedEvents("one", "two", "three")
	pruned := []StreamEvent{events[0], events[2]}

	result := NewChainVerifier().Verify(pruned)
	if result.Valid {
		t.Fatal("Dropped event must fail verification")
	}
	if result.BreakIndex != 1 {
		t.Errorf("Expected break at index 1, got %d", result.BreakIndex)
	}
}

func TestChainVerifier_ReorderedEvents(t *testing.T) {
	events := chainedEvents("one", "two", "three")
	events[1], events[2] = events[2], events[1]

	result := NewChainVerifier().Verify(events)
	if result.Valid {
		t.Fatal("Reordered events must fail verification")
	}
}

func TestComputeEventHash_CoversToolFields(t *testing.T) {
	ok := true
	base := StreamEvent{
		ID:        "evt-1",
		Type:      StreamEventToolResult,
		Content:   "12C, overcast",
		ToolName:  "get_weather",
		OK:        &ok,
		Timestamp: 1700000000000,
	}
	baseHash := ComputeEventHash(base)

	flipped := base
	notOK := false
	flipped.OK = &notOK
	if ComputeEventHash(flipped) == baseHash {
		t.Error("Flipping the ok flag must change the hash")
	}

	renamed := base
	renamed.ToolName = "book_table"
	if ComputeEventHash(renamed) == baseHash {
		t.Error("Changing the tool name must change the hash")
	}
}

func TestSecureHashEqual(t *testing.T) {
	if !secureHashEqual("abc", "abc") {
		t.Error("Equal strings should compare equal")
	}
	if secureHashEqual("abc", "abd") || secureHashEqual("abc", "abcd") {
		t.Error("Different strings should not compare equal")
	}
}
