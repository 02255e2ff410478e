// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file defines integrity verification for the event hash chain.
//
// Hash Chain Design:
//
//	Each StreamEvent has a Hash computed from its content and a PrevHash
//	linking to the previous event:
//
//	Event[0] -> Event[1] -> Event[2] -> ... -> Event[N]
//
// If any event is modified, reordered, or dropped in transit, the
// chain breaks at that point and verification reports the index.
package ux

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// secureHashEqual performs constant-time comparison of two hash strings.
// This prevents timing attacks where an attacker could determine how many
// leading characters of a hash are correct by measuring response times.
func secureHashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ChainVerificationResult reports the outcome of verifying a stream.
//
// # Fields
//
//   - Valid: True when every event hashes correctly and links to its
//     predecessor.
//   - EventCount: Events examined.
//   - BreakIndex: Zero-based index of the first bad event; -1 when
//     the chain is valid.
//   - Reason: Human-readable description of the break.
type ChainVerificationResult struct {
	Valid      bool
	EventCount int
	BreakIndex int
	Reason     string
}

// ChainVerifier validates the hash chain over a received event stream.
type ChainVerifier interface {
	// Verify checks every event's hash and chain link.
	Verify(events []StreamEvent) *ChainVerificationResult
}

type sha256ChainVerifier struct{}

// NewChainVerifier returns the standard SHA-256 chain verifier.
func NewChainVerifier() ChainVerifier {
	return &sha256ChainVerifier{}
}

// Verify recomputes every event hash and checks the links. The hash
// input must stay in lockstep with the server's transport writer.
func (v *sha256ChainVerifier) Verify(events []StreamEvent) *ChainVerificationResult {
	result := &ChainVerificationResult{
		Valid:      true,
		EventCount: len(events),
		BreakIndex: -1,
	}

	prevHash := ""
	for i, event := range events {
		if !secureHashEqual(event.PrevHash, prevHash) {
			result.Valid = false
			result.BreakIndex = i
			result.Reason = fmt.Sprintf("event %d does not link to its predecessor", i)
			return result
		}
		if !secureHashEqual(ComputeEventHash(event), event.Hash) {
			result.Valid = false
			result.BreakIndex = i
			result.Reason = fmt.Sprintf("event %d content does not match its hash", i)
			return result
		}
		prevHash = event.Hash
	}
	return result
}

// ComputeEventHash computes the integrity hash for one event, using
// the same field layout the server stamps events with.
func ComputeEventHash(event StreamEvent) string {
	callsJSON := ""
	if len(event.ToolCalls) > 0 {
		if data, err := json.Marshal(event.ToolCalls); err == nil {
			callsJSON = string(data)
		}
	}

	okStr := ""
	if event.OK != nil {
		okStr = fmt.Sprintf("%t", *event.OK)
	}

	hashInput := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s|%s",
		event.ID,
		event.Type,
		event.Timestamp,
		event.PrevHash,
		event.Content,
		event.SessionID,
		event.ToolName+"|"+okStr,
		callsJSON,
	)

	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}
