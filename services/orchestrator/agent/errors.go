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

import "errors"

// Sentinel errors for the agent package.
var (
	// ErrInvalidTransition indicates an invalid status transition was attempted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy indicates another operation holds the session.
	ErrSessionBusy = errors.New("session operation in progress")

	// ErrInvalidState indicates an operation was called while the session
	// is not in the status it requires (start while not IDLE, resume
	// while not AWAITING_APPROVAL).
	ErrInvalidState = errors.New("session not in required state")

	// ErrEmptyMessage indicates the user message is empty.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrNoPendingCalls indicates a resume found no stored tool calls.
	// A session left AWAITING_APPROVAL must always have a pending set;
	// seeing this error means the state machine was corrupted.
	ErrNoPendingCalls = errors.New("no pending tool calls")

	// ErrIDCollision indicates a freshly generated session id already
	// existed in the registry. With 128-bit random ids this is an
	// id-space integrity failure, not a recoverable condition.
	ErrIDCollision = errors.New("generated session id collides with live session")
)
