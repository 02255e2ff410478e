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
	"sync"
	"time"
)

// Session represents one conversation with all its state.
//
// The history is append-only: resuming never rewrites prior turns, only
// appends new ones. The pending tool-call set exists only while the
// session is AWAITING_APPROVAL; it is cleared atomically with the
// transition out of that status.
//
// Thread Safety:
//
//	Session uses internal synchronization for state access.
//	Multiple goroutines can safely read session state, but operations
//	that advance the session must hold the acquisition flag (TryAcquire).
type Session struct {
	mu sync.RWMutex

	// ID is the unique session identifier.
	ID string `json:"id"`

	// status is the current lifecycle status.
	status Status

	// history records all conversation turns in order.
	history []Turn

	// pending holds the tool calls awaiting an approval decision.
	pending []ToolCall

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// lastActiveAt is when the session was last mutated.
	lastActiveAt time.Time

	// provider and model name the backend of the current turn, so a
	// resume continues where the start left off.
	provider string
	model    string

	// inProgress indicates a start or resume currently holds the session.
	inProgress bool
}

// NewSession creates a session in IDLE status with empty history.
//
// Inputs:
//
//	id - The session identifier. Must not be empty; the registry
//	     generates one when the caller did not supply an id.
//
// Outputs:
//
//	*Session - The new session
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		status:       StatusIdle,
		history:      make([]Turn, 0),
		CreatedAt:    now,
		lastActiveAt: now,
	}
}

// Status returns the current session status.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// setStatus updates the session status. Only the state machine calls
// this; direct status writes bypass transition validation.
func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.lastActiveAt = time.Now()
}

// Append adds turns to the history.
//
// Turns are immutable once appended; there is no corresponding remove.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) Append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turns...)
	s.lastActiveAt = time.Now()
}

// History returns a copy of the conversation history.
//
// Description:
//
//	Returns a copy of the history slice. Turn structs are value types,
//	so modifications to the returned slice do not affect the session.
//
// Outputs:
//
//	[]Turn - Copy of the session history
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]Turn, len(s.history))
	copy(history, s.history)
	return history
}

// HistoryLen returns the number of turns recorded so far.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// SetPending stores the tool calls awaiting approval.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) SetPending(calls []ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = calls
	s.lastActiveAt = time.Now()
}

// TakePending removes and returns the pending tool-call set.
//
// Description:
//
//	The pending set is consumed exactly once: the caller either executes
//	the calls or discards them. After TakePending the session holds no
//	pending calls.
//
// Outputs:
//
//	[]ToolCall - The pending calls, nil if none were stored
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) TakePending() []ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := s.pending
	s.pending = nil
	s.lastActiveAt = time.Now()
	return calls
}

// PendingNames returns the names of the pending tool calls.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) PendingNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.pending) == 0 {
		return nil
	}
	names := make([]string, len(s.pending))
	for i, call := range s.pending {
		names[i] = call.Name
	}
	return names
}

// SetModelRef records the backend the current turn runs on.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) SetModelRef(provider, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = provider
	s.model = model
}

// ModelRef returns the backend recorded for the current turn. Both
// values are empty before the first start.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) ModelRef() (provider, model string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider, s.model
}

// TryAcquire attempts to acquire the session for an operation.
//
// Returns false if another start or resume is in progress. The session
// is a single-writer resource: holding the acquisition is required
// before reading-then-mutating session state across a reasoning step.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	s.lastActiveAt = time.Now()
	return true
}

// Release releases the session after an operation.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress = false
	s.lastActiveAt = time.Now()
}

// TryEvict acquires the session for removal, but only when it still
// looks abandoned: no operation holds it, the status is unchanged, and
// nothing has touched it since the caller's observation. Unlike
// TryAcquire it does not refresh the activity timestamp, so a failed
// sweep leaves no trace.
//
// Inputs:
//
//	status - The status the caller observed when deciding to evict.
//	observedActive - The LastActiveAt value from that observation.
//
// Outputs:
//
//	bool - True when the session was acquired and may be removed
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) TryEvict(status Status, observedActive time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress || s.status != status || s.lastActiveAt.After(observedActive) {
		return false
	}
	s.inProgress = true
	return true
}

// InProgress reports whether an operation currently holds the session.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) InProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inProgress
}

// LastActiveAt returns the time of the last session mutation.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}

// Info returns a read-only snapshot of the session.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	if len(s.pending) > 0 {
		names = make([]string, len(s.pending))
		for i, call := range s.pending {
			names[i] = call.Name
		}
	}

	return SessionInfo{
		ID:           s.ID,
		Status:       s.status,
		Turns:        len(s.history),
		PendingTools: names,
		CreatedAt:    s.CreatedAt.UnixMilli(),
		LastActiveAt: s.lastActiveAt.UnixMilli(),
	}
}
