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
	"fmt"
	"sync"
)

// StateMachine manages valid status transitions for a session.
//
// The state machine enforces the following transition graph:
//
//	IDLE → STREAMING                  : User turn accepted
//	STREAMING → AWAITING_APPROVAL     : Decision carried tool calls
//	STREAMING → TERMINATED            : Plain answer delivered
//	STREAMING → IDLE                  : Provider error, turn not recorded
//	AWAITING_APPROVAL → RESUMING      : Approval decision received
//	RESUMING → STREAMING              : Tool results or rejection appended
//	TERMINATED → IDLE                 : Turn complete, session reusable
//
// Thread Safety:
//
//	StateMachine is safe for concurrent use.
type StateMachine struct {
	mu sync.RWMutex

	// transitions maps (from, to) pairs that are valid.
	transitions map[Status]map[Status]bool
}

// NewStateMachine creates a new state machine with all valid transitions.
//
// Outputs:
//
//	*StateMachine - Configured state machine
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[Status]map[Status]bool),
	}

	for _, status := range AllStatuses() {
		sm.transitions[status] = make(map[Status]bool)
	}

	sm.addTransition(StatusIdle, StatusStreaming)

	sm.addTransition(StatusStreaming, StatusAwaitingApproval)
	sm.addTransition(StatusStreaming, StatusTerminated)
	sm.addTransition(StatusStreaming, StatusIdle)

	sm.addTransition(StatusAwaitingApproval, StatusResuming)

	sm.addTransition(StatusResuming, StatusStreaming)

	sm.addTransition(StatusTerminated, StatusIdle)

	return sm
}

// addTransition registers a valid transition.
func (sm *StateMachine) addTransition(from, to Status) {
	sm.transitions[from][to] = true
}

// CanTransition checks if a transition from one status to another is valid.
//
// Inputs:
//
//	from - Current status
//	to - Target status
//
// Outputs:
//
//	bool - True if the transition is valid
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) CanTransition(from, to Status) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition attempts to transition a session from its current status.
//
// Description:
//
//	Validates the transition and updates the session status if valid.
//	Returns an error if the transition is not allowed.
//
// Inputs:
//
//	session - The session to transition
//	to - Target status
//
// Outputs:
//
//	error - ErrInvalidTransition if transition not allowed
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) Transition(session *Session, to Status) error {
	from := session.Status()

	if !sm.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	session.setStatus(to)
	return nil
}

// ValidTransitionsFrom returns all valid target statuses from a given status.
//
// Inputs:
//
//	from - The source status
//
// Outputs:
//
//	[]Status - All valid target statuses
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) ValidTransitionsFrom(from Status) []Status {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var result []Status
	if toMap, ok := sm.transitions[from]; ok {
		for status, valid := range toMap {
			if valid {
				result = append(result, status)
			}
		}
	}
	return result
}

// DefaultStateMachine is the shared state machine instance.
var DefaultStateMachine = NewStateMachine()
