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
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry is the concurrency-safe mapping from session id to session.
//
// The registry is the lifecycle owner of all live sessions. It is the
// only state shared across concurrent requests at this level; per-session
// serialization is the session's own concern (TryAcquire).
//
// Thread Safety:
//
//	Registry is safe for concurrent use. Operations on different
//	sessions never contend beyond the map access itself.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
//
// Outputs:
//
//	*Registry - Empty registry ready for use
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it if necessary.
//
// Description:
//
//	When id is empty a fresh uuid v4 is generated. A collision between
//	a generated id and a live session would mean the 128-bit id space
//	is compromised; the registry panics rather than silently handing
//	two callers the same conversation.
//
// Inputs:
//
//	id - The session id, or "" to generate one
//
// Outputs:
//
//	string - The effective session id
//	*Session - The live session for that id
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) GetOrCreate(id string) (string, *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
		if _, exists := r.sessions[id]; exists {
			panic(ErrIDCollision)
		}
	}

	if session, ok := r.sessions[id]; ok {
		return id, session
	}

	session := NewSession(id)
	r.sessions[id] = session
	return id, session
}

// Get returns the session for id.
//
// Inputs:
//
//	id - The session id
//
// Outputs:
//
//	*Session - The session, or nil if not found
//	bool - True if the session exists
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Remove deletes a session from the registry.
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns snapshots of all live sessions, ordered by id.
//
// Outputs:
//
//	[]SessionInfo - One snapshot per session
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.RUnlock()

	infos := make([]SessionInfo, len(sessions))
	for i, session := range sessions {
		infos[i] = session.Info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
