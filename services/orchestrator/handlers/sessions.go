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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
)

// SessionAdmin serves the /v1/sessions administration endpoints.
type SessionAdmin struct {
	Sessions *agent.Registry
}

// NewSessionAdmin creates the session administration handlers.
func NewSessionAdmin(sessions *agent.Registry) *SessionAdmin {
	return &SessionAdmin{Sessions: sessions}
}

// List handles GET /v1/sessions: a snapshot of every live session.
func (a *SessionAdmin) List(c *gin.Context) {
	infos := a.Sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": infos,
		"count":    len(infos),
	})
}

// Get handles GET /v1/sessions/:id: one session's snapshot plus its
// full turn history.
func (a *SessionAdmin) Get(c *gin.Context) {
	id := c.Param("id")
	session, ok := a.Sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": agent.ErrSessionNotFound.Error(), "session_id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": session.Info(),
		"history": session.History(),
	})
}

// Delete handles DELETE /v1/sessions/:id.
//
// A session is only removable between turns: deleting one that is
// mid-stream or suspended would strand an approval decision, so those
// return 409.
func (a *SessionAdmin) Delete(c *gin.Context) {
	id := c.Param("id")
	session, ok := a.Sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": agent.ErrSessionNotFound.Error(), "session_id": id})
		return
	}
	if session.InProgress() || session.Status() != agent.StatusIdle {
		c.JSON(http.StatusConflict, gin.H{
			"error":      "session is not idle",
			"status":     session.Status(),
			"session_id": id,
		})
		return
	}
	a.Sessions.Remove(id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
