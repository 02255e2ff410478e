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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/chatagent/services/llm"
	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
	"github.com/AleutianAI/chatagent/services/orchestrator/observability"
)

// WSRequest is one client message on the WebSocket transport.
//
// Action "chat" starts a turn (fields mirror ChatStreamRequest);
// action "resume" applies an approval decision (fields mirror
// ResumeRequest). Every response frame is a StreamEvent, identical to
// the SSE payloads.
type WSRequest struct {
	Action    string `json:"action"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	Decision  string `json:"decision,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// wsWriter implements EventWriter over a WebSocket connection. Events
// carry the same metadata and hash chain as the SSE transport.
type wsWriter struct {
	conn     *websocket.Conn
	prevHash string
	mu       sync.Mutex
}

func newWSWriter(conn *websocket.Conn) *wsWriter {
	return &wsWriter{conn: conn}
}

func (w *wsWriter) WriteEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stampEvent(&event, w.prevHash)
	w.prevHash = event.Hash
	return w.conn.WriteJSON(event)
}

func (w *wsWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

var _ EventWriter = (*wsWriter)(nil)

// ChatWebSocket handles GET /v1/chat/ws.
//
// # Description
//
// A bidirectional alternative to the SSE pair: the client sends chat
// and resume actions on one connection and receives the same typed
// event stream back. One connection serves one session at a time; a
// turn runs to completion (or suspension) before the next client
// message is read, which makes the busy-session conflict impossible to
// hit from a single well-behaved connection.
func (s *ChatService) ChatWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	writer := newWSWriter(ws)
	sink := newWriterSink(writer, "")
	ctx := c.Request.Context()
	logger := slog.With("transport", "websocket")
	logger.Info("websocket client connected")

	for {
		var req WSRequest
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
				s.Metrics.RecordClientDisconnect(observability.EndpointWebSocket)
			}
			return
		}

		sink.setSessionID(req.SessionID)
		switch req.Action {
		case "chat":
			s.wsChat(ctx, req, sink, logger)
		case "resume":
			s.wsResume(ctx, req, sink, logger)
		default:
			_ = sink.Error("unknown action: " + req.Action)
		}
	}
}

func (s *ChatService) wsChat(ctx context.Context, req WSRequest,
	sink *writerSink, logger *slog.Logger) {

	streamReq := datatypes.ChatStreamRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
		Provider:  req.Provider,
		Model:     req.Model,
	}
	if err := streamReq.Validate(); err != nil {
		_ = sink.Error("validation failed: " + err.Error())
		return
	}
	streamReq.EnsureDefaults()

	client, model, err := s.Providers.Resolve(req.Provider, req.Model)
	if err != nil {
		_ = sink.Error(err.Error())
		return
	}

	sessionID, session := s.Sessions.GetOrCreate(req.SessionID)
	sink.setSessionID(sessionID)

	providerName := req.Provider
	if providerName == "" {
		providerName = s.Providers.DefaultName()
	}
	session.SetModelRef(providerName, model)

	runner := agent.NewRunner(
		llm.NewDriver(client, model, s.toolSpecs(), s.SystemPrompt, s.Params),
		s.Invoker,
	)

	s.Metrics.StreamStarted(observability.EndpointWebSocket)
	err = runner.Start(ctx, session, req.Message, sink)
	s.Metrics.StreamEnded(observability.EndpointWebSocket)

	s.finishWSTurn(session, sessionID, err, sink, logger)
}

func (s *ChatService) wsResume(ctx context.Context, req WSRequest,
	sink *writerSink, logger *slog.Logger) {

	resumeReq := datatypes.ResumeRequest{SessionID: req.SessionID, Decision: req.Decision}
	if err := resumeReq.Validate(); err != nil {
		_ = sink.Error("validation failed: " + err.Error())
		return
	}

	session, ok := s.Sessions.Get(req.SessionID)
	if !ok {
		_ = sink.Error(agent.ErrSessionNotFound.Error())
		return
	}

	// Continue on the backend the turn started with.
	providerName, modelName := session.ModelRef()
	client, model, err := s.Providers.Resolve(providerName, modelName)
	if err != nil {
		_ = sink.Error(err.Error())
		return
	}

	s.Metrics.RecordDecision(resumeReq.Decision)
	runner := agent.NewRunner(
		llm.NewDriver(client, model, s.toolSpecs(), s.SystemPrompt, s.Params),
		s.Invoker,
	)

	s.Metrics.StreamStarted(observability.EndpointWebSocket)
	err = runner.Resume(ctx, session, resumeReq.Approved(), sink)
	s.Metrics.StreamEnded(observability.EndpointWebSocket)

	s.finishWSTurn(session, req.SessionID, err, sink, logger)
}

// finishWSTurn records metrics and surfaces protocol errors the runner
// does not emit itself.
func (s *ChatService) finishWSTurn(session *agent.Session, sessionID string,
	err error, sink agent.EventSink, logger *slog.Logger) {

	switch {
	case err == nil:
		if session.Status() == agent.StatusAwaitingApproval {
			s.Metrics.RecordSuspension()
		}
		s.Metrics.RecordRequest(observability.EndpointWebSocket, true)
	case errors.Is(err, agent.ErrSessionBusy),
		errors.Is(err, agent.ErrInvalidState),
		errors.Is(err, agent.ErrEmptyMessage),
		errors.Is(err, agent.ErrNoPendingCalls):
		logger.Warn("websocket turn rejected", "session_id", sessionID, "error", err)
		_ = sink.Error(err.Error())
		s.Metrics.RecordError(observability.EndpointWebSocket, observability.ErrorCodeInvalidState)
		s.Metrics.RecordRequest(observability.EndpointWebSocket, false)
	default:
		logger.Error("websocket turn failed", "session_id", sessionID, "error", err)
		s.Metrics.RecordError(observability.EndpointWebSocket, observability.ErrorCodeProvider)
		s.Metrics.RecordRequest(observability.EndpointWebSocket, false)
	}
}
