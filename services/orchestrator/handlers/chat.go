// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP surface of the chat
// orchestrator: the SSE streaming endpoints, the WebSocket transport,
// the models listing, and session administration.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/chatagent/services/llm"
	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
	"github.com/AleutianAI/chatagent/services/orchestrator/observability"
	"github.com/AleutianAI/chatagent/services/orchestrator/tools"
)

// ChatService carries the dependencies the chat endpoints share.
//
// # Description
//
// One ChatService serves every request. Per-request state (the
// resolved provider, the runner, the event writer) is built inside the
// handler; everything here is safe for concurrent use.
//
// # Fields
//
//   - Sessions: The in-memory session registry.
//   - Providers: Configured model backends.
//   - Tools: The tool catalog advertised to models.
//   - Invoker: Executes approved tool batches.
//   - Metrics: Streaming metrics; nil disables recording.
//   - SystemPrompt: Persona prepended to every conversation.
//   - Params: Generation parameters passed to providers.
type ChatService struct {
	Sessions     *agent.Registry
	Providers    *llm.ProviderRegistry
	Tools        *tools.Catalog
	Invoker      agent.ToolRunner
	Metrics      *observability.StreamingMetrics
	SystemPrompt string
	Params       llm.GenerationParams
}

// NewChatService wires the chat endpoints' shared dependencies.
func NewChatService(sessions *agent.Registry, providers *llm.ProviderRegistry,
	catalog *tools.Catalog, invoker agent.ToolRunner,
	metrics *observability.StreamingMetrics) *ChatService {

	return &ChatService{
		Sessions:  sessions,
		Providers: providers,
		Tools:     catalog,
		Invoker:   invoker,
		Metrics:   metrics,
	}
}

// ChatStream handles POST /v1/chat/stream.
//
// # Description
//
// Accepts a user message for a new or idle session and streams the
// turn back as SSE events. When the model requests tools the stream
// ends with a tool_request event and the session stays suspended until
// POST /v1/chat/resume.
//
// Error mapping before the stream opens:
//   - 400: malformed body, validation failure, unknown provider/model
//   - 409: session busy or not idle
//
// Once the stream is open, failures arrive as error events.
func (s *ChatService) ChatStream(c *gin.Context) {
	var req datatypes.ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.Metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.Metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed: " + err.Error()})
		return
	}
	req.EnsureDefaults()

	client, model, err := s.Providers.Resolve(req.Provider, req.Model)
	if err != nil {
		s.Metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, session := s.Sessions.GetOrCreate(req.SessionID)
	logger := slog.With("session_id", sessionID, "request_id", req.RequestID,
		"provider", req.Provider, "model", model)

	// Pre-flight so protocol errors map to clean HTTP statuses instead
	// of half-open streams. The runner re-checks under the session lock.
	if session.InProgress() {
		s.Metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeSessionBusy)
		c.JSON(http.StatusConflict, gin.H{"error": agent.ErrSessionBusy.Error(), "session_id": sessionID})
		return
	}
	if st := session.Status(); st != agent.StatusIdle {
		s.Metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeInvalidState)
		c.JSON(http.StatusConflict, gin.H{
			"error":      "session cannot accept a message",
			"status":     st,
			"session_id": sessionID,
		})
		return
	}

	// Record the backend so a later resume continues the turn on the
	// same provider and model.
	providerName := req.Provider
	if providerName == "" {
		providerName = s.Providers.DefaultName()
	}
	session.SetModelRef(providerName, model)

	runner := agent.NewRunner(
		llm.NewDriver(client, model, s.toolSpecs(), s.SystemPrompt, s.Params),
		s.Invoker,
	)

	s.stream(c, observability.EndpointChatStream, sessionID, logger, func(ctx context.Context, sink agent.EventSink) error {
		return runner.Start(ctx, session, req.Message, sink)
	}, session)
}

// Resume handles POST /v1/chat/resume.
//
// # Description
//
// Applies an approval decision to a suspended session and streams the
// remainder of the turn. Approval executes every pending call; their
// results arrive as tool_result events before the follow-up answer.
// Rejection executes nothing.
//
// Error mapping before the stream opens:
//   - 400: malformed body or validation failure
//   - 404: unknown session
//   - 409: session busy or not awaiting approval
func (s *ChatService) Resume(c *gin.Context) {
	var req datatypes.ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.Metrics.RecordError(observability.EndpointChatResume, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.Metrics.RecordError(observability.EndpointChatResume, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed: " + err.Error()})
		return
	}
	req.EnsureDefaults()

	session, ok := s.Sessions.Get(req.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": agent.ErrSessionNotFound.Error(), "session_id": req.SessionID})
		return
	}

	logger := slog.With("session_id", req.SessionID, "request_id", req.RequestID,
		"decision", req.Decision)

	if session.InProgress() {
		s.Metrics.RecordError(observability.EndpointChatResume, observability.ErrorCodeSessionBusy)
		c.JSON(http.StatusConflict, gin.H{"error": agent.ErrSessionBusy.Error(), "session_id": req.SessionID})
		return
	}
	if st := session.Status(); st != agent.StatusAwaitingApproval {
		s.Metrics.RecordError(observability.EndpointChatResume, observability.ErrorCodeInvalidState)
		c.JSON(http.StatusConflict, gin.H{
			"error":      "session is not awaiting approval",
			"status":     st,
			"session_id": req.SessionID,
		})
		return
	}

	// Mid-turn steps stay on the backend the turn started with; the
	// session recorded it at start time.
	providerName, modelName := session.ModelRef()
	client, model, err := s.Providers.Resolve(providerName, modelName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.Metrics.RecordDecision(req.Decision)

	runner := agent.NewRunner(
		llm.NewDriver(client, model, s.toolSpecs(), s.SystemPrompt, s.Params),
		s.Invoker,
	)

	s.stream(c, observability.EndpointChatResume, req.SessionID, logger, func(ctx context.Context, sink agent.EventSink) error {
		return runner.Resume(ctx, session, req.Approved(), sink)
	}, session)
}

// stream opens the SSE response, runs the operation with a keepalive
// ticker alongside, and records the outcome.
func (s *ChatService) stream(c *gin.Context, endpoint observability.Endpoint,
	sessionID string, logger *slog.Logger,
	op func(context.Context, agent.EventSink) error, session *agent.Session) {

	SetSSEHeaders(c.Writer)
	writer, err := NewSSEWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	s.Metrics.StreamStarted(endpoint)
	defer s.Metrics.StreamEnded(endpoint)
	started := time.Now()

	ctx := c.Request.Context()
	stopKeepAlive := s.keepAlive(ctx, endpoint, writer)
	defer stopKeepAlive()

	sink := newWriterSink(writer, sessionID)
	sink.onFirstContent = func() {
		s.Metrics.RecordFirstToken(endpoint, time.Since(started).Seconds())
	}
	opErr := op(ctx, sink)

	switch {
	case opErr == nil:
		if session.Status() == agent.StatusAwaitingApproval {
			s.Metrics.RecordSuspension()
		}
		s.Metrics.RecordRequest(endpoint, true)
	case errors.Is(opErr, context.Canceled) || ctx.Err() != nil:
		logger.Info("client disconnected mid-stream")
		s.Metrics.RecordClientDisconnect(endpoint)
		s.Metrics.RecordRequest(endpoint, false)
	default:
		// The runner already surfaced step failures as error events;
		// protocol errors lost the pre-flight race and need one here.
		if errors.Is(opErr, agent.ErrSessionBusy) ||
			errors.Is(opErr, agent.ErrInvalidState) ||
			errors.Is(opErr, agent.ErrEmptyMessage) {
			_ = sink.Error(opErr.Error())
			s.Metrics.RecordError(endpoint, observability.ErrorCodeInvalidState)
		} else {
			s.Metrics.RecordError(endpoint, observability.ErrorCodeProvider)
		}
		logger.Error("streaming turn failed", "error", opErr)
		s.Metrics.RecordRequest(endpoint, false)
	}

	s.Metrics.RecordStreamDuration(endpoint, time.Since(started).Seconds(), opErr == nil)
}

// keepAlive pings the stream until the returned stop function runs or
// the request context ends.
func (s *ChatService) keepAlive(ctx context.Context, endpoint observability.Endpoint,
	writer EventWriter) func() {

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					return
				}
				s.Metrics.RecordKeepAlive(endpoint)
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// toolSpecs converts the catalog into the provider-facing tool list.
func (s *ChatService) toolSpecs() []llm.ToolSpec {
	defs := s.Tools.Definitions()
	if len(defs) == 0 {
		return nil
	}
	specs := make([]llm.ToolSpec, len(defs))
	for i, d := range defs {
		specs[i] = llm.ToolSpec{
			Name:        d.Name,
			Description: d.Description,
			Schema:      d.Schema,
		}
	}
	return specs
}
