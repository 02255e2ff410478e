// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request, response, and stream event types
// for the orchestrator service.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message.
	// Mitigates unbounded message input.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxSessionIDLength bounds client-chosen session identifiers.
	MaxSessionIDLength = 128
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) so oversized
// payloads are rejected before they reach a provider.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxMessageContentBytes
}

// =============================================================================
// Chat Stream Request
// =============================================================================

// ChatStreamRequest is the body of POST /v1/chat/stream.
//
// # Description
//
// Starts (or continues, for an existing idle session) one conversation
// turn. The response is an event stream; the session suspends instead
// of executing when the model requests tools.
//
// # Fields
//
//   - SessionID: Optional. Reuses an existing session or names a new
//     one. Empty means the server generates an ID and reports it on
//     the stream.
//   - Message: Required. The user turn, up to 32KB.
//   - Provider: Optional. Backend to use ("deepseek", "ollama", ...).
//     Empty selects the configured default.
//   - Model: Optional. Model name within the provider.
//   - RequestID: Optional. Client correlation ID (UUID v4); generated
//     when absent.
//   - Timestamp: Optional. Unix milliseconds; stamped when absent.
type ChatStreamRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
	Message   string `json:"message" validate:"required,maxbytes"`
	Provider  string `json:"provider" validate:"omitempty,max=64"`
	Model     string `json:"model" validate:"omitempty,max=128"`
	RequestID string `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64  `json:"timestamp" validate:"omitempty,gt=0"`
}

// Validate validates the request after JSON binding.
func (r *ChatStreamRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client
// omitted them, so every request is traceable.
func (r *ChatStreamRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Resume Request
// =============================================================================

// Decision values accepted by ResumeRequest.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// ResumeRequest is the body of POST /v1/chat/resume.
//
// # Description
//
// Applies an approval decision to a session suspended on tool calls.
// "approve" executes every pending call and streams the rest of the
// turn; "reject" executes nothing and asks the model to answer from
// its own knowledge.
//
// # Fields
//
//   - SessionID: Required. The suspended session.
//   - Decision: Required. "approve" or "reject".
//   - RequestID: Optional. Client correlation ID (UUID v4).
//   - Timestamp: Optional. Unix milliseconds.
type ResumeRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	Decision  string `json:"decision" validate:"required,oneof=approve reject"`
	RequestID string `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64  `json:"timestamp" validate:"omitempty,gt=0"`
}

// Validate validates the request after JSON binding.
func (r *ResumeRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when absent.
func (r *ResumeRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// Approved reports whether the decision allows execution.
func (r *ResumeRequest) Approved() bool {
	return r.Decision == DecisionApprove
}

// =============================================================================
// Models Response
// =============================================================================

// ModelsResponse is the body of GET /v1/models: every configured
// provider mapped to the models it serves.
type ModelsResponse struct {
	Providers map[string][]string `json:"providers"`
}
