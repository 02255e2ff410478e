// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the chat
// orchestrator: request counters, stream latency histograms, active
// stream gauges, and the approval-flow counters specific to the
// suspend/resume lifecycle.
//
// Metrics are exposed via the /metrics endpoint and are thread-safe
// through Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "aleutian"

// Subsystem for chat streaming metrics.
const chatSubsystem = "chat"

// StreamingMetrics holds all Prometheus metrics for streaming chat
// operations. Initialize once at startup via InitMetrics().
//
// A nil *StreamingMetrics is a valid no-op receiver for the helper
// methods, so tests run without a Prometheus registry.
//
// # Thread Safety
//
// All operations are thread-safe.
type StreamingMetrics struct {
	// RequestsTotal counts streaming requests by endpoint and status.
	// Labels: endpoint (chat_stream, chat_resume, websocket), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// StreamDurationSeconds measures total stream duration.
	// Labels: endpoint, status
	StreamDurationSeconds *prometheus.HistogramVec

	// FirstTokenSeconds measures the latency from request accept to the
	// first content delta reaching the client.
	// Labels: endpoint
	FirstTokenSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently active streaming connections.
	// Labels: endpoint
	ActiveStreams *prometheus.GaugeVec

	// ErrorsTotal counts errors by type and endpoint.
	// Labels: endpoint, error_code
	ErrorsTotal *prometheus.CounterVec

	// SuspensionsTotal counts turns that suspended on tool calls.
	SuspensionsTotal prometheus.Counter

	// ApprovalDecisionsTotal counts resume decisions.
	// Labels: decision (approve, reject)
	ApprovalDecisionsTotal *prometheus.CounterVec

	// ToolCallsTotal counts executed tool calls.
	// Labels: tool, status (ok, error)
	ToolCallsTotal *prometheus.CounterVec

	// SessionsLive tracks sessions currently held in memory.
	SessionsLive prometheus.Gauge

	// SessionsEvictedTotal counts sessions removed by the TTL reaper.
	// Labels: reason (idle, abandoned)
	SessionsEvictedTotal *prometheus.CounterVec

	// KeepAlivesTotal counts keepalive pings sent.
	// Labels: endpoint
	KeepAlivesTotal *prometheus.CounterVec

	// ClientDisconnectsTotal counts client disconnections mid-stream.
	// Labels: endpoint
	ClientDisconnectsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of StreamingMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *StreamingMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once
// at application startup; a second call panics on duplicate
// registration.
func InitMetrics() *StreamingMetrics {
	DefaultMetrics = &StreamingMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total number of streaming requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		FirstTokenSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "first_token_seconds",
				Help:      "Latency from request accept to the first content delta",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total streaming errors by type and endpoint",
			},
			[]string{"endpoint", "error_code"},
		),

		SuspensionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "suspensions_total",
				Help:      "Total turns suspended awaiting tool approval",
			},
		),

		ApprovalDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "approval_decisions_total",
				Help:      "Total resume decisions by outcome",
			},
			[]string{"decision"},
		),

		ToolCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "tool_calls_total",
				Help:      "Total executed tool calls by tool and status",
			},
			[]string{"tool", "status"},
		),

		SessionsLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "sessions_live",
				Help:      "Sessions currently held in memory",
			},
		),

		SessionsEvictedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "sessions_evicted_total",
				Help:      "Sessions removed by the TTL reaper, by reason",
			},
			[]string{"reason"},
		),

		KeepAlivesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "keepalives_total",
				Help:      "Total keepalive pings sent",
			},
			[]string{"endpoint"},
		),

		ClientDisconnectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total client disconnections during streaming",
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeSessionBusy indicates a rejected concurrent operation.
	ErrorCodeSessionBusy ErrorCode = "session_busy"

	// ErrorCodeInvalidState indicates an operation in the wrong status.
	ErrorCodeInvalidState ErrorCode = "invalid_state"

	// ErrorCodeProvider indicates a model backend failure.
	ErrorCodeProvider ErrorCode = "provider_error"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"

	// ErrorCodeClientDisconnect indicates the client went away.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// Endpoint represents a streaming endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointChatStream is the SSE chat start endpoint.
	EndpointChatStream Endpoint = "chat_stream"

	// EndpointChatResume is the SSE resume endpoint.
	EndpointChatResume Endpoint = "chat_resume"

	// EndpointWebSocket is the bidirectional WebSocket transport.
	EndpointWebSocket Endpoint = "websocket"
)

// RecordRequest records a completed streaming request.
func (m *StreamingMetrics) RecordRequest(endpoint Endpoint, success bool) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), statusLabel(success)).Inc()
}

// RecordError records a streaming error.
func (m *StreamingMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *StreamingMetrics) StreamStarted(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *StreamingMetrics) StreamEnded(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordFirstToken records the time to first content delta.
func (m *StreamingMetrics) RecordFirstToken(endpoint Endpoint, seconds float64) {
	if m == nil {
		return
	}
	m.FirstTokenSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordStreamDuration records the total stream duration.
func (m *StreamingMetrics) RecordStreamDuration(endpoint Endpoint, seconds float64, success bool) {
	if m == nil {
		return
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), statusLabel(success)).Observe(seconds)
}

// RecordSuspension counts a turn that stopped for approval.
func (m *StreamingMetrics) RecordSuspension() {
	if m == nil {
		return
	}
	m.SuspensionsTotal.Inc()
}

// RecordDecision counts an approval decision.
func (m *StreamingMetrics) RecordDecision(decision string) {
	if m == nil {
		return
	}
	m.ApprovalDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordToolCall counts one executed tool call.
func (m *StreamingMetrics) RecordToolCall(tool string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

// SetSessionsLive updates the live-session gauge.
func (m *StreamingMetrics) SetSessionsLive(count int) {
	if m == nil {
		return
	}
	m.SessionsLive.Set(float64(count))
}

// RecordEviction counts one reaped session.
func (m *StreamingMetrics) RecordEviction(reason string) {
	if m == nil {
		return
	}
	m.SessionsEvictedTotal.WithLabelValues(reason).Inc()
}

// RecordKeepAlive increments the keepalive counter.
func (m *StreamingMetrics) RecordKeepAlive(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.KeepAlivesTotal.WithLabelValues(string(endpoint)).Inc()
}

// RecordClientDisconnect increments the client disconnect counter.
func (m *StreamingMetrics) RecordClientDisconnect(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.ClientDisconnectsTotal.WithLabelValues(string(endpoint)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
