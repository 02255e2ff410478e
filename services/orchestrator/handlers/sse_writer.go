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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
)

// keepAliveInterval is how often an idle stream gets a ping. Load
// balancers commonly cut quiet connections at 60s.
const keepAliveInterval = 15 * time.Second

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// EventWriter is the contract both stream transports implement: it
// takes typed events, stamps their metadata, and puts them on the wire.
//
// # Description
//
// Each written event is automatically assigned:
//   - ID: UUID v4 for ordering and deduplication
//   - Timestamp: Unix milliseconds, if not already set
//   - Hash: SHA-256 of the event content for integrity
//   - PrevHash: hash of the previous event, forming a chain
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the keepalive
// goroutine writes alongside the streaming handler.
type EventWriter interface {
	// WriteEvent stamps and writes one event.
	WriteEvent(event datatypes.StreamEvent) error

	// WriteKeepAlive sends a transport-level ping that clients ignore.
	// Keepalives are not events and do not advance the hash chain.
	WriteKeepAlive() error
}

// sseWriter implements EventWriter over an http.ResponseWriter using
// the SSE wire format:
//
//	event: {type}
//	data: {json}
//
// The hash chain gives clients chain of custody over content and
// ordering: tampering with or dropping an event breaks verification.
type sseWriter struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// NewSSEWriter creates an EventWriter for the given ResponseWriter.
//
// # Inputs
//
//   - w: HTTP ResponseWriter. Must implement http.Flusher.
//
// # Outputs
//
//   - EventWriter: Ready to write SSE events.
//   - error: Non-nil if the ResponseWriter cannot flush.
//
// # Assumptions
//
//   - Caller has set SSE headers via SetSSEHeaders()
func NewSSEWriter(w http.ResponseWriter) (EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// WriteEvent stamps metadata, links the hash chain, and writes the
// event in SSE format, flushing immediately.
func (w *sseWriter) WriteEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stampEvent(&event, w.prevHash)
	w.prevHash = event.Hash

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// WriteKeepAlive sends an SSE comment line. Comments keep the TCP
// connection active without reaching client event handlers.
func (w *sseWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprint(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// stampEvent fills in ID, timestamp, and the hash chain fields.
// The hash is computed with the Hash field still empty.
func stampEvent(event *datatypes.StreamEvent, prevHash string) {
	event.ID = uuid.NewString()
	if event.Timestamp == 0 {
		event.Timestamp = nowMillis()
	}
	event.PrevHash = prevHash
	event.Hash = computeEventHash(*event)
}

// computeEventHash hashes every content-bearing field so the chain
// covers ordering, payloads, and session attribution.
func computeEventHash(event datatypes.StreamEvent) string {
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

// SetSSEHeaders sets the headers a streaming response needs. Must run
// before the first write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// Compile-time interface check.
var _ EventWriter = (*sseWriter)(nil)
