// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ttl provides time-to-live management for chat sessions. It
// evicts sessions that have gone quiet so the in-memory registry does
// not grow without bound.
package ttl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/observability"
)

// =============================================================================
// Clock Abstraction
// =============================================================================

// Clock supplies the current time. Tests inject a fake to age sessions
// without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// =============================================================================
// Reaper Configuration
// =============================================================================

// Eviction reasons recorded in metrics and the audit log.
const (
	ReasonIdle      = "idle"
	ReasonAbandoned = "abandoned"
)

// ReaperConfig holds configuration for the session reaper.
//
// # Description
//
// Contains all settings for the background eviction loop. Default
// values are provided via DefaultReaperConfig().
//
// # Fields
//
//   - Interval: How often to run eviction cycles. Default: 5 minutes.
//   - IdleTTL: How long an idle session may sit between turns before
//     eviction. Default: 30 minutes.
//   - SuspendedTTL: How long a session may wait for an approval
//     decision before it counts as abandoned. Longer than IdleTTL
//     because a human is expected to come back. Default: 2 hours.
//   - BatchSize: Maximum sessions evicted per cycle. Default: 100.
type ReaperConfig struct {
	Interval     time.Duration
	IdleTTL      time.Duration
	SuspendedTTL time.Duration
	BatchSize    int
}

// DefaultReaperConfig returns sensible default reaper configuration.
//
// # Examples
//
//	config := DefaultReaperConfig()
//	config.IdleTTL = 10 * time.Minute // Override just the idle TTL
//	reaper := NewReaper(sessions, metrics, logger, config, nil)
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Interval:     5 * time.Minute,
		IdleTTL:      30 * time.Minute,
		SuspendedTTL: 2 * time.Hour,
		BatchSize:    100,
	}
}

// CleanupResult contains the outcome of one eviction cycle.
//
// # Fields
//
//   - IdleEvicted: Idle sessions removed this cycle.
//   - AbandonedEvicted: Suspended sessions removed this cycle.
//   - Remaining: Sessions still registered after the cycle.
type CleanupResult struct {
	IdleEvicted      int
	AbandonedEvicted int
	Remaining        int
}

// =============================================================================
// Session Reaper
// =============================================================================

// Reaper evicts expired sessions from the registry on a fixed interval.
//
// # Description
//
// Manages the lifecycle of a background goroutine that periodically
// sweeps the session registry. Uses the ticker + done channel pattern
// for graceful shutdown. A session is evicted when:
//
//   - it is IDLE and has not been touched for IdleTTL, or
//   - it is AWAITING_APPROVAL and has waited longer than SuspendedTTL.
//
// Sessions with a live stream are never evicted regardless of age.
//
// # Thread Safety
//
// All public methods are thread-safe. Start and Stop are protected by
// a mutex; RunOnce may be called concurrently with the background loop.
type Reaper struct {
	sessions *agent.Registry
	metrics  *observability.StreamingMetrics
	audit    *EvictionLogger
	config   ReaperConfig
	clock    Clock
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewReaper creates a session reaper.
//
// # Inputs
//
//   - sessions: The registry to sweep.
//   - metrics: Streaming metrics; nil disables recording.
//   - audit: Eviction audit logger; nil disables audit records.
//   - config: Reaper configuration.
//   - clock: Time source; nil uses the system clock.
//
// # Outputs
//
//   - *Reaper: Ready to Start().
func NewReaper(sessions *agent.Registry, metrics *observability.StreamingMetrics,
	audit *EvictionLogger, config ReaperConfig, clock Clock) *Reaper {

	if clock == nil {
		clock = SystemClock()
	}
	return &Reaper{
		sessions: sessions,
		metrics:  metrics,
		audit:    audit,
		config:   config,
		clock:    clock,
	}
}

// Start launches the background eviction loop.
//
// # Outputs
//
//   - error: Non-nil if the reaper is already running.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reaper already running")
	}
	r.done = make(chan struct{})
	r.running = true

	go r.run(ctx, r.done)

	slog.Info("Session reaper started",
		"interval", r.config.Interval.String(),
		"idle_ttl", r.config.IdleTTL.String(),
		"suspended_ttl", r.config.SuspendedTTL.String())
	return nil
}

// Stop signals the background loop to exit and waits for no one; the
// loop drains its current cycle before returning.
//
// # Outputs
//
//   - error: Non-nil if the reaper was not running.
func (r *Reaper) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return fmt.Errorf("reaper is not running")
	}
	close(r.done)
	r.running = false

	slog.Info("Session reaper stopped")
	return nil
}

func (r *Reaper) run(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result := r.RunOnce(ctx)
			if result.IdleEvicted+result.AbandonedEvicted > 0 {
				slog.Info("Session eviction cycle complete",
					"idle_evicted", result.IdleEvicted,
					"abandoned_evicted", result.AbandonedEvicted,
					"remaining", result.Remaining)
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single eviction sweep.
//
// # Description
//
// Snapshots the registry, evicts every session past its TTL up to
// BatchSize, and updates the live-session gauge. Sessions that are
// mid-stream are skipped even when their timestamps look stale: the
// stream holder will refresh them on release.
func (r *Reaper) RunOnce(ctx context.Context) CleanupResult {
	now := r.clock.Now()
	var result CleanupResult

	for _, info := range r.sessions.List() {
		if ctx.Err() != nil {
			break
		}
		if r.config.BatchSize > 0 &&
			result.IdleEvicted+result.AbandonedEvicted >= r.config.BatchSize {
			break
		}

		session, ok := r.sessions.Get(info.ID)
		if !ok || session.InProgress() {
			continue
		}

		status := session.Status()
		lastActive := session.LastActiveAt()
		age := now.Sub(lastActive)
		var reason string
		switch status {
		case agent.StatusIdle:
			if age > r.config.IdleTTL {
				reason = ReasonIdle
			}
		case agent.StatusAwaitingApproval:
			if age > r.config.SuspendedTTL {
				reason = ReasonAbandoned
			}
		}
		if reason == "" {
			continue
		}

		if !r.evict(session, info.ID, reason, age, status, lastActive) {
			continue
		}
		if reason == ReasonIdle {
			result.IdleEvicted++
		} else {
			result.AbandonedEvicted++
		}
	}

	result.Remaining = len(r.sessions.List())
	r.metrics.SetSessionsLive(result.Remaining)
	return result
}

// evict removes one expired session. The session is acquired with
// TryEvict first, so a turn that started after the sweep's staleness
// check cannot lose its session mid-flight; when the acquisition
// fails the session is left for the next sweep.
func (r *Reaper) evict(session *agent.Session, id, reason string, age time.Duration,
	status agent.Status, observedActive time.Time) bool {

	if !session.TryEvict(status, observedActive) {
		return false
	}
	turns := session.HistoryLen()
	r.sessions.Remove(id)
	session.Release()
	r.metrics.RecordEviction(reason)

	if r.audit != nil {
		if err := r.audit.Log(EvictionRecord{
			Timestamp: r.clock.Now().UnixMilli(),
			SessionID: id,
			Reason:    reason,
			Turns:     turns,
			IdleMs:    age.Milliseconds(),
		}); err != nil {
			slog.Warn("Failed to write eviction audit record",
				"session_id", id, "error", err)
		}
	}

	slog.Info("Evicted session",
		"session_id", id, "reason", reason,
		"turns", turns, "idle", age.String())
	return true
}
