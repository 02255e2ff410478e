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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// rejectionNote is the synthetic user turn appended when the caller
// declines pending tool calls. The model answers from what it already
// knows instead of executing anything.
const rejectionNote = "I declined to run the requested tools. " +
	"Answer from what you already know, and say so if you cannot."

// StepDriver runs one reasoning step over a conversation history.
//
// A step consumes the full history, streams partial events through
// emit, and finishes with exactly one terminal StepEvent carrying the
// decision: either a plain answer or a set of tool calls. Returning a
// non-nil error means the step produced no decision.
type StepDriver interface {
	Step(ctx context.Context, history []Turn, emit func(StepEvent) error) error
}

// ToolRunner executes a batch of approved tool calls.
//
// Implementations return one RoleTool turn per call, in the same order
// the calls were requested. Per-call failures are reported inside the
// corresponding turn (OK=false) rather than as an error; a batch never
// partially disappears.
type ToolRunner interface {
	Invoke(ctx context.Context, calls []ToolCall) []Turn
}

// Runner drives sessions through their lifecycle: it owns the only
// code paths that advance a session's status, append to its history,
// or consume its pending tool calls.
//
// Thread Safety:
//
//	Runner is safe for concurrent use. Per-session exclusivity is
//	enforced with TryAcquire; a second Start or Resume against a busy
//	session fails fast with ErrSessionBusy instead of queuing.
type Runner struct {
	machine *StateMachine
	driver  StepDriver
	tools   ToolRunner
	log     *slog.Logger
}

// NewRunner creates a runner over the given step driver and tool
// runner, using the default state machine.
func NewRunner(driver StepDriver, tools ToolRunner) *Runner {
	return &Runner{
		machine: DefaultStateMachine,
		driver:  driver,
		tools:   tools,
		log:     slog.Default(),
	}
}

// Start accepts a user message on an idle session and drives one
// reasoning step over the full history.
//
// Description:
//
//	The user turn is staged, not yet appended: if the step fails, the
//	history is exactly what it was before the call and the caller must
//	resubmit. On success both the user turn and the assistant turn are
//	appended together. A decision carrying tool calls suspends the
//	session in AWAITING_APPROVAL with the calls pending; a plain answer
//	completes the turn and returns the session to IDLE.
//
// Inputs:
//
//	ctx - Cancels the step; cancellation follows the error path.
//	session - The session to advance. Must be IDLE.
//	text - The user message. Must not be blank.
//	sink - Receives the ordered event stream.
//
// Outputs:
//
//	error - ErrEmptyMessage, ErrSessionBusy, ErrInvalidState, or a
//	        wrapped step failure. The failure is also surfaced to the
//	        sink as an error event before the session returns to IDLE.
func (r *Runner) Start(ctx context.Context, session *Session, text string, sink EventSink) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !session.TryAcquire() {
		return ErrSessionBusy
	}
	defer session.Release()

	if st := session.Status(); st != StatusIdle {
		return fmt.Errorf("%w: cannot accept a message in %s", ErrInvalidState, st)
	}
	if err := r.machine.Transition(session, StatusStreaming); err != nil {
		return err
	}
	return r.step(ctx, session, sink, []Turn{UserTurn(text)})
}

// Resume applies an approval decision to a suspended session.
//
// Description:
//
//	The pending calls are consumed exactly once, before anything
//	executes; a second Resume finds the session out of
//	AWAITING_APPROVAL and fails with ErrInvalidState. On approval every
//	pending call runs, the results are appended and surfaced as
//	tool_result events, and the step over the extended history may
//	produce another suspension (multi-step turns loop through Resume).
//	On rejection nothing executes: a synthetic user turn records the
//	refusal and the model answers from its own knowledge.
//
// Inputs:
//
//	ctx - Cancels tool execution and the follow-up step.
//	session - The session to resume. Must be AWAITING_APPROVAL.
//	approved - Whether the pending calls may execute.
//	sink - Receives the ordered event stream.
//
// Outputs:
//
//	error - ErrSessionBusy, ErrInvalidState, ErrNoPendingCalls, or a
//	        wrapped step failure. Appended tool results survive a step
//	        failure; they executed and are part of the record.
func (r *Runner) Resume(ctx context.Context, session *Session, approved bool, sink EventSink) error {
	if !session.TryAcquire() {
		return ErrSessionBusy
	}
	defer session.Release()

	if st := session.Status(); st != StatusAwaitingApproval {
		return fmt.Errorf("%w: cannot resume in %s", ErrInvalidState, st)
	}
	if err := r.machine.Transition(session, StatusResuming); err != nil {
		return err
	}

	calls := session.TakePending()
	if len(calls) == 0 {
		// Suspension without pending calls should be impossible;
		// recover to IDLE rather than wedging the session.
		_ = r.machine.Transition(session, StatusStreaming)
		_ = r.machine.Transition(session, StatusIdle)
		_ = sink.Error("no pending tool calls to resume")
		return ErrNoPendingCalls
	}

	if !approved {
		r.log.Info("tool calls rejected", "session_id", session.ID, "count", len(calls))
		session.Append(UserTurn(rejectionNote))
		if err := r.machine.Transition(session, StatusStreaming); err != nil {
			return err
		}
		return r.step(ctx, session, sink, nil)
	}

	results := r.tools.Invoke(ctx, calls)
	session.Append(results...)
	if err := r.machine.Transition(session, StatusStreaming); err != nil {
		return err
	}
	for _, t := range results {
		if err := sink.ToolResult(t.Name, t.Content, t.OK); err != nil {
			_ = r.machine.Transition(session, StatusIdle)
			return fmt.Errorf("emit tool result: %w", err)
		}
	}
	return r.step(ctx, session, sink, nil)
}

// step drives one reasoning step from STREAMING and applies the
// decision. staged turns ride along in the prompt and are committed to
// the history only together with a successful decision.
func (r *Runner) step(ctx context.Context, session *Session, sink EventSink, staged []Turn) error {
	history := append(session.History(), staged...)
	mux := newMultiplexer(session.ID, sink)

	if err := r.driver.Step(ctx, history, mux.emit); err != nil {
		return r.fail(session, sink, fmt.Errorf("reasoning step: %w", err))
	}
	dec := mux.decision
	if dec == nil {
		return r.fail(session, sink, errors.New("reasoning step finished without a decision"))
	}
	if err := mux.flushText(); err != nil {
		return r.fail(session, sink, fmt.Errorf("emit content: %w", err))
	}

	if len(dec.ToolCalls) > 0 {
		session.Append(append(staged, AssistantTurn(dec.Text, dec.ToolCalls))...)
		session.SetPending(dec.ToolCalls)
		if err := r.machine.Transition(session, StatusAwaitingApproval); err != nil {
			return err
		}
		return mux.announceTools()
	}

	session.Append(append(staged, AssistantTurn(dec.Text, nil))...)
	if err := r.machine.Transition(session, StatusTerminated); err != nil {
		return err
	}
	if err := r.machine.Transition(session, StatusIdle); err != nil {
		return err
	}
	return sink.Done(session.ID)
}

// fail surfaces a step failure and restores the session to IDLE with
// its history untouched by the failed step.
func (r *Runner) fail(session *Session, sink EventSink, err error) error {
	r.log.Error("turn failed", "session_id", session.ID, "error", err)
	_ = sink.Error(err.Error())
	_ = r.machine.Transition(session, StatusIdle)
	return err
}
