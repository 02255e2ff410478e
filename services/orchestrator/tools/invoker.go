// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/observability"
)

// InvokerOptions configures batch execution.
type InvokerOptions struct {
	// CallTimeout bounds each individual tool call.
	CallTimeout time.Duration

	// MaxParallel caps the number of calls running at once.
	// Zero means no limit.
	MaxParallel int

	// Metrics counts executed calls per tool. Nil disables recording.
	Metrics *observability.StreamingMetrics
}

// DefaultInvokerOptions returns the invoker defaults.
func DefaultInvokerOptions() InvokerOptions {
	return InvokerOptions{
		CallTimeout: 30 * time.Second,
		MaxParallel: 4,
	}
}

// Invoker executes approved tool-call batches against a catalog.
//
// Calls within a batch run in parallel; results come back in request
// order regardless of completion order. A failing call never cancels
// its siblings and never loses the batch: the failure is recorded in
// that call's result turn and the rest of the batch completes.
//
// Thread Safety:
//
//	Invoker is safe for concurrent use. Multiple batches can run
//	simultaneously.
type Invoker struct {
	catalog *Catalog
	options InvokerOptions
	log     *slog.Logger
}

// NewInvoker creates an invoker over the given catalog.
//
// Inputs:
//
//	catalog - The tool catalog. Must not be nil.
//	opts - Execution options (uses defaults if nil)
func NewInvoker(catalog *Catalog, opts *InvokerOptions) *Invoker {
	options := DefaultInvokerOptions()
	if opts != nil {
		options = *opts
	}
	return &Invoker{
		catalog: catalog,
		options: options,
		log:     slog.Default(),
	}
}

// Invoke executes every call in the batch and returns one result turn
// per call, in request order.
//
// Description:
//
//	Unknown tools, decode failures, timeouts, and tool errors all
//	surface as failed result turns (OK=false) with the error text as
//	content, so the model can see what went wrong and recover. Invoke
//	itself never fails.
//
// Inputs:
//
//	ctx - Cancels every in-flight call in the batch.
//	calls - The approved calls. May be empty.
//
// Outputs:
//
//	[]agent.Turn - One RoleTool turn per call, ordered as requested
//
// Thread Safety: This method is safe for concurrent use.
func (inv *Invoker) Invoke(ctx context.Context, calls []agent.ToolCall) []agent.Turn {
	results := make([]agent.Turn, len(calls))

	var g errgroup.Group
	if inv.options.MaxParallel > 0 {
		g.SetLimit(inv.options.MaxParallel)
	}

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = inv.one(ctx, call)
			return nil
		})
	}
	// Goroutines only fill their own slot; the group never errors.
	_ = g.Wait()

	return results
}

// one executes a single call and folds any failure into the turn.
func (inv *Invoker) one(ctx context.Context, call agent.ToolCall) agent.Turn {
	logger := inv.log.With("tool", call.Name, "call_id", call.ID)

	tool, ok := inv.catalog.Get(call.Name)
	if !ok {
		logger.Warn("tool not found")
		inv.options.Metrics.RecordToolCall(call.Name, false)
		return agent.ToolResultTurn(call.ID, call.Name,
			fmt.Sprintf("%s: %s", ErrToolNotFound, call.Name), false)
	}

	callCtx := ctx
	if inv.options.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, inv.options.CallTimeout)
		defer cancel()
	}

	started := time.Now()
	content, err := tool.Call(callCtx, call.Arguments)
	elapsed := time.Since(started)

	if err != nil {
		logger.Warn("tool call failed", "error", err, "duration", elapsed)
		inv.options.Metrics.RecordToolCall(call.Name, false)
		return agent.ToolResultTurn(call.ID, call.Name, err.Error(), false)
	}

	logger.Debug("tool call completed", "duration", elapsed)
	inv.options.Metrics.RecordToolCall(call.Name, true)
	return agent.ToolResultTurn(call.ID, call.Name, content, true)
}
