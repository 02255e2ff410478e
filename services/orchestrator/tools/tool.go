// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools holds the tool catalog and the invoker that executes
// approved tool calls. Nothing in this package runs a tool before the
// caller approves it; the catalog only describes, the invoker only
// executes consumed, approved batches.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Sentinel errors for the tools package.
var (
	// ErrToolNotFound indicates the requested tool is not in the catalog.
	ErrToolNotFound = errors.New("tool not found")

	// ErrBadArguments indicates the call arguments did not decode.
	ErrBadArguments = errors.New("invalid tool arguments")
)

// Tool is one callable capability advertised to the model.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use; the invoker runs
//	calls in parallel.
type Tool interface {
	// Name is the identifier the model uses in tool calls.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema is the JSON Schema for the tool's arguments.
	Schema() json.RawMessage

	// Call executes the tool with raw JSON arguments and returns a
	// text result for the conversation.
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// Definition is the transport-neutral description of a tool, handed to
// providers when they advertise capabilities to the model.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"parameters"`
}

// Catalog manages tool registration and lookup.
//
// Registration order is preserved: Definitions and Names report tools
// in the order they were registered, so the model sees a stable list.
//
// Thread Safety:
//
//	Catalog is fully thread-safe. All methods can be called concurrently.
type Catalog struct {
	mu sync.RWMutex

	// byName maps tool names to tool instances.
	byName map[string]Tool

	// order records registration order.
	order []string
}

// NewCatalog creates a new empty tool catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]Tool)}
}

// Register adds a tool to the catalog.
//
// Description:
//
//	Registers a tool under its Name(). A tool with the same name
//	replaces the existing one in place, keeping its original position.
//
// Inputs:
//
//	tool - The tool to register. Nil tools are ignored.
//
// Thread Safety: This method is safe for concurrent use.
func (c *Catalog) Register(tool Tool) {
	if tool == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	name := tool.Name()
	if _, ok := c.byName[name]; !ok {
		c.order = append(c.order, name)
	}
	c.byName[name] = tool
}

// Get looks up a tool by name.
//
// Outputs:
//
//	Tool - The registered tool, nil if absent
//	bool - Whether the tool was found
//
// Thread Safety: This method is safe for concurrent use.
func (c *Catalog) Get(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tool, ok := c.byName[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Definitions returns the provider-facing descriptions of every
// registered tool, in registration order.
//
// Thread Safety: This method is safe for concurrent use.
func (c *Catalog) Definitions() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]Definition, 0, len(c.order))
	for _, name := range c.order {
		tool := c.byName[name]
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}
	return defs
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}
