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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// WeatherTool reports canned weather conditions. It exists so the
// approval flow can be exercised end to end without external services.
type WeatherTool struct{}

// NewWeatherTool creates the demo weather tool.
func NewWeatherTool() *WeatherTool { return &WeatherTool{} }

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Get the current weather for a city."
}

func (t *WeatherTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"city": {
				"type": "string",
				"description": "The city name"
			}
		},
		"required": ["city"]
	}`)
}

func (t *WeatherTool) Call(_ context.Context, args json.RawMessage) (string, error) {
	var params struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	city := strings.TrimSpace(params.City)
	if city == "" {
		return "", fmt.Errorf("%w: city is required", ErrBadArguments)
	}
	return fmt.Sprintf("Current conditions in %s: 12°C, overcast, light wind.", city), nil
}

// BookingTool records a restaurant reservation request and returns a
// confirmation code. Nothing is persisted; it demonstrates a tool with
// side effects that genuinely needs approval.
type BookingTool struct{}

// NewBookingTool creates the demo booking tool.
func NewBookingTool() *BookingTool { return &BookingTool{} }

func (t *BookingTool) Name() string { return "book_table" }

func (t *BookingTool) Description() string {
	return "Book a restaurant table. Requires restaurant name, party size, and time."
}

func (t *BookingTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"restaurant": {
				"type": "string",
				"description": "The restaurant name"
			},
			"party_size": {
				"type": "integer",
				"description": "Number of guests"
			},
			"time": {
				"type": "string",
				"description": "Requested time, e.g. 19:30"
			}
		},
		"required": ["restaurant", "party_size", "time"]
	}`)
}

func (t *BookingTool) Call(_ context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Restaurant string `json:"restaurant"`
		PartySize  int    `json:"party_size"`
		Time       string `json:"time"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	if params.Restaurant == "" || params.Time == "" {
		return "", fmt.Errorf("%w: restaurant and time are required", ErrBadArguments)
	}
	if params.PartySize < 1 {
		return "", fmt.Errorf("%w: party_size must be at least 1", ErrBadArguments)
	}

	code := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("Booked a table for %d at %s, %s. Confirmation code %s.",
		params.PartySize, params.Restaurant, params.Time, code), nil
}
