// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/chatagent/services/llm"
	"github.com/AleutianAI/chatagent/services/orchestrator/agent"
	"github.com/AleutianAI/chatagent/services/orchestrator/handlers"
	"github.com/AleutianAI/chatagent/services/orchestrator/tools"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	providers := llm.NewProviderRegistry()
	providers.Register("mock", llm.Provider{Client: &llm.MockChatClient{}, Models: []string{"mock-model"}})
	catalog := tools.NewCatalog()
	sessions := agent.NewRegistry()

	chat := handlers.NewChatService(sessions, providers, catalog,
		tools.NewInvoker(catalog, nil), nil)
	admin := handlers.NewSessionAdmin(sessions)

	router := gin.New()
	SetupRoutes(router, chat, admin)
	return router
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersCoreRoutes(t *testing.T) {
	router := newRouter()

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/chat/stream"},
		{"POST", "/v1/chat/resume"},
		{"GET", "/v1/chat/ws"},
		{"GET", "/v1/models"},
		{"GET", "/v1/sessions"},
		{"GET", "/v1/sessions/:id"},
		{"DELETE", "/v1/sessions/:id"},
	}

	routes := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range routes {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s to be registered", expected.method, expected.path)
		}
	}
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", w.Code)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", w.Code)
	}
}
