// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(token string) *gin.Engine {
	router := gin.New()
	router.Use(AuthMiddleware(token))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})
	return router
}

func get(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_DisabledWithoutToken(t *testing.T) {
	router := authRouter("")
	if w := get(router, ""); w.Code != http.StatusOK {
		t.Errorf("Expected open access without configured token, got %d", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := authRouter("secret-token")
	if w := get(router, "Bearer secret-token"); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid token, got %d", w.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	router := authRouter("secret-token")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong token", "Bearer wrong"},
		{"wrong scheme", "Basic secret-token"},
		{"empty bearer", "Bearer "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := get(router, tc.header); w.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", w.Code)
			}
		})
	}
}

func TestExtractBearer(t *testing.T) {
	if token, ok := extractBearer("Bearer abc"); !ok || token != "abc" {
		t.Errorf("extractBearer failed: %q %v", token, ok)
	}
	if _, ok := extractBearer("abc"); ok {
		t.Error("Token without scheme should be rejected")
	}
}
