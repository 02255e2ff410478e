// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/chatagent/services/orchestrator/handlers"
)

// SetupRoutes registers every endpoint the chat service exposes.
func SetupRoutes(router *gin.Engine, chat *handlers.ChatService, admin *handlers.SessionAdmin) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		chatGroup := v1.Group("/chat")
		{
			chatGroup.POST("/stream", chat.ChatStream)
			chatGroup.POST("/resume", chat.Resume)
			chatGroup.GET("/ws", chat.ChatWebSocket)
		}

		v1.GET("/models", chat.Models)

		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", admin.List)
			sessions.GET("/:id", admin.Get)
			sessions.DELETE("/:id", admin.Delete)
		}
	}
}
