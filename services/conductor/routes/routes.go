// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the conductor's HTTP surface onto a gin engine.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apexstack/conductor/services/conductor/agent/registry"
	"github.com/apexstack/conductor/services/conductor/agent/routing"
	"github.com/apexstack/conductor/services/conductor/handlers"
	"github.com/apexstack/conductor/services/conductor/rlm"
)

// SetupRoutes registers every endpoint on the router.
func SetupRoutes(router *gin.Engine, reg *registry.Registry, agentRouter *routing.Router,
	tracker *rlm.Tracker, learner *rlm.Learner, retriever *rlm.Retriever) {

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/decide", handlers.HandleDecide())
		v1.POST("/respond", handlers.HandleRespond())
		v1.POST("/route", handlers.HandleRoute(agentRouter))
		v1.POST("/memories", handlers.HandleMemories(retriever))
		v1.POST("/prompt", handlers.HandlePrompt(reg, retriever))
		v1.GET("/learnings/stats", handlers.HandleLearningStats(learner))

		// Session lifecycle routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.HandleSessionStart(tracker))
			sessions.GET("", handlers.HandleActiveSessions(tracker))
			sessions.POST("/:id/retry", handlers.HandleSessionRetry(tracker))
			sessions.POST("/:id/error", handlers.HandleSessionError(tracker))
			sessions.POST("/:id/complete", handlers.HandleSessionComplete(tracker, learner))
			sessions.POST("/:id/abandon", handlers.HandleSessionAbandon(tracker, learner))
		}
	}
}
