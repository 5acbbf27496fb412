// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apexstack/conductor/services/conductor/agent/routing"
	"github.com/apexstack/conductor/services/conductor/datatypes"
	"github.com/apexstack/conductor/services/conductor/rlm"
)

// HandleRoute classifies a query and picks the best agent for it.
func HandleRoute(router *routing.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rc routing.Context
		if err := c.BindJSON(&rc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		decision := router.Route(c.Request.Context(), rc)
		c.JSON(http.StatusOK, decision)
	}
}

// MemoriesRequest asks for relevant memories for a query embedding.
type MemoriesRequest struct {
	Embedding []float32          `json:"embedding"`
	TaskType  datatypes.TaskType `json:"taskType"`
	Limit     int                `json:"limit,omitempty"`
	Format    bool               `json:"format,omitempty"`
}

// MemoriesResponse carries the ranked memories and, when requested, the
// rendered context block.
type MemoriesResponse struct {
	Memories []datatypes.RelevantMemory `json:"memories"`
	Context  string                     `json:"context,omitempty"`
}

// HandleMemories retrieves blended memories for routing or prompting.
func HandleMemories(retriever *rlm.Retriever) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MemoriesRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		memories := retriever.Retrieve(c.Request.Context(), req.Embedding, req.TaskType, req.Limit)
		resp := MemoriesResponse{Memories: memories}
		if req.Format {
			resp.Context = rlm.FormatMemoriesAsContext(memories)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleLearningStats reports the learner's cache diagnostics.
func HandleLearningStats(learner *rlm.Learner) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, learner.Stats())
	}
}
