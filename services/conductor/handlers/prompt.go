// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apexstack/conductor/services/conductor/agent/registry"
	"github.com/apexstack/conductor/services/conductor/datatypes"
	"github.com/apexstack/conductor/services/conductor/rlm"
)

// PromptRequest asks for a fully assembled system prompt for one agent:
// its template plus retrieved memories and, when supplied, the pending
// recommendation payload as context.
type PromptRequest struct {
	AgentID         datatypes.AgentID                `json:"agentId"`
	Embedding       []float32                        `json:"embedding,omitempty"`
	TaskType        datatypes.TaskType               `json:"taskType,omitempty"`
	Limit           int                              `json:"limit,omitempty"`
	Recommendations *datatypes.RecommendationPayload `json:"recommendations,omitempty"`
}

// PromptResponse carries the rendered prompt and how many memories fed it.
type PromptResponse struct {
	Prompt      string `json:"prompt"`
	MemoryCount int    `json:"memoryCount"`
}

// recommendationContext renders a recommendation payload into the context
// block format consumed by agent prompts.
func recommendationContext(r *datatypes.RecommendationPayload) string {
	if r == nil || len(r.Top3) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("RECOMMENDATION_CONTEXT:\n")
	fmt.Fprintf(&b, "Persona: %s\n", r.Persona)
	fmt.Fprintf(&b, "Track: %s\n", r.Track)
	for i, item := range r.Top3 {
		fmt.Fprintf(&b, "%d. %s | why=%s | next=%s\n", i+1, item.Title, item.Why, item.NextStep)
	}
	if r.QuickWin != "" {
		fmt.Fprintf(&b, "QuickWin: %s\n", r.QuickWin)
	}
	return strings.TrimRight(b.String(), "\n")
}

// HandlePrompt assembles the system prompt an eventual model call would
// receive: the agent's template with retrieved memories and recommendation
// context appended. The call itself stays with the caller.
func HandlePrompt(reg *registry.Registry, retriever *rlm.Retriever) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PromptRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.AgentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "agentId is required"})
			return
		}

		var parts []string
		var memoryCount int
		if len(req.Embedding) > 0 || req.TaskType != "" {
			memories := retriever.Retrieve(c.Request.Context(), req.Embedding, req.TaskType, req.Limit)
			memoryCount = len(memories)
			if block := rlm.FormatMemoriesAsContext(memories); block != "" {
				parts = append(parts, block)
			}
		}
		if block := recommendationContext(req.Recommendations); block != "" {
			parts = append(parts, block)
		}

		prompt := reg.SystemPrompt(req.AgentID, strings.Join(parts, "\n"))
		c.JSON(http.StatusOK, PromptResponse{Prompt: prompt, MemoryCount: memoryCount})
	}
}
