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

	"github.com/apexstack/conductor/services/conductor/datatypes"
	"github.com/apexstack/conductor/services/conductor/rlm"
)

// SessionStartRequest opens a tracked interaction session.
type SessionStartRequest struct {
	UserID  string            `json:"userId"`
	QuestID string            `json:"questId,omitempty"`
	Agent   datatypes.AgentID `json:"agent"`
	Prompt  string            `json:"prompt"`
}

// HandleSessionStart begins tracking one routed interaction.
func HandleSessionStart(tracker *rlm.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SessionStartRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.UserID == "" || req.Agent == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId and agent are required"})
			return
		}

		sessionID := tracker.Start(req.UserID, req.QuestID, req.Agent, req.Prompt)
		c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
	}
}

// HandleSessionRetry increments a session's retry count.
func HandleSessionRetry(tracker *rlm.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tracker.RecordRetry(c.Param("id"))
		c.Status(http.StatusNoContent)
	}
}

// HandleSessionError flags a session as having hit an error.
func HandleSessionError(tracker *rlm.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tracker.RecordError(c.Param("id"))
		c.Status(http.StatusNoContent)
	}
}

// SessionCompleteRequest finalizes a session with its rewards. TaskType,
// when present, is the bucket the learner records the outcome under.
type SessionCompleteRequest struct {
	XP       int                `json:"xp"`
	Gold     int                `json:"gold"`
	TaskType datatypes.TaskType `json:"taskType,omitempty"`
	Metadata map[string]any     `json:"metadata,omitempty"`
}

// HandleSessionComplete finalizes a session and feeds the outcome to the
// learner. A second completion for the same id returns 404.
func HandleSessionComplete(tracker *rlm.Tracker, learner *rlm.Learner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SessionCompleteRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		outcome := tracker.Complete(c.Param("id"), req.XP, req.Gold, req.Metadata)
		if outcome == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown session"})
			return
		}

		learner.Record(outcome, req.TaskType)
		c.JSON(http.StatusOK, outcome)
	}
}

// HandleSessionAbandon marks a session abandoned and feeds the outcome to
// the learner.
func HandleSessionAbandon(tracker *rlm.Tracker, learner *rlm.Learner) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := tracker.Abandon(c.Param("id"))
		if outcome == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown session"})
			return
		}

		learner.Record(outcome, "")
		c.JSON(http.StatusOK, outcome)
	}
}

// HandleActiveSessions lists all currently open session ids.
func HandleActiveSessions(tracker *rlm.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": tracker.ActiveSessions()})
	}
}
