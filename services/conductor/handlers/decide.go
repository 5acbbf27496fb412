// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the conductor core over HTTP. Handlers only
// bind, delegate, and serialize; the model call itself never happens here.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apexstack/conductor/services/conductor/datatypes"
	"github.com/apexstack/conductor/services/conductor/engine"
	"github.com/apexstack/conductor/services/conductor/policy"
)

// DecideResponse is the wire shape of one decision.
type DecideResponse struct {
	Action datatypes.NextBestAction `json:"action"`
	Trace  datatypes.DecisionTrace  `json:"trace"`
}

// HandleDecide evaluates the decision rules against a state snapshot.
func HandleDecide() gin.HandlerFunc {
	return func(c *gin.Context) {
		var snapshot datatypes.StateSnapshot
		if err := c.BindJSON(&snapshot); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		action, trace := engine.Decide(snapshot)
		c.JSON(http.StatusOK, DecideResponse{Action: action, Trace: trace})
	}
}

// RespondRequest carries raw assistant text plus the snapshot it was
// generated against.
type RespondRequest struct {
	Content  string                    `json:"content"`
	Snapshot datatypes.StateSnapshot   `json:"snapshot"`
	Action   *datatypes.NextBestAction `json:"action,omitempty"`
	Trace    *datatypes.DecisionTrace  `json:"trace,omitempty"`
}

// HandleRespond rewrites raw assistant text to comply with the response
// rules. Callers that already hold a decision pass it through; otherwise
// the decision is recomputed from the snapshot.
func HandleRespond() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RespondRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		var action datatypes.NextBestAction
		var trace datatypes.DecisionTrace
		if req.Action != nil && req.Trace != nil {
			action, trace = *req.Action, *req.Trace
		} else {
			action, trace = engine.Decide(req.Snapshot)
		}

		result := policy.Enforce(req.Content, req.Snapshot, action, trace)
		c.JSON(http.StatusOK, result)
	}
}
