// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexstack/conductor/services/conductor/agent/classifier"
	"github.com/apexstack/conductor/services/conductor/agent/registry"
	"github.com/apexstack/conductor/services/conductor/agent/routing"
	"github.com/apexstack/conductor/services/conductor/datatypes"
	"github.com/apexstack/conductor/services/conductor/rlm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, handler gin.HandlerFunc, path, route string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	router := gin.New()
	router.POST(route, handler)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleDecide(t *testing.T) {
	snapshot := datatypes.StateSnapshot{RequestID: "req-1", Message: "hello"}

	w := postJSON(t, HandleDecide(), "/decide", "/decide", snapshot)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DecideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.ActionAskEmail, resp.Action.Type)
	assert.Equal(t, "req-1", resp.Trace.RequestID)
	assert.Equal(t, "orchestration-rules@1.0.0", resp.Trace.RuleVersion)
}

func TestHandleDecide_BadBody(t *testing.T) {
	router := gin.New()
	router.POST("/decide", HandleDecide())

	req := httptest.NewRequest(http.MethodPost, "/decide", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRespond_RewritesViolation(t *testing.T) {
	snapshot := datatypes.StateSnapshot{RequestID: "req-2"}
	snapshot.Known.Email.Value = "dana@example.com"
	snapshot.Known.Email.Valid = true

	req := RespondRequest{
		Content:  "Please provide your email address to continue.",
		Snapshot: snapshot,
	}

	w := postJSON(t, HandleRespond(), "/respond", "/respond", req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["rewritten"])
	assert.NotContains(t, body["content"], "email address")
}

func TestHandleRoute(t *testing.T) {
	router, err := routing.New(registry.Default(), classifier.NewKeywordClassifier(), nil, nil)
	require.NoError(t, err)

	w := postJSON(t, HandleRoute(router), "/route", "/route", routing.Context{Query: "write a function to parse JSON"})
	require.Equal(t, http.StatusOK, w.Code)

	var decision datatypes.RoutingDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, datatypes.AgentBuilder, decision.AgentID)
	assert.NotEmpty(t, decision.Reasoning)
}

func TestHandleMemories_Formatted(t *testing.T) {
	retriever := rlm.NewRetriever(nil, nil, nil, nil)

	w := postJSON(t, HandleMemories(retriever), "/memories", "/memories", MemoriesRequest{TaskType: datatypes.TaskSearch, Format: true})
	require.Equal(t, http.StatusOK, w.Code)

	var resp MemoriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Memories)
	assert.Empty(t, resp.Context)
}

func TestHandlePrompt(t *testing.T) {
	reg := registry.Default()
	retriever := rlm.NewRetriever(nil, nil, nil, nil)

	w := postJSON(t, HandlePrompt(reg, retriever), "/prompt", "/prompt", PromptRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := PromptRequest{
		AgentID: datatypes.AgentScout,
		Recommendations: &datatypes.RecommendationPayload{
			Persona: datatypes.PersonaBusiness,
			Track:   "scale",
			Top3: []datatypes.RecommendationItem{
				{ID: "m1", Title: "Orchestration Basics", Why: "foundational", NextStep: "Start module one"},
			},
			QuickWin: "Quick win: Orchestration Basics",
		},
	}
	w = postJSON(t, HandlePrompt(reg, retriever), "/prompt", "/prompt", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PromptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.MemoryCount)
	assert.Contains(t, resp.Prompt, "You are the Scout")
	assert.Contains(t, resp.Prompt, "\n\nContext:\nRECOMMENDATION_CONTEXT:")
	assert.Contains(t, resp.Prompt, "1. Orchestration Basics | why=foundational | next=Start module one")
	assert.Contains(t, resp.Prompt, "QuickWin: Quick win: Orchestration Basics")
}

func TestSessionLifecycle(t *testing.T) {
	tracker := rlm.NewTracker(rlm.TrackerConfig{})
	learner := rlm.NewLearner(rlm.LearnerConfig{KnownAgents: []datatypes.AgentID{datatypes.AgentBuilder}})
	defer learner.Close()

	router := gin.New()
	router.POST("/sessions", HandleSessionStart(tracker))
	router.GET("/sessions", HandleActiveSessions(tracker))
	router.POST("/sessions/:id/retry", HandleSessionRetry(tracker))
	router.POST("/sessions/:id/error", HandleSessionError(tracker))
	router.POST("/sessions/:id/complete", HandleSessionComplete(tracker, learner))

	start := func(body any) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// Missing agent is rejected.
	w := start(SessionStartRequest{UserID: "user-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = start(SessionStartRequest{UserID: "user-1", Agent: datatypes.AgentBuilder, Prompt: "build it"})
	require.Equal(t, http.StatusOK, w.Code)
	sessionID, ok := decodeBody(t, w)["sessionId"].(string)
	require.True(t, ok)

	listW := httptest.NewRecorder()
	router.ServeHTTP(listW, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Contains(t, listW.Body.String(), sessionID)

	retryW := httptest.NewRecorder()
	router.ServeHTTP(retryW, httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/retry", nil))
	assert.Equal(t, http.StatusNoContent, retryW.Code)

	complete := func() *httptest.ResponseRecorder {
		payload, err := json.Marshal(SessionCompleteRequest{XP: 25, TaskType: datatypes.TaskCodeGeneration})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/complete", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w = complete()
	require.Equal(t, http.StatusOK, w.Code)
	outcome := decodeBody(t, w)
	assert.Equal(t, float64(25), outcome["xpEarned"])
	assert.Equal(t, float64(1), outcome["retryCount"])

	// Completion is one-shot.
	assert.Equal(t, http.StatusNotFound, complete().Code)

	// The learner saw the outcome under the requested task bucket.
	assert.Contains(t, learner.AgentScores(datatypes.TaskCodeGeneration), datatypes.AgentBuilder)
}

func TestHandleSessionAbandon(t *testing.T) {
	tracker := rlm.NewTracker(rlm.TrackerConfig{})
	learner := rlm.NewLearner(rlm.LearnerConfig{KnownAgents: []datatypes.AgentID{datatypes.AgentScout}})
	defer learner.Close()

	router := gin.New()
	router.POST("/sessions/:id/abandon", HandleSessionAbandon(tracker, learner))

	sessionID := tracker.Start("user-1", "", datatypes.AgentScout, "find it")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/abandon", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["abandoned"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/unknown/abandon", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleLearningStats(t *testing.T) {
	learner := rlm.NewLearner(rlm.LearnerConfig{KnownAgents: []datatypes.AgentID{datatypes.AgentScout}})
	defer learner.Close()

	router := gin.New()
	router.GET("/learnings/stats", HandleLearningStats(learner))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/learnings/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["totalLearnings"])
}
