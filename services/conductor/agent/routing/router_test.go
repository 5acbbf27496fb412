// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexstack/conductor/services/conductor/agent/classifier"
	"github.com/apexstack/conductor/services/conductor/agent/registry"
	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// fixedClassifier always returns the same classification.
type fixedClassifier struct {
	task datatypes.TaskType
	conf float64
}

func (f *fixedClassifier) Classify(_ context.Context, _ string) (datatypes.TaskType, float64) {
	return f.task, f.conf
}

// staticScores is a canned ScoreProvider.
type staticScores map[datatypes.AgentID]float64

func (s staticScores) AgentScores(_ datatypes.TaskType) map[datatypes.AgentID]float64 {
	out := make(map[datatypes.AgentID]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func newTestRouter(t *testing.T, cls classifier.TaskClassifier, scores ScoreProvider) *Router {
	t.Helper()
	r, err := New(registry.Default(), cls, scores, nil)
	require.NoError(t, err)
	return r
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, classifier.NewKeywordClassifier(), nil, nil)
	assert.Error(t, err)

	_, err = New(registry.Default(), nil, nil, nil)
	assert.Error(t, err)

	r, err := New(registry.Default(), classifier.NewKeywordClassifier(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestRoute_TaskPreferenceWinsWithoutSignals(t *testing.T) {
	cls := &fixedClassifier{task: datatypes.TaskCodeGeneration, conf: 0.4}
	r := newTestRouter(t, cls, nil)

	decision := r.Route(context.Background(), Context{Query: "anything"})

	// All candidates tie at the base score, so the preference order holds.
	assert.Equal(t, datatypes.AgentBuilder, decision.AgentID)
	assert.Equal(t, datatypes.AgentSovereign, decision.FallbackAgentID)
	assert.InDelta(t, 0.5, decision.Confidence, 1e-9)
}

func TestRoute_LearnedScoresShiftTheChoice(t *testing.T) {
	cls := &fixedClassifier{task: datatypes.TaskCodeGeneration, conf: 0.4}
	scores := staticScores{datatypes.AgentSovereign: 1.0}
	r := newTestRouter(t, cls, scores)

	decision := r.Route(context.Background(), Context{Query: "anything"})

	// 0.5 + 1.0*0.3 beats builder's plain 0.5.
	assert.Equal(t, datatypes.AgentSovereign, decision.AgentID)
	assert.InDelta(t, 0.8, decision.Confidence, 1e-9)
	assert.Contains(t, decision.Reasoning, "RLM-informed.")
}

func TestRoute_ContextOverflowPenalty(t *testing.T) {
	cls := &fixedClassifier{task: datatypes.TaskExplanation, conf: 0.4}
	r := newTestRouter(t, cls, nil)

	// 200K tokens overflows architect's 128K window but not sovereign's 1M.
	decision := r.Route(context.Background(), Context{Query: "q", ContextLength: 200_000})

	assert.Equal(t, datatypes.AgentSovereign, decision.AgentID)
	assert.Equal(t, datatypes.AgentArchitect, decision.FallbackAgentID)
}

func TestRoute_SpecialistBonuses(t *testing.T) {
	tests := []struct {
		name string
		task datatypes.TaskType
		rc   Context
		want datatypes.AgentID
	}{
		{
			name: "realtime favors scout",
			task: datatypes.TaskKnowledgeRecall,
			rc:   Context{Query: "q", RequiresRealtime: true, PastSuccess: map[datatypes.AgentID]float64{datatypes.AgentScout: 0}},
			want: datatypes.AgentSovereign, // scout is not a recall candidate
		},
		{
			name: "reasoning favors architect",
			task: datatypes.TaskKnowledgeRecall,
			rc:   Context{Query: "q", RequiresReasoning: true},
			want: datatypes.AgentArchitect,
		},
		{
			name: "code favors builder",
			task: datatypes.TaskDebugging,
			rc:   Context{Query: "q", RequiresCode: true},
			want: datatypes.AgentBuilder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &fixedClassifier{task: tt.task, conf: 0.4}, nil)
			decision := r.Route(context.Background(), tt.rc)
			assert.Equal(t, tt.want, decision.AgentID)
		})
	}
}

func TestRoute_CostPenaltyOnHighConfidence(t *testing.T) {
	// Debugging candidates are builder then architect. With high
	// classification confidence the expensive architect is penalized
	// harder than the cheap builder.
	cls := &fixedClassifier{task: datatypes.TaskDebugging, conf: 0.9}
	r := newTestRouter(t, cls, nil)

	decision := r.Route(context.Background(), Context{Query: "q"})

	assert.Equal(t, datatypes.AgentBuilder, decision.AgentID)
	// 0.5 - 0.075*0.1
	assert.InDelta(t, 0.4925, decision.Confidence, 1e-9)
}

func TestRoute_TaskTypeOverrideSkipsClassification(t *testing.T) {
	cls := &fixedClassifier{task: datatypes.TaskCodeGeneration, conf: 0.4}
	r := newTestRouter(t, cls, nil)

	decision := r.Route(context.Background(), Context{Query: "q", TaskType: datatypes.TaskSearch})

	assert.Equal(t, datatypes.AgentScout, decision.AgentID)
	assert.Contains(t, decision.Reasoning, `Task: "search"`)
}

func TestRoute_ReasoningFormat(t *testing.T) {
	cls := &fixedClassifier{task: datatypes.TaskSearch, conf: 0.4}
	r := newTestRouter(t, cls, nil)

	decision := r.Route(context.Background(), Context{Query: "q"})

	want := fmt.Sprintf("Task: %q (conf: 0.40). Agent: %q (score: 0.50).",
		"search", string(decision.AgentID))
	assert.Equal(t, want, decision.Reasoning)
}

func TestRoute_PastSuccessOverrideBeatsProvider(t *testing.T) {
	cls := &fixedClassifier{task: datatypes.TaskCodeGeneration, conf: 0.4}
	provider := staticScores{datatypes.AgentBuilder: 1.0}
	r := newTestRouter(t, cls, provider)

	decision := r.Route(context.Background(), Context{
		Query:       "q",
		PastSuccess: map[datatypes.AgentID]float64{datatypes.AgentSovereign: 1.0},
	})

	assert.Equal(t, datatypes.AgentSovereign, decision.AgentID)
}

func TestRoute_ConfidenceClampedToOne(t *testing.T) {
	cls := &fixedClassifier{task: datatypes.TaskDebugging, conf: 0.4}
	scores := staticScores{datatypes.AgentBuilder: 1.0}
	r := newTestRouter(t, cls, scores)

	// 0.5 + 0.3 + 0.3 = 1.1, clamped.
	decision := r.Route(context.Background(), Context{Query: "q", RequiresCode: true})

	assert.Equal(t, datatypes.AgentBuilder, decision.AgentID)
	assert.InDelta(t, 1.0, decision.Confidence, 1e-9)
}
