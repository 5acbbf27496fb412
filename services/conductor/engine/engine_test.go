// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

func snapshotWith(mutate func(*datatypes.StateSnapshot)) datatypes.StateSnapshot {
	s := datatypes.StateSnapshot{
		RequestID:   "req-1",
		Message:     "hello",
		CurrentStep: datatypes.StepBoot,
		LastIntent:  datatypes.IntentQuery,
	}
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func known(value string) datatypes.KnownField[string] {
	return datatypes.KnownField[string]{Value: value, Valid: true, Source: datatypes.SourceRequest}
}

func TestDecide_PriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		snapshot   datatypes.StateSnapshot
		wantAction datatypes.ActionType
		wantRule   string
	}{
		{
			name:       "missing email asks email first",
			snapshot:   snapshotWith(nil),
			wantAction: datatypes.ActionAskEmail,
			wantRule:   RuleRequireEmailFirst,
		},
		{
			name: "email known but name missing asks name",
			snapshot: snapshotWith(func(s *datatypes.StateSnapshot) {
				s.Known.Email = known("a@b.io")
			}),
			wantAction: datatypes.ActionAskName,
			wantRule:   RuleRequireName,
		},
		{
			name: "phone asked only inside phone step",
			snapshot: snapshotWith(func(s *datatypes.StateSnapshot) {
				s.Known.Email = known("a@b.io")
				s.Known.Name = known("Dana")
				s.CurrentStep = datatypes.StepOnboardingPhone
			}),
			wantAction: datatypes.ActionAskPhone,
			wantRule:   RuleRequirePhoneWhenInStep,
		},
		{
			name: "persona asked in handshake step",
			snapshot: snapshotWith(func(s *datatypes.StateSnapshot) {
				s.Known.Email = known("a@b.io")
				s.Known.Name = known("Dana")
				s.CurrentStep = datatypes.StepHandshake
			}),
			wantAction: datatypes.ActionAskPersona,
			wantRule:   RuleRequirePersona,
		},
		{
			name: "persona asked in dynamic discovery step",
			snapshot: snapshotWith(func(s *datatypes.StateSnapshot) {
				s.Known.Email = known("a@b.io")
				s.Known.Name = known("Dana")
				s.CurrentStep = datatypes.StepDynamicDiscovery
			}),
			wantAction: datatypes.ActionAskPersona,
			wantRule:   RuleRequirePersona,
		},
		{
			name: "goal asked in validation step",
			snapshot: snapshotWith(func(s *datatypes.StateSnapshot) {
				s.Known.Email = known("a@b.io")
				s.Known.Name = known("Dana")
				s.Known.Persona = datatypes.KnownField[datatypes.Persona]{Value: datatypes.PersonaPersonal}
				s.CurrentStep = datatypes.StepValidation
			}),
			wantAction: datatypes.ActionAskGoal,
			wantRule:   RuleRequireGoal,
		},
		{
			name: "sufficient context answers directly",
			snapshot: snapshotWith(func(s *datatypes.StateSnapshot) {
				s.Known.Email = known("a@b.io")
				s.Known.Name = known("Dana")
				s.CurrentStep = datatypes.StepProcessing
			}),
			wantAction: datatypes.ActionAnswerQuery,
			wantRule:   RuleAnswerQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, trace := Decide(tt.snapshot)
			assert.Equal(t, tt.wantAction, action.Type)

			ids := make([]string, 0, len(trace.EvaluatedRules))
			for _, rule := range trace.EvaluatedRules {
				ids = append(ids, rule.ID)
			}
			assert.Contains(t, ids, tt.wantRule)
			assert.Contains(t, ids, RuleNoRedundantQuestions)
			assert.Equal(t, RuleVersion, trace.RuleVersion)
		})
	}
}

func TestDecide_UnlockedFastPath(t *testing.T) {
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.Unlocked = true
		s.LastIntent = datatypes.IntentQuery
		s.CurrentStep = datatypes.StepUnlocked
	})

	action, trace := Decide(snapshot)

	assert.Equal(t, datatypes.ActionReturnRecommendations, action.Type)
	assert.InDelta(t, 0.95, trace.Confidence, 1e-9)

	require.NotNil(t, action.Constraints)
	assert.True(t, action.Constraints.Forbids(datatypes.FieldEmail))
	assert.True(t, action.Constraints.Forbids(datatypes.FieldName))
	assert.True(t, action.Constraints.Forbids(datatypes.FieldPhone))
	assert.Equal(t, 1, action.Constraints.MaxQuestions)
}

func TestDecide_UnlockedNonQueryFallsThrough(t *testing.T) {
	// Unlocked alone is not enough; the fast path needs a query intent.
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.Unlocked = true
		s.LastIntent = datatypes.IntentProvideField
	})

	action, _ := Decide(snapshot)
	assert.Equal(t, datatypes.ActionAskEmail, action.Type)
}

func TestDecide_UnlockedDefaultBranchRecommends(t *testing.T) {
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.Unlocked = true
		s.LastIntent = datatypes.IntentHelp
		s.Known.Email = known("a@b.io")
		s.Known.Name = known("Dana")
		s.CurrentStep = datatypes.StepUnlocked
	})

	action, trace := Decide(snapshot)
	assert.Equal(t, datatypes.ActionReturnRecommendations, action.Type)
	assert.InDelta(t, 0.9, trace.Confidence, 1e-9)
}

func TestDecide_WhitespaceFieldsCountAsMissing(t *testing.T) {
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.Known.Email = known("a@b.io")
		s.Known.Name = known("   ")
	})

	action, _ := Decide(snapshot)
	assert.Equal(t, datatypes.ActionAskName, action.Type)
}

func TestDecide_UnvalidatedEmailCountsAsMissing(t *testing.T) {
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.Known.Email = datatypes.KnownField[string]{Value: "a@b.io", Valid: false}
	})

	action, _ := Decide(snapshot)
	assert.Equal(t, datatypes.ActionAskEmail, action.Type)
}

func TestDecide_TraceTransition(t *testing.T) {
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.CurrentStep = datatypes.StepBoot
	})

	_, trace := Decide(snapshot)

	assert.Equal(t, datatypes.StepEmailGuard, trace.StateAfter.NextStep)
	assert.Equal(t, "boot -> email_guard", trace.StateAfter.Transition)
	assert.Equal(t, datatypes.StepBoot, trace.StateBefore.Step)
}

func TestDecide_ProcessingUnlocksOnAnswer(t *testing.T) {
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.Known.Email = known("a@b.io")
		s.Known.Name = known("Dana")
		s.CurrentStep = datatypes.StepProcessing
	})

	_, trace := Decide(snapshot)
	assert.Equal(t, datatypes.StepUnlocked, trace.StateAfter.NextStep)
	assert.Equal(t, "processing -> unlocked", trace.StateAfter.Transition)
}

func TestDecide_Deterministic(t *testing.T) {
	snapshot := snapshotWith(func(s *datatypes.StateSnapshot) {
		s.Known.Email = known("a@b.io")
	})

	a1, t1 := Decide(snapshot)
	a2, t2 := Decide(snapshot)

	assert.Equal(t, a1, a2)
	assert.Equal(t, t1, t2)
}

func TestDecide_EmptySnapshotIsTotal(t *testing.T) {
	action, trace := Decide(datatypes.StateSnapshot{})

	assert.Equal(t, datatypes.ActionAskEmail, action.Type)
	require.NotEmpty(t, trace.EvaluatedRules)
	assert.Equal(t, RuleVersion, trace.RuleVersion)
}
