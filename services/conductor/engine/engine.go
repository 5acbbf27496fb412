// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the decision engine: a total, deterministic
// function from a state snapshot to a next-best action plus an auditable
// decision trace.
//
// The engine performs no I/O and holds no state. Rules are evaluated in a
// fixed priority order and short-circuit on the first unmet requirement:
//
//  1. Unlocked users asking a query get recommendations immediately and are
//     never re-interrogated for identity fields.
//  2. Otherwise the engine requires, in order: validated email, name, phone
//     (only while in the phone step), persona (only during handshake or
//     discovery), and goal (only during validation).
//  3. With everything satisfied it answers the query, or returns
//     recommendations for unlocked users.
//
// Confidence is a fixed constant per branch (0.95 for the unlocked fast
// path, 0.9 otherwise). This is an explicit design simplification, not a
// model.
package engine

import (
	"fmt"
	"strings"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// RuleVersion identifies the rule set recorded in every trace.
const RuleVersion = "orchestration-rules@1.0.0"

// Stable rule ids recorded in decision traces.
const (
	RuleNoRedundantQuestions     = "RULE_NO_REDUNDANT_QUESTIONS"
	RuleUnlockedRecommendResults = "RULE_UNLOCKED_RECOMMEND_RESULTS_FIRST"
	RuleRequireEmailFirst        = "RULE_REQUIRE_EMAIL_FIRST"
	RuleRequireName              = "RULE_REQUIRE_NAME"
	RuleRequirePhoneWhenInStep   = "RULE_REQUIRE_PHONE_WHEN_IN_PHONE_STEP"
	RuleRequirePersona           = "RULE_REQUIRE_PERSONA"
	RuleRequireGoal              = "RULE_REQUIRE_GOAL"
	RuleAnswerQuery              = "RULE_ANSWER_QUERY"
)

// Branch confidences. Fixed by design; see the package comment.
const (
	confidenceUnlockedFastPath = 0.95
	confidenceDefault          = 0.9
)

const singleQuestionLimit = 1

// hasText reports whether a field value carries non-whitespace content.
func hasText(value string) bool {
	return strings.TrimSpace(value) != ""
}

// nextStepFromAction maps a chosen action type to the onboarding step it
// implies. Actions that do not imply a step change return the current step
// unchanged; RETURN_RECOMMENDATIONS and ANSWER_QUERY unlock only out of the
// processing step.
func nextStepFromAction(action datatypes.ActionType, current datatypes.OnboardingStep) datatypes.OnboardingStep {
	switch action {
	case datatypes.ActionAskEmail:
		return datatypes.StepEmailGuard
	case datatypes.ActionAskName:
		return datatypes.StepOnboardingName
	case datatypes.ActionAskPhone:
		return datatypes.StepOnboardingPhone
	case datatypes.ActionAskPersona:
		return datatypes.StepHandshake
	case datatypes.ActionAskDiscovery:
		return datatypes.StepDynamicDiscovery
	case datatypes.ActionAskGoal:
		return datatypes.StepValidation
	case datatypes.ActionRunHandshake:
		return datatypes.StepProcessing
	case datatypes.ActionReturnRecommendations, datatypes.ActionAnswerQuery:
		if current == datatypes.StepProcessing {
			return datatypes.StepUnlocked
		}
		return current
	default:
		return current
	}
}

// Decide computes the next-best action for a snapshot.
//
// Description:
//
//	Total and deterministic: every snapshot, including malformed or partial
//	ones, maps to a defined action and trace. Missing optional fields are
//	treated as "not known". No I/O, no error channel.
//
// Inputs:
//
//	snapshot - The immutable per-call state snapshot.
//
// Outputs:
//
//	datatypes.NextBestAction - The recommended next system behavior.
//	datatypes.DecisionTrace - Audit record of the rules evaluated.
//
// Thread Safety: Safe for concurrent use; Decide touches no shared state.
func Decide(snapshot datatypes.StateSnapshot) (datatypes.NextBestAction, datatypes.DecisionTrace) {
	knownEmail := snapshot.Known.Email.Valid
	knownName := hasText(snapshot.Known.Name.Value)
	knownPhone := hasText(snapshot.Known.Phone.Value)
	knownPersona := snapshot.Known.Persona.Value != ""
	knownGoal := hasText(snapshot.Known.Goal.Value)

	rules := []datatypes.EvaluatedRule{{
		ID:     RuleNoRedundantQuestions,
		Passed: true,
		Reason: "Single-question policy active",
	}}

	before := datatypes.TraceStateBefore{
		Step:         snapshot.CurrentStep,
		Unlocked:     snapshot.Unlocked,
		KnownEmail:   knownEmail,
		KnownName:    knownName,
		KnownPhone:   knownPhone,
		KnownPersona: knownPersona,
		KnownGoal:    knownGoal,
	}

	// Unlocked fast path: recommendations first, no re-identification.
	if snapshot.Unlocked && snapshot.LastIntent == datatypes.IntentQuery {
		rules = append(rules, datatypes.EvaluatedRule{
			ID:     RuleUnlockedRecommendResults,
			Passed: true,
			Reason: "Unlocked user receives outcomes first",
		})
		action := datatypes.NextBestAction{
			Type:     datatypes.ActionReturnRecommendations,
			Priority: 1,
			Constraints: &datatypes.ActionConstraints{
				MustNotAskFor: []datatypes.Field{datatypes.FieldEmail, datatypes.FieldName, datatypes.FieldPhone},
				MaxQuestions:  singleQuestionLimit,
			},
		}
		return action, buildTrace(snapshot, rules, confidenceUnlockedFastPath, before, action.Type)
	}

	var action datatypes.NextBestAction
	switch {
	case !knownEmail:
		rules = append(rules, datatypes.EvaluatedRule{ID: RuleRequireEmailFirst, Passed: true, Reason: "Email missing"})
		action = datatypes.NextBestAction{
			Type:        datatypes.ActionAskEmail,
			Priority:    1,
			Constraints: &datatypes.ActionConstraints{MaxQuestions: singleQuestionLimit},
		}

	case !knownName:
		rules = append(rules, datatypes.EvaluatedRule{ID: RuleRequireName, Passed: true, Reason: "Name missing"})
		action = datatypes.NextBestAction{
			Type:     datatypes.ActionAskName,
			Priority: 1,
			Constraints: &datatypes.ActionConstraints{
				MustNotAskFor: []datatypes.Field{datatypes.FieldEmail},
				MaxQuestions:  singleQuestionLimit,
			},
		}

	case !knownPhone && snapshot.CurrentStep == datatypes.StepOnboardingPhone:
		rules = append(rules, datatypes.EvaluatedRule{ID: RuleRequirePhoneWhenInStep, Passed: true, Reason: "Phone step active"})
		action = datatypes.NextBestAction{
			Type:     datatypes.ActionAskPhone,
			Priority: 1,
			Constraints: &datatypes.ActionConstraints{
				MustNotAskFor: []datatypes.Field{datatypes.FieldEmail, datatypes.FieldName},
				MaxQuestions:  singleQuestionLimit,
			},
		}

	case !knownPersona && (snapshot.CurrentStep == datatypes.StepHandshake || snapshot.CurrentStep == datatypes.StepDynamicDiscovery):
		rules = append(rules, datatypes.EvaluatedRule{ID: RuleRequirePersona, Passed: true, Reason: "Persona missing in discovery stage"})
		action = datatypes.NextBestAction{
			Type:     datatypes.ActionAskPersona,
			Priority: 1,
			Constraints: &datatypes.ActionConstraints{
				MustNotAskFor: []datatypes.Field{datatypes.FieldEmail, datatypes.FieldName, datatypes.FieldPhone},
				MaxQuestions:  singleQuestionLimit,
			},
		}

	case !knownGoal && snapshot.CurrentStep == datatypes.StepValidation:
		rules = append(rules, datatypes.EvaluatedRule{ID: RuleRequireGoal, Passed: true, Reason: "Goal missing in validation stage"})
		action = datatypes.NextBestAction{
			Type:     datatypes.ActionAskGoal,
			Priority: 1,
			Constraints: &datatypes.ActionConstraints{
				MustNotAskFor: []datatypes.Field{datatypes.FieldEmail, datatypes.FieldName, datatypes.FieldPhone, datatypes.FieldPersona},
				MaxQuestions:  singleQuestionLimit,
			},
		}

	default:
		rules = append(rules, datatypes.EvaluatedRule{ID: RuleAnswerQuery, Passed: true, Reason: "Sufficient context to answer directly"})
		actionType := datatypes.ActionAnswerQuery
		if snapshot.Unlocked {
			actionType = datatypes.ActionReturnRecommendations
		}
		// Known fields are re-listed here so the caller cannot ask again
		// even when it skips the response policy.
		mustNot := []datatypes.Field{datatypes.FieldEmail}
		if knownName {
			mustNot = append(mustNot, datatypes.FieldName)
		}
		if knownPersona {
			mustNot = append(mustNot, datatypes.FieldPersona)
		}
		action = datatypes.NextBestAction{
			Type:     actionType,
			Priority: 2,
			Constraints: &datatypes.ActionConstraints{
				MustNotAskFor: mustNot,
				MaxQuestions:  singleQuestionLimit,
			},
		}
	}

	return action, buildTrace(snapshot, rules, confidenceDefault, before, action.Type)
}

// buildTrace assembles the trace for a chosen action.
func buildTrace(
	snapshot datatypes.StateSnapshot,
	rules []datatypes.EvaluatedRule,
	confidence float64,
	before datatypes.TraceStateBefore,
	action datatypes.ActionType,
) datatypes.DecisionTrace {
	nextStep := nextStepFromAction(action, snapshot.CurrentStep)
	return datatypes.DecisionTrace{
		RequestID:      snapshot.RequestID,
		RuleVersion:    RuleVersion,
		EvaluatedRules: rules,
		Confidence:     confidence,
		StateBefore:    before,
		StateAfter: datatypes.TraceStateAfter{
			NextStep:   nextStep,
			Transition: fmt.Sprintf("%s -> %s", snapshot.CurrentStep, nextStep),
		},
	}
}
