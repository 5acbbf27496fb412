// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Next Best Action
// =============================================================================

// ActionType enumerates the system behaviors the decision engine can
// recommend.
type ActionType string

const (
	ActionAskEmail              ActionType = "ASK_EMAIL"
	ActionAskName               ActionType = "ASK_NAME"
	ActionAskPhone              ActionType = "ASK_PHONE"
	ActionAskPersona            ActionType = "ASK_PERSONA"
	ActionAskDiscovery          ActionType = "ASK_DISCOVERY"
	ActionAskGoal               ActionType = "ASK_GOAL"
	ActionRunHandshake          ActionType = "RUN_HANDSHAKE"
	ActionReturnRecommendations ActionType = "RETURN_RECOMMENDATIONS"
	ActionAnswerQuery           ActionType = "ANSWER_QUERY"
	ActionShowError             ActionType = "SHOW_ERROR"
)

// Field names an identity field for use inside action constraints.
type Field string

const (
	FieldEmail   Field = "email"
	FieldName    Field = "name"
	FieldPhone   Field = "phone"
	FieldPersona Field = "persona"
	FieldGoal    Field = "goal"
)

// ActionConstraints limits what the next rendered turn may ask of the
// visitor. MustNotAskFor lists fields the caller is forbidden to re-request;
// MaxQuestions caps the number of open questions in the next turn (the
// single-question policy keeps this at 1).
type ActionConstraints struct {
	MustNotAskFor []Field     `json:"mustNotAskFor,omitempty"`
	MaxQuestions  int         `json:"maxQuestions,omitempty"`
}

// Forbids reports whether the constraints disallow asking for the field.
func (c *ActionConstraints) Forbids(f Field) bool {
	if c == nil {
		return false
	}
	for _, name := range c.MustNotAskFor {
		if name == f {
			return true
		}
	}
	return false
}

// NextBestAction is the engine's recommendation for what the system should
// do next: ask for a specific field, answer the query, or return
// recommendations.
type NextBestAction struct {
	Type        ActionType         `json:"type"`
	Priority    int                `json:"priority"`
	Prompt      string             `json:"prompt,omitempty"`
	Constraints *ActionConstraints `json:"constraints,omitempty"`
}

// =============================================================================
// Decision Trace
// =============================================================================

// EvaluatedRule records one rule evaluation inside a decision trace.
type EvaluatedRule struct {
	ID     string `json:"id"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// TraceStateBefore summarizes what was known when the decision was made.
type TraceStateBefore struct {
	Step         OnboardingStep `json:"step"`
	Unlocked     bool           `json:"unlocked"`
	KnownEmail   bool           `json:"knownEmail"`
	KnownName    bool           `json:"knownName"`
	KnownPhone   bool           `json:"knownPhone"`
	KnownPersona bool           `json:"knownPersona"`
	KnownGoal    bool           `json:"knownGoal"`
}

// TraceStateAfter summarizes the state implied by the chosen action.
type TraceStateAfter struct {
	NextStep   OnboardingStep `json:"nextStep"`
	Transition string         `json:"transition,omitempty"`
}

// DecisionTrace is the append-only audit record attached to every decision.
// It exists purely for explainability and testing; nothing downstream keys
// behavior off it other than the response policy appending its own rule
// records.
type DecisionTrace struct {
	RequestID      string           `json:"requestId"`
	RuleVersion    string           `json:"ruleVersion"`
	EvaluatedRules []EvaluatedRule  `json:"evaluatedRules"`
	BlockedBy      string           `json:"blockedBy,omitempty"`
	Confidence     float64          `json:"confidence"`
	StateBefore    TraceStateBefore `json:"stateBefore"`
	StateAfter     TraceStateAfter  `json:"stateAfter"`
}
