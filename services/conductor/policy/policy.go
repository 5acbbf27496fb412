// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package policy post-processes generated assistant text against the state
// snapshot and the chosen action before it reaches the user.
//
// Detection is deliberately light: substring and keyword tests, not NLU.
// Three redundant patterns are stripped (re-asking for a validated email, a
// known name, or an already-chosen persona), and recommendation responses
// get a mandatory single-line call-to-action appended when one is missing.
//
// Enforce is safe to apply to already-compliant text and is idempotent:
// feeding its own output back in with the same snapshot and action reports
// rewritten=false and leaves the content unchanged.
package policy

import (
	"regexp"
	"strings"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// Rule ids appended to the decision trace by the policy.
const (
	RuleEmailAlreadyKnown   = "RULE_EMAIL_ALREADY_KNOWN"
	RuleNameAlreadyKnown    = "RULE_NAME_ALREADY_KNOWN"
	RulePersonaAlreadyKnown = "RULE_PERSONA_ALREADY_KNOWN"
	RuleResultsFirst        = "RULE_RESULTS_FIRST"
)

// Corrective preambles prepended when a redundant prompt is stripped. The
// wording must not itself trip the detectors, or Enforce stops being
// idempotent.
const (
	emailPreamble   = "Email already verified. Proceeding with your current request now."
	namePreamble    = "Identity already confirmed. Continuing without redundant name prompt."
	personaPreamble = "Persona already set. Continuing with focused execution."
)

// nextStepClose is the mandatory outcome-first closing line for
// recommendation responses.
const nextStepClose = "Next step: execute the top recommendation now and report your result in one line."

var (
	// Lines mentioning the offending field are removed wholesale. `.` does
	// not cross newlines, so each match is at most one line. Each strip
	// covers every phrasing its detector can flag, so a stripped pass
	// cannot flag again.
	emailLine   = regexp.MustCompile(`(?i).*email.*\n?`)
	nameLine    = regexp.MustCompile(`(?i).*(name|what should i call you).*\n?`)
	personaLine = regexp.MustCompile(`(?i).*(personal or business|choose your persona).*\n?`)
)

// Result is the outcome of a policy pass.
type Result struct {
	Content   string                  `json:"content"`
	Rewritten bool                    `json:"rewritten"`
	Trace     datatypes.DecisionTrace `json:"trace"`
}

// looksLikeAskingForEmail is line scoped to mirror the line-wise strip:
// the field token and a trigger word must share a line. Matching across
// the whole text would let the corrective preamble combine with a stray
// trigger word on an unrelated line and re-fire on a second pass.
func looksLikeAskingForEmail(text string) bool {
	for _, line := range strings.Split(strings.ToLower(text), "\n") {
		if strings.Contains(line, "email") &&
			(strings.Contains(line, "enter") || strings.Contains(line, "provide") || strings.Contains(line, "what is your")) {
			return true
		}
	}
	return false
}

func looksLikeAskingForName(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "your name") || strings.Contains(t, "what should i call you")
}

func looksLikeAskingForPersona(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "personal or business") || strings.Contains(t, "choose your persona")
}

// Enforce rewrites generated assistant text to comply with the decision.
//
// Description:
//
//	Scans the content for redundant identity prompts given what the
//	snapshot already knows, strips offending lines with a corrective
//	preamble, and appends the outcome-first closing line to recommendation
//	responses that lack one. Every rewrite appends a rule record to the
//	trace. Total function: no error channel, any input maps to a defined
//	result.
//
// Inputs:
//
//	content - The rendered assistant text.
//	snapshot - The snapshot the decision was made from.
//	action - The action chosen by the decision engine.
//	trace - The trace to augment; the input trace is not mutated.
//
// Outputs:
//
//	Result - Possibly rewritten content, a rewrite flag, and the
//	augmented trace.
//
// Thread Safety: Safe for concurrent use; Enforce touches no shared state.
func Enforce(content string, snapshot datatypes.StateSnapshot, action datatypes.NextBestAction, trace datatypes.DecisionTrace) Result {
	rewritten := false
	rules := make([]datatypes.EvaluatedRule, len(trace.EvaluatedRules), len(trace.EvaluatedRules)+4)
	copy(rules, trace.EvaluatedRules)

	if snapshot.Known.Email.Valid && looksLikeAskingForEmail(content) {
		content = emailPreamble + "\n\n" + strings.TrimSpace(emailLine.ReplaceAllString(content, ""))
		rewritten = true
		rules = append(rules, datatypes.EvaluatedRule{
			ID:     RuleEmailAlreadyKnown,
			Passed: true,
			Reason: "Removed redundant email prompt",
		})
	}

	if snapshot.Known.Name.Value != "" && looksLikeAskingForName(content) {
		content = namePreamble + "\n\n" + strings.TrimSpace(nameLine.ReplaceAllString(content, ""))
		rewritten = true
		rules = append(rules, datatypes.EvaluatedRule{
			ID:     RuleNameAlreadyKnown,
			Passed: true,
			Reason: "Removed redundant name prompt",
		})
	}

	if snapshot.Known.Persona.Value != "" && looksLikeAskingForPersona(content) {
		content = personaPreamble + "\n\n" + strings.TrimSpace(personaLine.ReplaceAllString(content, ""))
		rewritten = true
		rules = append(rules, datatypes.EvaluatedRule{
			ID:     RulePersonaAlreadyKnown,
			Passed: true,
			Reason: "Removed redundant persona prompt",
		})
	}

	// Presence check keeps the close from duplicating on a second pass.
	if action.Type == datatypes.ActionReturnRecommendations &&
		!strings.Contains(strings.ToLower(content), "next step") {
		content = content + "\n\n" + nextStepClose
		rewritten = true
		rules = append(rules, datatypes.EvaluatedRule{
			ID:     RuleResultsFirst,
			Passed: true,
			Reason: "Enforced outcome-first close",
		})
	}

	trace.EvaluatedRules = rules
	return Result{Content: content, Rewritten: rewritten, Trace: trace}
}
