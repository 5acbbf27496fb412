// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package classifier scores free-text input against per-task keyword and
// anchor-pattern sets to produce a task-type guess with a confidence value.
//
// This is a bounded keyword/pattern scorer, not an NLU system. The point is
// cheap, explainable, good-enough matching; the TaskClassifier interface
// exists so a learned classifier can replace the keyword implementation
// without touching the router contract.
package classifier

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// TaskClassifier classifies a query into a task type with a confidence.
//
// Thread Safety: Implementations must be safe for concurrent use.
type TaskClassifier interface {
	// Classify scores the text and returns the best-matching task type.
	//
	// Outputs:
	//   datatypes.TaskType - The winning task type; knowledge-recall when
	//   nothing scores.
	//   float64 - Confidence in [0.4, 1.0] for non-empty input, exactly 0
	//   for empty input. The 0.4 floor is an explicit floor, not a
	//   probability.
	Classify(ctx context.Context, text string) (datatypes.TaskType, float64)
}

// Scoring weights. A keyword hit contributes keywordWeight; an anchor
// pattern match contributes patternWeight. The winning raw score is scaled
// by confidenceScale and floored at confidenceFloor.
const (
	keywordWeight   = 0.1
	patternWeight   = 0.25
	confidenceScale = 3.0
	confidenceFloor = 0.4
)

// taskKeywords lists the per-task keyword sets. Matching is lowercase
// substring, per-hit weighted.
var taskKeywords = map[datatypes.TaskType][]string{
	datatypes.TaskCodeGeneration:  {"write", "create", "build", "implement", "code", "function", "component", "class", "api", "generate"},
	datatypes.TaskExplanation:     {"explain", "why", "how does", "what is", "understand", "teach", "learn", "concept", "difference"},
	datatypes.TaskSearch:          {"find", "latest", "current", "news", "trend", "search", "who invented", "when did", "where is"},
	datatypes.TaskDebugging:       {"fix", "bug", "error", "broken", "debug", "crash", "issue", "problem", "not working", "fails"},
	datatypes.TaskQuestCompletion: {"solve", "submit", "complete", "challenge", "quest", "mission"},
	datatypes.TaskKnowledgeRecall: {"recall", "remember", "from my notes", "in my knowledge", "sources", "what did i"},
	datatypes.TaskStrategy:        {"plan", "strategy", "architecture", "design", "approach", "roadmap", "structure"},
	datatypes.TaskAssessment:      {"test me", "quiz", "assess", "how well", "skill check", "evaluate"},
	datatypes.TaskReadme:          {"readme", "documentation", "generate readme", "create readme", "update readme", "compliance check", "validate readme"},
}

// taskPatterns lists anchor regular expressions per task. A pattern match
// is a stronger signal than a single keyword hit.
var taskPatterns = map[datatypes.TaskType][]*regexp.Regexp{
	datatypes.TaskCodeGeneration: {
		regexp.MustCompile(`(?i)\bwrite (a|an|some|the)?\s*(code|function|component|class|script)\b`),
		regexp.MustCompile(`(?i)\bimplement\b`),
	},
	datatypes.TaskExplanation: {
		regexp.MustCompile(`(?i)\bexplain\b`),
		regexp.MustCompile(`(?i)\bwhat('s| is) the difference\b`),
	},
	datatypes.TaskSearch: {
		regexp.MustCompile(`(?i)\b(latest|current|recent) (news|trends?|version)\b`),
		regexp.MustCompile(`(?i)\bsearch (for|the web)\b`),
	},
	datatypes.TaskDebugging: {
		regexp.MustCompile(`(?i)\bfix (this|my|the)\b`),
		regexp.MustCompile(`(?i)\b(stack ?trace|exception|segfault|panic)\b`),
		regexp.MustCompile(`(?i)\bnot working\b`),
	},
	datatypes.TaskQuestCompletion: {
		regexp.MustCompile(`(?i)\b(complete|finish|solve) (this|the|my) (quest|challenge|mission)\b`),
	},
	datatypes.TaskKnowledgeRecall: {
		regexp.MustCompile(`(?i)\b(from|in) my (notes|knowledge)\b`),
		regexp.MustCompile(`(?i)\bwhat did i\b`),
	},
	datatypes.TaskStrategy: {
		regexp.MustCompile(`(?i)\b(architecture|roadmap)\b`),
		regexp.MustCompile(`(?i)\bdesign (a|an|the)\b`),
	},
	datatypes.TaskAssessment: {
		regexp.MustCompile(`(?i)\b(test|quiz) me\b`),
		regexp.MustCompile(`(?i)\bhow well (do|did) i\b`),
	},
	datatypes.TaskReadme: {
		regexp.MustCompile(`(?i)\breadme\b`),
	},
}

// KeywordClassifier is the default TaskClassifier: keyword hits plus anchor
// pattern matches, highest aggregate wins.
//
// Thread Safety: Safe for concurrent use after construction.
type KeywordClassifier struct {
	keywords map[datatypes.TaskType][]string
	patterns map[datatypes.TaskType][]*regexp.Regexp
}

// NewKeywordClassifier creates the default keyword classifier over the
// shipped task tables.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{keywords: taskKeywords, patterns: taskPatterns}
}

// Classify scores the text against every task type.
//
// Description:
//
//	Lowercases the text once, counts keyword hits and anchor pattern
//	matches per task, and picks the highest aggregate. Ties keep the
//	first-seen winner in a fixed task order so results are reproducible.
//	With no signal at all the guess degrades to knowledge-recall rather
//	than failing.
//
// Thread Safety: Safe for concurrent use.
func (c *KeywordClassifier) Classify(ctx context.Context, text string) (datatypes.TaskType, float64) {
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := otel.Tracer("classifier").Start(ctx, "classifier.KeywordClassifier.Classify",
		trace.WithAttributes(
			attribute.Int("query_length", len(text)),
		),
	)
	defer span.End()

	if strings.TrimSpace(text) == "" {
		span.SetAttributes(attribute.String("task_type", string(datatypes.TaskKnowledgeRecall)))
		return datatypes.TaskKnowledgeRecall, 0
	}

	lower := strings.ToLower(text)
	best := datatypes.TaskKnowledgeRecall
	bestScore := 0.0

	for _, task := range taskOrder {
		score := 0.0
		for _, kw := range c.keywords[task] {
			if strings.Contains(lower, kw) {
				score += keywordWeight
			}
		}
		for _, pat := range c.patterns[task] {
			if pat.MatchString(text) {
				score += patternWeight
			}
		}
		if score > bestScore {
			bestScore = score
			best = task
		}
	}

	confidence := bestScore * confidenceScale
	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	span.SetAttributes(
		attribute.String("task_type", string(best)),
		attribute.Float64("confidence", confidence),
	)
	return best, confidence
}

// taskOrder fixes the evaluation order so score ties resolve the same way
// on every call.
var taskOrder = []datatypes.TaskType{
	datatypes.TaskCodeGeneration,
	datatypes.TaskExplanation,
	datatypes.TaskSearch,
	datatypes.TaskDebugging,
	datatypes.TaskQuestCompletion,
	datatypes.TaskKnowledgeRecall,
	datatypes.TaskStrategy,
	datatypes.TaskAssessment,
	datatypes.TaskReadme,
}

var _ TaskClassifier = (*KeywordClassifier)(nil)
