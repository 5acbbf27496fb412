// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routing chooses which specialist agent should answer a query.
//
// The router blends three inputs: the task classifier's guess (unless the
// caller supplies an explicit task type), the capability registry's static
// task preference table, and learned per-(agent, task) success scores from
// the learner. Candidates start from a fixed base score and collect bonuses
// and penalties; the top entry wins and the runner-up becomes the fallback.
//
// Routing never fails: absence of a strong match degrades to the
// most-general agent rather than erroring the call.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexstack/conductor/services/conductor/agent/classifier"
	"github.com/apexstack/conductor/services/conductor/agent/registry"
	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// Scoring constants. These are policy, not tunables learned from data; the
// learned component enters only through pastSuccess * learnedWeight.
const (
	baseScore          = 0.5
	learnedWeight      = 0.3
	contextOverflowPen = 0.5
	realtimeBonus      = 0.3
	reasoningBonus     = 0.2
	codeBonus          = 0.3
	costPenaltyWeight  = 0.1
	costPenaltyMinConf = 0.7
)

// ScoreProvider supplies learned per-task agent success scores.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ScoreProvider interface {
	// AgentScores returns whichever subset of known agents has learned
	// data for the task type. Missing agents simply have no entry.
	AgentScores(taskType datatypes.TaskType) map[datatypes.AgentID]float64
}

// Context carries the per-query routing inputs.
type Context struct {
	// Query is the raw user query; classified unless TaskType is set.
	Query string `json:"query"`

	// TaskType overrides classification when non-empty.
	TaskType datatypes.TaskType `json:"taskType,omitempty"`

	// ContextLength is the conversation's token length; agents whose
	// context window it exceeds take a hard mismatch penalty.
	ContextLength int `json:"contextLength,omitempty"`

	UserSkillLevel    int  `json:"userSkillLevel,omitempty"`
	RequiresRealtime  bool `json:"requiresRealtime,omitempty"`
	RequiresReasoning bool `json:"requiresReasoning,omitempty"`
	RequiresCode      bool `json:"requiresCode,omitempty"`

	// PastSuccess overrides the router's score provider when non-nil,
	// mainly for tests and replay.
	PastSuccess map[datatypes.AgentID]float64 `json:"pastSuccessData,omitempty"`
}

// Router ranks candidate agents for a query.
//
// Thread Safety: Safe for concurrent use after construction.
type Router struct {
	registry   *registry.Registry
	classifier classifier.TaskClassifier
	scores     ScoreProvider
	logger     *slog.Logger
}

// New creates a router.
//
// Inputs:
//
//	reg - The capability registry. Must not be nil.
//	cls - The task classifier. Must not be nil.
//	scores - Learned score provider. May be nil; routing then uses static
//	capability data only.
//	logger - Logger for decision debug output. If nil, uses slog.Default.
func New(reg *registry.Registry, cls classifier.TaskClassifier, scores ScoreProvider, logger *slog.Logger) (*Router, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry must not be nil")
	}
	if cls == nil {
		return nil, fmt.Errorf("classifier must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{registry: reg, classifier: cls, scores: scores, logger: logger}, nil
}

// scoredAgent pairs a candidate with its computed score.
type scoredAgent struct {
	id    datatypes.AgentID
	score float64
}

// Route ranks the preferred agents for the query and returns a decision.
//
// Description:
//
//	Classifies the query (or takes the caller's task type override), looks
//	up the ordered candidates for the task, scores each candidate, and
//	sorts descending. The top entry is the decision; the second, when
//	present, becomes the fallback. Never returns an error: an empty
//	candidate list cannot occur with a validated registry, but the code
//	still degrades to the most-general agent at base score.
//
// Outputs:
//
//	datatypes.RoutingDecision - The ranked choice with its reasoning
//	string. The reasoning always names the resolved task type, the
//	classification confidence, the winning agent and score, and whether
//	learned data influenced the choice.
//
// Thread Safety: Safe for concurrent use.
func (r *Router) Route(ctx context.Context, rc Context) datatypes.RoutingDecision {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := otel.Tracer("routing").Start(ctx, "routing.Router.Route",
		trace.WithAttributes(
			attribute.Int("query_length", len(rc.Query)),
		),
	)
	defer span.End()

	taskType, classConf := r.classifier.Classify(ctx, rc.Query)
	if rc.TaskType != "" {
		taskType = rc.TaskType
	}

	pastSuccess := rc.PastSuccess
	if pastSuccess == nil && r.scores != nil {
		pastSuccess = r.scores.AgentScores(taskType)
	}

	candidates := r.registry.AgentsForTask(taskType)
	scored := make([]scoredAgent, 0, len(candidates))
	for _, id := range candidates {
		scored = append(scored, scoredAgent{id: id, score: r.scoreAgent(id, rc, classConf, pastSuccess)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	best := scoredAgent{id: r.registry.MostGeneral(), score: baseScore}
	if len(scored) > 0 {
		best = scored[0]
	}

	confidence := best.score
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0 {
		confidence = 0
	}

	learned := len(pastSuccess) > 0
	decision := datatypes.RoutingDecision{
		AgentID:    best.id,
		Confidence: confidence,
		Reasoning:  buildReasoning(taskType, classConf, best, learned),
	}
	if len(scored) > 1 {
		decision.FallbackAgentID = scored[1].id
	}

	routingSelections.WithLabelValues(string(best.id), string(taskType)).Inc()
	routingConfidence.Observe(confidence)
	routingLearnedInfluence.WithLabelValues(fmt.Sprintf("%t", learned)).Inc()

	span.SetAttributes(
		attribute.String("task_type", string(taskType)),
		attribute.String("agent", string(best.id)),
		attribute.Float64("score", best.score),
		attribute.Bool("learned_influence", learned),
	)
	r.logger.Debug("routed query",
		slog.String("task_type", string(taskType)),
		slog.Float64("class_confidence", classConf),
		slog.String("agent", string(best.id)),
		slog.Float64("score", best.score),
		slog.Bool("learned", learned),
	)

	return decision
}

// scoreAgent computes one candidate's score.
func (r *Router) scoreAgent(
	id datatypes.AgentID,
	rc Context,
	classConf float64,
	pastSuccess map[datatypes.AgentID]float64,
) float64 {
	score := baseScore

	if past, ok := pastSuccess[id]; ok {
		score += past * learnedWeight
	}

	def, ok := r.registry.Get(id)
	if !ok {
		return score
	}

	// Hard capability mismatch, not a soft preference.
	if rc.ContextLength > 0 && rc.ContextLength > def.ContextWindow {
		score -= contextOverflowPen
	}

	if rc.RequiresRealtime && id == datatypes.AgentScout {
		score += realtimeBonus
	}
	if rc.RequiresReasoning && id == datatypes.AgentArchitect {
		score += reasoningBonus
	}
	if rc.RequiresCode && id == datatypes.AgentBuilder {
		score += codeBonus
	}

	// Once the task is unambiguous, prefer the cheaper agent.
	if classConf > costPenaltyMinConf {
		score -= def.CostPer1KTok * costPenaltyWeight
	}

	return score
}

// buildReasoning renders the decision justification. The format is a
// contract surface asserted in tests; keep it reproducible from the inputs.
func buildReasoning(taskType datatypes.TaskType, classConf float64, best scoredAgent, learned bool) string {
	reasoning := fmt.Sprintf("Task: %q (conf: %.2f). Agent: %q (score: %.2f).",
		string(taskType), classConf, string(best.id), best.score)
	if learned {
		reasoning += " RLM-informed."
	}
	return reasoning
}
