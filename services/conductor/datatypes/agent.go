// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Agents and Tasks
// =============================================================================

// AgentID identifies a specialist agent profile. The id set is closed;
// registries reject unknown ids at construction time.
type AgentID string

const (
	// AgentSovereign is the strategic orchestrator (long-context synthesis).
	AgentSovereign AgentID = "sovereign"
	// AgentArchitect is the deep reasoning and teaching agent.
	AgentArchitect AgentID = "architect"
	// AgentBuilder is the code synthesis engine.
	AgentBuilder AgentID = "builder"
	// AgentScout is the real-time web search agent.
	AgentScout AgentID = "scout"
)

// AgentDefinition is a static capability descriptor for one agent profile.
// Definitions are immutable after process start.
type AgentDefinition struct {
	ID            AgentID  `json:"id"`
	Name          string   `json:"name"`
	Model         string   `json:"model"`
	ContextWindow int      `json:"contextWindow"`
	CostPer1KTok  float64  `json:"costPer1KTokens"`
	Capabilities  []string `json:"capabilities"`
	SystemPrompt  string   `json:"systemPrompt"`
	Description   string   `json:"description"`
}

// TaskType is the closed set of task categories the classifier recognizes.
type TaskType string

const (
	TaskCodeGeneration  TaskType = "code-generation"
	TaskExplanation     TaskType = "explanation"
	TaskSearch          TaskType = "search"
	TaskDebugging       TaskType = "debugging"
	TaskQuestCompletion TaskType = "quest-completion"
	TaskKnowledgeRecall TaskType = "knowledge-recall"
	TaskStrategy        TaskType = "strategy"
	TaskAssessment      TaskType = "assessment"
	TaskReadme          TaskType = "readme-generation"
)

// RoutingDecision is the router's output: the chosen agent, a confidence in
// [0,1], a human-readable justification, and an optional fallback. The
// reasoning string is a contract surface: it always names the resolved task
// type, its classification confidence, the winning agent and its score, and
// whether learned data influenced the choice, and is reproducible from the
// same inputs.
type RoutingDecision struct {
	AgentID         AgentID `json:"agentId"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	FallbackAgentID AgentID `json:"fallbackAgentId,omitempty"`
}
