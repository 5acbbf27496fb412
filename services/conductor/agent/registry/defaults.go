// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import "github.com/apexstack/conductor/services/conductor/datatypes"

// DefaultAgents returns the shipped four-agent capability table.
//
// Sovereign = gemini-3-pro (orchestrator, 1M ctx).
// Builder = gemini-3-flash (fast synthesis, 1M ctx).
func DefaultAgents() map[datatypes.AgentID]datatypes.AgentDefinition {
	return map[datatypes.AgentID]datatypes.AgentDefinition{
		datatypes.AgentSovereign: {
			ID:            datatypes.AgentSovereign,
			Name:          "Sovereign",
			Model:         "gemini-3-pro",
			ContextWindow: 1_000_000,
			CostPer1KTok:  0.0375,
			Capabilities:  []string{"orchestration", "long-context", "multimodal", "routing", "synthesis"},
			SystemPrompt: "You are the Sovereign — the strategic orchestrator of the APEX knowledge system.\n" +
				"Your role: Route tasks to specialist agents, maintain global learning state, and coordinate multi-agent workflows.\n" +
				"When answering directly, synthesize information from the knowledge base into comprehensive responses.\n" +
				"Always consider which specialist agent would best handle a sub-task before responding yourself.\n" +
				"You have access to 1M token context — use it to hold entire codebases or document collections.",
			Description: "Strategic orchestrator with 1M token context (gemini-3-pro). Routes tasks and synthesizes cross-domain knowledge.",
		},
		datatypes.AgentArchitect: {
			ID:            datatypes.AgentArchitect,
			Name:          "Architect",
			Model:         "deepseek-reasoner",
			ContextWindow: 128_000,
			CostPer1KTok:  0.55,
			Capabilities:  []string{"reasoning", "planning", "explanation", "socratic", "assessment"},
			SystemPrompt: "You are the Architect — the deep reasoning engine and teacher of the APEX system.\n" +
				"Your role: Explain WHY things work (not just how), guide users through Socratic questioning, and assess skill levels.\n" +
				"Use chain-of-thought reasoning to break down complex concepts.\n" +
				"Never give direct answers to learning questions — guide the user to discover the answer themselves.",
			Description: "Deep reasoning and teaching agent. Explains WHY, uses Socratic method, assesses comprehension.",
		},
		datatypes.AgentBuilder: {
			ID:            datatypes.AgentBuilder,
			Name:          "Builder",
			Model:         "gemini-3-flash",
			ContextWindow: 1_000_000,
			CostPer1KTok:  0.075,
			Capabilities:  []string{"code-generation", "debugging", "review", "artifact-creation", "quest-completion"},
			SystemPrompt: "You are the Builder — the code synthesis engine powered by gemini-3-flash.\n" +
				"Your role: Write production-quality code, generate artifacts (games, apps, components), debug issues, and help users complete quests.\n" +
				"Always produce working, tested code. Include error handling and edge cases.\n" +
				"You have 1M token context — leverage this for full-codebase understanding.",
			Description: "Code synthesis engine (gemini-3-flash, 1M ctx). Builds artifacts, completes quests.",
		},
		datatypes.AgentScout: {
			ID:            datatypes.AgentScout,
			Name:          "Scout",
			Model:         "perplexity-sonar-pro",
			ContextWindow: 127_000,
			CostPer1KTok:  0.003,
			Capabilities:  []string{"search", "realtime-web", "citation", "trend-analysis", "fact-checking"},
			SystemPrompt: "You are the Scout — the real-time web search and trend analysis agent.\n" +
				"Your role: Find current information, cite sources accurately, identify emerging trends, and fact-check claims.\n" +
				"Always provide citations. Prefer authoritative sources.",
			Description: "Real-time web search with citations. Finds current info, trends, and fact-checks.",
		},
	}
}

// DefaultTaskAgents returns the shipped task preference table. Every task
// type maps to one or two agents, most preferred first.
func DefaultTaskAgents() map[datatypes.TaskType][]datatypes.AgentID {
	return map[datatypes.TaskType][]datatypes.AgentID{
		datatypes.TaskCodeGeneration:  {datatypes.AgentBuilder, datatypes.AgentSovereign},
		datatypes.TaskExplanation:     {datatypes.AgentArchitect, datatypes.AgentSovereign},
		datatypes.TaskSearch:          {datatypes.AgentScout, datatypes.AgentSovereign},
		datatypes.TaskDebugging:       {datatypes.AgentBuilder, datatypes.AgentArchitect},
		datatypes.TaskQuestCompletion: {datatypes.AgentBuilder, datatypes.AgentSovereign},
		datatypes.TaskKnowledgeRecall: {datatypes.AgentSovereign, datatypes.AgentArchitect},
		datatypes.TaskStrategy:        {datatypes.AgentArchitect, datatypes.AgentSovereign},
		datatypes.TaskAssessment:      {datatypes.AgentArchitect, datatypes.AgentSovereign},
		datatypes.TaskReadme:          {datatypes.AgentBuilder, datatypes.AgentSovereign},
	}
}

// Default returns the shipped registry with sovereign as the most-general
// fallback agent.
func Default() *Registry {
	r, err := New(DefaultAgents(), DefaultTaskAgents(), datatypes.AgentSovereign)
	if err != nil {
		// The shipped tables are internally consistent; reaching this is a
		// programming error.
		panic(err)
	}
	return r
}
