// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry holds the static capability data the router works from:
// agent definitions (identity, context window, per-token cost, capabilities,
// prompt template) and the ordered task-to-agent preference table.
//
// A Registry is immutable after construction. It is injected explicitly
// into the router and handlers rather than living as package-level state, so
// tests can swap in a reduced table and tuning does not require recompiling
// callers.
package registry

import (
	"fmt"
	"sort"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// Registry is an immutable lookup of agent definitions and per-task agent
// preferences.
//
// Thread Safety: Safe for concurrent use after construction; nothing is
// mutated after New returns.
type Registry struct {
	agents      map[datatypes.AgentID]datatypes.AgentDefinition
	taskAgents  map[datatypes.TaskType][]datatypes.AgentID
	mostGeneral datatypes.AgentID
}

// New builds a registry from a definition set and a task preference table.
//
// Description:
//
//	Validates that every task preference references a defined agent and
//	that the most-general fallback agent exists. The input maps are copied;
//	callers may not mutate the registry afterwards through them.
//
// Inputs:
//
//	defs - Agent definitions keyed by id. Must be non-empty.
//	taskAgents - Ordered agent preferences per task type (most preferred
//	first). Every task type should map to one or two agents.
//	mostGeneral - The defensively chosen fallback agent id.
//
// Outputs:
//
//	*Registry - The immutable registry.
//	error - Non-nil if the table is inconsistent.
func New(
	defs map[datatypes.AgentID]datatypes.AgentDefinition,
	taskAgents map[datatypes.TaskType][]datatypes.AgentID,
	mostGeneral datatypes.AgentID,
) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("registry requires at least one agent definition")
	}
	if _, ok := defs[mostGeneral]; !ok {
		return nil, fmt.Errorf("most-general agent %q is not defined", mostGeneral)
	}

	agents := make(map[datatypes.AgentID]datatypes.AgentDefinition, len(defs))
	for id, def := range defs {
		if id != def.ID {
			return nil, fmt.Errorf("agent key %q does not match definition id %q", id, def.ID)
		}
		agents[id] = def
	}

	tasks := make(map[datatypes.TaskType][]datatypes.AgentID, len(taskAgents))
	for task, ids := range taskAgents {
		if len(ids) == 0 {
			return nil, fmt.Errorf("task %q maps to no agents", task)
		}
		for _, id := range ids {
			if _, ok := agents[id]; !ok {
				return nil, fmt.Errorf("task %q references undefined agent %q", task, id)
			}
		}
		tasks[task] = append([]datatypes.AgentID(nil), ids...)
	}

	return &Registry{agents: agents, taskAgents: tasks, mostGeneral: mostGeneral}, nil
}

// Get returns the definition for an agent id.
func (r *Registry) Get(id datatypes.AgentID) (datatypes.AgentDefinition, bool) {
	def, ok := r.agents[id]
	return def, ok
}

// AgentsForTask returns the ordered preferred agents for a task type. If the
// task type is unknown, it falls back to the most-general agent.
func (r *Registry) AgentsForTask(task datatypes.TaskType) []datatypes.AgentID {
	ids, ok := r.taskAgents[task]
	if !ok {
		return []datatypes.AgentID{r.mostGeneral}
	}
	return append([]datatypes.AgentID(nil), ids...)
}

// MostGeneral returns the defensively chosen fallback agent id.
func (r *Registry) MostGeneral() datatypes.AgentID {
	return r.mostGeneral
}

// AgentIDs returns all defined agent ids in stable order.
func (r *Registry) AgentIDs() []datatypes.AgentID {
	ids := make([]datatypes.AgentID, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SystemPrompt renders the system prompt template for an agent, appending
// an optional context block.
//
// Inputs:
//
//	id - The agent id. Unknown ids fall back to the most-general agent.
//	extraContext - Optional retrieved context; appended under a "Context:"
//	header when non-empty.
//
// Outputs:
//
//	string - The rendered system prompt.
func (r *Registry) SystemPrompt(id datatypes.AgentID, extraContext string) string {
	def, ok := r.agents[id]
	if !ok {
		def = r.agents[r.mostGeneral]
	}
	prompt := def.SystemPrompt
	if extraContext != "" {
		prompt += "\n\nContext:\n" + extraContext
	}
	return prompt
}
