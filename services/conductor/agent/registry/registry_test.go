// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

func TestNew_Validation(t *testing.T) {
	defs := DefaultAgents()

	tests := []struct {
		name        string
		defs        map[datatypes.AgentID]datatypes.AgentDefinition
		tasks       map[datatypes.TaskType][]datatypes.AgentID
		mostGeneral datatypes.AgentID
		wantErr     string
	}{
		{
			name:        "empty definitions",
			defs:        nil,
			tasks:       nil,
			mostGeneral: datatypes.AgentSovereign,
			wantErr:     "at least one agent",
		},
		{
			name:        "undefined most general",
			defs:        defs,
			tasks:       DefaultTaskAgents(),
			mostGeneral: "nobody",
			wantErr:     "not defined",
		},
		{
			name: "task references undefined agent",
			defs: defs,
			tasks: map[datatypes.TaskType][]datatypes.AgentID{
				datatypes.TaskSearch: {"ghost"},
			},
			mostGeneral: datatypes.AgentSovereign,
			wantErr:     "undefined agent",
		},
		{
			name: "task with no agents",
			defs: defs,
			tasks: map[datatypes.TaskType][]datatypes.AgentID{
				datatypes.TaskSearch: {},
			},
			mostGeneral: datatypes.AgentSovereign,
			wantErr:     "no agents",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs, tt.tasks, tt.mostGeneral)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault_ShippedTables(t *testing.T) {
	r := Default()

	assert.Equal(t, datatypes.AgentSovereign, r.MostGeneral())
	assert.Equal(t, []datatypes.AgentID{
		datatypes.AgentArchitect,
		datatypes.AgentBuilder,
		datatypes.AgentScout,
		datatypes.AgentSovereign,
	}, r.AgentIDs())

	builder, ok := r.Get(datatypes.AgentBuilder)
	require.True(t, ok)
	assert.Equal(t, "gemini-3-flash", builder.Model)
	assert.Equal(t, 1_000_000, builder.ContextWindow)
	assert.InDelta(t, 0.075, builder.CostPer1KTok, 1e-9)

	scout, ok := r.Get(datatypes.AgentScout)
	require.True(t, ok)
	assert.Equal(t, 127_000, scout.ContextWindow)
	assert.InDelta(t, 0.003, scout.CostPer1KTok, 1e-9)
}

func TestAgentsForTask(t *testing.T) {
	r := Default()

	assert.Equal(t, []datatypes.AgentID{datatypes.AgentBuilder, datatypes.AgentSovereign},
		r.AgentsForTask(datatypes.TaskCodeGeneration))
	assert.Equal(t, []datatypes.AgentID{datatypes.AgentScout, datatypes.AgentSovereign},
		r.AgentsForTask(datatypes.TaskSearch))

	// Unknown task types fall back to the most-general agent.
	assert.Equal(t, []datatypes.AgentID{datatypes.AgentSovereign},
		r.AgentsForTask("made-up-task"))
}

func TestAgentsForTask_CopyIsIsolated(t *testing.T) {
	r := Default()

	first := r.AgentsForTask(datatypes.TaskSearch)
	first[0] = "mutated"

	second := r.AgentsForTask(datatypes.TaskSearch)
	assert.Equal(t, datatypes.AgentScout, second[0])
}

func TestSystemPrompt(t *testing.T) {
	r := Default()

	plain := r.SystemPrompt(datatypes.AgentScout, "")
	assert.True(t, strings.HasPrefix(plain, "You are the Scout"))
	assert.NotContains(t, plain, "Context:")

	withCtx := r.SystemPrompt(datatypes.AgentScout, "=== RETRIEVED CONTEXT ===")
	assert.Contains(t, withCtx, "\n\nContext:\n=== RETRIEVED CONTEXT ===")

	// Unknown ids render the most-general agent's prompt.
	fallback := r.SystemPrompt("ghost", "")
	assert.True(t, strings.HasPrefix(fallback, "You are the Sovereign"))
}
