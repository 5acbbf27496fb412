// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// =============================================================================
// Interaction Outcomes
// =============================================================================

// InteractionOutcome is the ledger for one routed interaction: who asked,
// which agent answered, how long it took, retries, errors, and any rewards
// earned. Outcomes are created at session start, mutated only through the
// tracker's own methods, and removed from the in-process store on completion
// or abandonment.
type InteractionOutcome struct {
	SessionID  string  `json:"sessionId"`
	UserID     string  `json:"userId"`
	QuestID    string  `json:"questId,omitempty"`
	AgentUsed  AgentID `json:"agentUsed"`

	// PromptHash is a rolling hash of prompt+agent used only as a dedup key
	// downstream, never for cryptographic purposes.
	PromptHash string `json:"promptHash"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitzero"`

	RetryCount    int  `json:"retryCount"`
	XPEarned      int  `json:"xpEarned"`
	GoldEarned    int  `json:"goldEarned"`
	ErrorOccurred bool `json:"errorOccurred"`
	Abandoned     bool `json:"abandoned"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// Retrieved Memories
// =============================================================================

// MemoryType tags which underlying store a retrieved memory came from.
type MemoryType string

const (
	// MemoryKnowledge is a semantic nearest-neighbor knowledge chunk.
	MemoryKnowledge MemoryType = "knowledge"
	// MemoryStrategy is a learned per-task agent success row.
	MemoryStrategy MemoryType = "strategy"
	// MemoryEpisodic is a recent completed session for the same task.
	MemoryEpisodic MemoryType = "episodic"
)

// RelevantMemory is one normalized, rankable unit of retrieved context,
// regardless of which store produced it.
type RelevantMemory struct {
	Type      MemoryType     `json:"type"`
	Content   string         `json:"content"`
	Relevance float64        `json:"relevance"`
	AgentID   AgentID        `json:"agentId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
