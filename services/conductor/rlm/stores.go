// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rlm is the retrieval and learning memory trio: the interaction
// tracker records one routed session's ledger, the learner folds completed
// outcomes into per-(agent, task) success scores, and the retriever blends
// knowledge, strategy, and episodic memories into a ranked context block.
//
// Persistence follows the tiered model: hot state lives in RAM, a warm
// embedded store survives restarts, and the cold external store serves
// cross-process bootstrapping and retrieval. Every external interaction is
// best-effort: any store failure degrades to "no learned data" or "no
// memories", never to a failed call.
package rlm

import (
	"context"
	"time"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// LearningRow is one persisted (prompt, agent, task) success record,
// unique on (PromptHash, AgentID, TaskType).
type LearningRow struct {
	PromptHash   string             `json:"promptHash"`
	AgentID      datatypes.AgentID  `json:"agentId"`
	TaskType     datatypes.TaskType `json:"taskType"`
	SuccessScore float64            `json:"successScore"`
	SampleCount  int                `json:"sampleCount"`
	AvgScore     float64            `json:"avgScore"`
	Tags         []string           `json:"tags,omitempty"`
}

// SessionRow is one completed session read back for episodic retrieval.
// This surface is read-only from the conductor's side.
type SessionRow struct {
	QuestID     string            `json:"questId"`
	AgentUsed   datatypes.AgentID `json:"agentUsed"`
	XPEarned    int               `json:"xpEarned"`
	RetryCount  int               `json:"retryCount"`
	CompletedAt time.Time         `json:"completedAt"`
}

// KnowledgeChunk is one semantic nearest-neighbor match from the knowledge
// base.
type KnowledgeChunk struct {
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	SourceID   string         `json:"sourceId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// LearningStore is the cold store surface for learned success records.
//
// Thread Safety: Implementations must be safe for concurrent use.
type LearningStore interface {
	// UpsertLearning writes or replaces a row keyed by
	// (PromptHash, AgentID, TaskType).
	UpsertLearning(ctx context.Context, row LearningRow) error

	// TopLearnings returns up to limit rows ordered by AvgScore descending.
	TopLearnings(ctx context.Context, limit int) ([]LearningRow, error)

	// LearningsForTask returns up to limit rows for one task type, ordered
	// by AvgScore descending.
	LearningsForTask(ctx context.Context, taskType datatypes.TaskType, limit int) ([]LearningRow, error)
}

// SessionStore reads back recent completed sessions for episodic retrieval.
type SessionStore interface {
	// RecentCompletedSessions returns up to limit completed sessions for
	// the task, newest first. Sessions without a completion time are
	// excluded.
	RecentCompletedSessions(ctx context.Context, taskType datatypes.TaskType, limit int) ([]SessionRow, error)
}

// KnowledgeSearcher performs vector-similarity lookup over knowledge chunks.
type KnowledgeSearcher interface {
	// MatchKnowledgeChunks returns up to count chunks whose similarity to
	// the query embedding is at or above threshold.
	MatchKnowledgeChunks(ctx context.Context, embedding []float32, threshold float64, count int) ([]KnowledgeChunk, error)
}

// WarmStore is the local embedded tier for learner state, used to reseed
// the in-process cache across restarts without the cold store.
type WarmStore interface {
	SaveLearning(ctx context.Context, row LearningRow) error
	LoadLearnings(ctx context.Context, limit int) ([]LearningRow, error)
}
