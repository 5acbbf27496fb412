// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rlm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// =============================================================================
// Retriever
// =============================================================================

const (
	// similarityThreshold is the minimum similarity for a knowledge chunk
	// to count as relevant.
	similarityThreshold = 0.7

	// Slice proportions of the caller's limit.
	knowledgeShare = 0.6
	strategyShare  = 0.3
	episodicShare  = 0.1

	// episodicRelevance is the flat relevance assigned to episodic
	// memories, which carry no similarity signal of their own.
	episodicRelevance = 0.5

	defaultRetrieveLimit = 5
)

// Retriever blends three memory kinds into one ranked context block.
//
// Description:
//
//	Retrieve fetches semantic knowledge chunks, learned strategy rows, and
//	recent episodic sessions in parallel, proportioned roughly 60/30/10 of
//	the caller's limit. Each slice is independent and best-effort: a slice
//	that errors is logged, counted, and omitted, never failing the whole
//	call. Results merge, sort descending by relevance, and truncate to the
//	limit.
//
// Thread Safety: Safe for concurrent use.
type Retriever struct {
	knowledge KnowledgeSearcher
	learnings LearningStore
	sessions  SessionStore
	logger    *slog.Logger
}

// NewRetriever creates a retriever. Any store may be nil; its slice is
// simply always empty.
func NewRetriever(knowledge KnowledgeSearcher, learnings LearningStore, sessions SessionStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		knowledge: knowledge,
		learnings: learnings,
		sessions:  sessions,
		logger:    logger,
	}
}

func sliceCount(limit int, share float64) int {
	return int(math.Ceil(float64(limit) * share))
}

// Retrieve fetches up to limit relevant memories for the query embedding
// and task type. A limit of zero or less uses the default of 5.
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32, taskType datatypes.TaskType, limit int) []datatypes.RelevantMemory {
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}

	var (
		knowledge []datatypes.RelevantMemory
		strategy  []datatypes.RelevantMemory
		episodic  []datatypes.RelevantMemory
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		knowledge = r.knowledgeSlice(gctx, queryEmbedding, sliceCount(limit, knowledgeShare))
		return nil
	})
	g.Go(func() error {
		strategy = r.strategySlice(gctx, taskType, sliceCount(limit, strategyShare))
		return nil
	})
	g.Go(func() error {
		episodic = r.episodicSlice(gctx, taskType, sliceCount(limit, episodicShare))
		return nil
	})
	_ = g.Wait()

	memories := make([]datatypes.RelevantMemory, 0, len(knowledge)+len(strategy)+len(episodic))
	memories = append(memories, knowledge...)
	memories = append(memories, strategy...)
	memories = append(memories, episodic...)

	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Relevance > memories[j].Relevance
	})
	if len(memories) > limit {
		memories = memories[:limit]
	}
	return memories
}

func (r *Retriever) knowledgeSlice(ctx context.Context, embedding []float32, count int) []datatypes.RelevantMemory {
	if r.knowledge == nil {
		return nil
	}
	chunks, err := r.knowledge.MatchKnowledgeChunks(ctx, embedding, similarityThreshold, count)
	if err != nil {
		retrievalSliceFailures.WithLabelValues("knowledge").Inc()
		r.logger.Warn("knowledge retrieval failed", slog.String("error", err.Error()))
		return nil
	}
	memories := make([]datatypes.RelevantMemory, 0, len(chunks))
	for _, chunk := range chunks {
		metadata := map[string]any{"source_id": chunk.SourceID}
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		memories = append(memories, datatypes.RelevantMemory{
			Type:      datatypes.MemoryKnowledge,
			Content:   chunk.Content,
			Relevance: chunk.Similarity,
			Metadata:  metadata,
		})
	}
	return memories
}

func (r *Retriever) strategySlice(ctx context.Context, taskType datatypes.TaskType, count int) []datatypes.RelevantMemory {
	if r.learnings == nil {
		return nil
	}
	rows, err := r.learnings.LearningsForTask(ctx, taskType, count)
	if err != nil {
		retrievalSliceFailures.WithLabelValues("strategy").Inc()
		r.logger.Warn("strategy retrieval failed", slog.String("error", err.Error()))
		return nil
	}
	memories := make([]datatypes.RelevantMemory, 0, len(rows))
	for _, row := range rows {
		memories = append(memories, datatypes.RelevantMemory{
			Type:      datatypes.MemoryStrategy,
			Content:   fmt.Sprintf("Agent %q scored %.2f on %q", row.AgentID, row.AvgScore, row.TaskType),
			Relevance: row.AvgScore,
			AgentID:   row.AgentID,
			Metadata:  map[string]any{"prompt_hash": row.PromptHash, "tags": row.Tags},
		})
	}
	return memories
}

func (r *Retriever) episodicSlice(ctx context.Context, taskType datatypes.TaskType, count int) []datatypes.RelevantMemory {
	if r.sessions == nil {
		return nil
	}
	sessions, err := r.sessions.RecentCompletedSessions(ctx, taskType, count)
	if err != nil {
		retrievalSliceFailures.WithLabelValues("episodic").Inc()
		r.logger.Warn("episodic retrieval failed", slog.String("error", err.Error()))
		return nil
	}
	memories := make([]datatypes.RelevantMemory, 0, len(sessions))
	for _, session := range sessions {
		if session.CompletedAt.IsZero() {
			continue
		}
		memories = append(memories, datatypes.RelevantMemory{
			Type:      datatypes.MemoryEpisodic,
			Content:   fmt.Sprintf("Completed %q using %s, earned %d XP", session.QuestID, session.AgentUsed, session.XPEarned),
			Relevance: episodicRelevance,
			AgentID:   session.AgentUsed,
			Metadata:  map[string]any{"quest_id": session.QuestID},
		})
	}
	return memories
}

// FormatMemoriesAsContext renders memories into the fixed-section context
// block included in eventual model prompts. Empty input yields an empty
// string, not a block with empty sections.
func FormatMemoriesAsContext(memories []datatypes.RelevantMemory) string {
	if len(memories) == 0 {
		return ""
	}

	var knowledge, strategy, episodic []datatypes.RelevantMemory
	for _, m := range memories {
		switch m.Type {
		case datatypes.MemoryKnowledge:
			knowledge = append(knowledge, m)
		case datatypes.MemoryStrategy:
			strategy = append(strategy, m)
		case datatypes.MemoryEpisodic:
			episodic = append(episodic, m)
		}
	}

	var b strings.Builder
	b.WriteString("=== RETRIEVED CONTEXT ===\n\n")

	if len(knowledge) > 0 {
		b.WriteString("--- Knowledge Base ---\n")
		for i, m := range knowledge {
			fmt.Fprintf(&b, "[%d] (%.2f)\n%s\n\n", i+1, m.Relevance, m.Content)
		}
	}
	if len(strategy) > 0 {
		b.WriteString("--- Past Strategies ---\n")
		for _, m := range strategy {
			fmt.Fprintf(&b, "• %s\n", m.Content)
		}
		b.WriteString("\n")
	}
	if len(episodic) > 0 {
		b.WriteString("--- Your History ---\n")
		for _, m := range episodic {
			fmt.Fprintf(&b, "• %s\n", m.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("=== END CONTEXT ===\n")
	return b.String()
}
