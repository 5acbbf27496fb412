// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package weaviate is the cold external tier of the conductor's memory:
// knowledge chunks for semantic retrieval, learned agent success records,
// and completed sessions for episodic retrieval. Callers treat every
// operation as best-effort; this package only guarantees bounded latency
// via a per-call timeout.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/apexstack/conductor/services/conductor/datatypes"
	"github.com/apexstack/conductor/services/conductor/rlm"
)

// ErrNilClient is returned when a Store is constructed without a client.
var ErrNilClient = errors.New("weaviate client must not be nil")

const defaultCallTimeout = 3 * time.Second

// learningNamespace is the UUID namespace for deterministic AgentLearning
// object ids, which is what makes UpsertLearning idempotent.
var learningNamespace = uuid.MustParse("8f3c1d6a-52be-4e19-9d71-0c84a2f5b3e7")

// StoreConfig configures the cold store adapter.
type StoreConfig struct {
	// CallTimeout bounds each Weaviate call. Default: 3s.
	CallTimeout time.Duration
}

// DefaultStoreConfig returns production defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{CallTimeout: defaultCallTimeout}
}

// Store adapts a Weaviate client to the conductor's cold-tier surfaces.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	client  *weaviate.Client
	timeout time.Duration
}

// Compile-time interface checks.
var (
	_ rlm.LearningStore     = (*Store)(nil)
	_ rlm.SessionStore      = (*Store)(nil)
	_ rlm.KnowledgeSearcher = (*Store)(nil)
)

// NewStore creates a cold store adapter around an existing client.
func NewStore(client *weaviate.Client, cfg StoreConfig) (*Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Store{client: client, timeout: cfg.CallTimeout}, nil
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// learningID derives the deterministic object id for a learning row's
// unique key.
func learningID(row rlm.LearningRow) string {
	key := row.PromptHash + "|" + string(row.AgentID) + "|" + string(row.TaskType)
	return uuid.NewSHA1(learningNamespace, []byte(key)).String()
}

// UpsertLearning writes or replaces the row keyed by
// (PromptHash, AgentID, TaskType).
func (s *Store) UpsertLearning(ctx context.Context, row rlm.LearningRow) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	id := learningID(row)
	props := map[string]any{
		"prompt_hash":   row.PromptHash,
		"agent_id":      string(row.AgentID),
		"task_type":     string(row.TaskType),
		"success_score": row.SuccessScore,
		"sample_count":  row.SampleCount,
		"avg_score":     row.AvgScore,
		"tags":          row.Tags,
	}

	_, err := s.client.Data().Creator().
		WithClassName(AgentLearningClass).
		WithID(id).
		WithProperties(props).
		Do(ctx)
	if err == nil {
		return nil
	}

	// The id already exists, replace it in place.
	if updErr := s.client.Data().Updater().
		WithClassName(AgentLearningClass).
		WithID(id).
		WithProperties(props).
		Do(ctx); updErr != nil {
		return fmt.Errorf("upsert learning %s: %w", id, updErr)
	}
	return nil
}

// TopLearnings returns up to limit rows ordered by avg_score descending.
func (s *Store) TopLearnings(ctx context.Context, limit int) ([]rlm.LearningRow, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	result, err := s.client.GraphQL().Get().
		WithClassName(AgentLearningClass).
		WithFields(learningFields()...).
		WithSort(graphql.Sort{Path: []string{"avg_score"}, Order: graphql.Desc}).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("top learnings: %w", err)
	}
	if err := graphQLErr(result); err != nil {
		return nil, err
	}
	return parseLearnings(result), nil
}

// LearningsForTask returns up to limit rows for one task type, ordered by
// avg_score descending.
func (s *Store) LearningsForTask(ctx context.Context, taskType datatypes.TaskType, limit int) ([]rlm.LearningRow, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	where := filters.Where().
		WithPath([]string{"task_type"}).
		WithOperator(filters.Equal).
		WithValueString(string(taskType))

	result, err := s.client.GraphQL().Get().
		WithClassName(AgentLearningClass).
		WithFields(learningFields()...).
		WithWhere(where).
		WithSort(graphql.Sort{Path: []string{"avg_score"}, Order: graphql.Desc}).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("learnings for task %s: %w", taskType, err)
	}
	if err := graphQLErr(result); err != nil {
		return nil, err
	}
	return parseLearnings(result), nil
}

// RecentCompletedSessions returns up to limit completed sessions for the
// task, newest first.
func (s *Store) RecentCompletedSessions(ctx context.Context, taskType datatypes.TaskType, limit int) ([]rlm.SessionRow, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	where := filters.Where().
		WithPath([]string{"quest_id"}).
		WithOperator(filters.Equal).
		WithValueString(string(taskType))

	result, err := s.client.GraphQL().Get().
		WithClassName(UserSessionClass).
		WithFields(
			graphql.Field{Name: "quest_id"},
			graphql.Field{Name: "agent_used"},
			graphql.Field{Name: "xp_earned"},
			graphql.Field{Name: "retry_count"},
			graphql.Field{Name: "completed_at"},
		).
		WithWhere(where).
		WithSort(graphql.Sort{Path: []string{"completed_at"}, Order: graphql.Desc}).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent sessions for %s: %w", taskType, err)
	}
	if err := graphQLErr(result); err != nil {
		return nil, err
	}

	var rows []rlm.SessionRow
	for _, obj := range classObjects(result, UserSessionClass) {
		completedMillis := int64(getNumber(obj, "completed_at"))
		if completedMillis == 0 {
			continue
		}
		rows = append(rows, rlm.SessionRow{
			QuestID:     getString(obj, "quest_id"),
			AgentUsed:   datatypes.AgentID(getString(obj, "agent_used")),
			XPEarned:    int(getNumber(obj, "xp_earned")),
			RetryCount:  int(getNumber(obj, "retry_count")),
			CompletedAt: time.UnixMilli(completedMillis),
		})
	}
	return rows, nil
}

// MatchKnowledgeChunks returns up to count chunks whose certainty against
// the query embedding is at or above threshold.
func (s *Store) MatchKnowledgeChunks(ctx context.Context, embedding []float32, threshold float64, count int) ([]rlm.KnowledgeChunk, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(embedding).
		WithCertainty(float32(threshold))

	result, err := s.client.GraphQL().Get().
		WithClassName(KnowledgeChunkClass).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "source_id"},
			graphql.Field{Name: "_additional { certainty }"},
		).
		WithNearVector(nearVector).
		WithLimit(count).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("match knowledge chunks: %w", err)
	}
	if err := graphQLErr(result); err != nil {
		return nil, err
	}

	var chunks []rlm.KnowledgeChunk
	for _, obj := range classObjects(result, KnowledgeChunkClass) {
		chunks = append(chunks, rlm.KnowledgeChunk{
			Content:    getString(obj, "content"),
			SourceID:   getString(obj, "source_id"),
			Similarity: getCertainty(obj),
		})
	}
	return chunks, nil
}

// -----------------------------------------------------------------------------
// Response parsing
// -----------------------------------------------------------------------------

func learningFields() []graphql.Field {
	return []graphql.Field{
		{Name: "prompt_hash"},
		{Name: "agent_id"},
		{Name: "task_type"},
		{Name: "success_score"},
		{Name: "sample_count"},
		{Name: "avg_score"},
		{Name: "tags"},
	}
}

func graphQLErr(result *models.GraphQLResponse) error {
	if result != nil && len(result.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", result.Errors[0].Message)
	}
	return nil
}

func classObjects(result *models.GraphQLResponse, className string) []map[string]any {
	data, ok := result.Data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := data[className].([]any)
	if !ok {
		return nil
	}
	objects := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			objects = append(objects, obj)
		}
	}
	return objects
}

func parseLearnings(result *models.GraphQLResponse) []rlm.LearningRow {
	var rows []rlm.LearningRow
	for _, obj := range classObjects(result, AgentLearningClass) {
		rows = append(rows, rlm.LearningRow{
			PromptHash:   getString(obj, "prompt_hash"),
			AgentID:      datatypes.AgentID(getString(obj, "agent_id")),
			TaskType:     datatypes.TaskType(getString(obj, "task_type")),
			SuccessScore: getNumber(obj, "success_score"),
			SampleCount:  int(getNumber(obj, "sample_count")),
			AvgScore:     getNumber(obj, "avg_score"),
			Tags:         getStrings(obj, "tags"),
		})
	}
	return rows
}

func getString(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

func getNumber(obj map[string]any, key string) float64 {
	if v, ok := obj[key].(float64); ok {
		return v
	}
	return 0
}

func getStrings(obj map[string]any, key string) []string {
	raw, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	var values []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

func getCertainty(obj map[string]any) float64 {
	additional, ok := obj["_additional"].(map[string]any)
	if !ok {
		return 0
	}
	if v, ok := additional["certainty"].(float64); ok {
		return v
	}
	return 0
}
