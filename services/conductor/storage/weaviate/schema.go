// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package weaviate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// =============================================================================
// Schema
// =============================================================================

const (
	// KnowledgeChunkClass holds embedded knowledge base chunks. Vectors are
	// supplied externally, so the class carries no vectorizer.
	KnowledgeChunkClass = "KnowledgeChunk"

	// AgentLearningClass holds learned per-(prompt, agent, task) success
	// records upserted by the learner.
	AgentLearningClass = "AgentLearning"

	// UserSessionClass holds completed interaction sessions read back for
	// episodic retrieval.
	UserSessionClass = "UserSession"
)

func getKnowledgeChunkSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       KnowledgeChunkClass,
		Description: "Embedded knowledge base chunk with an externally supplied vector.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:        "content",
				DataType:    []string{"text"},
				Description: "Chunk text surfaced to the model prompt.",
			},
			{
				Name:            "source_id",
				DataType:        []string{"text"},
				Description:     "Identifier of the document this chunk came from.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

func getAgentLearningSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       AgentLearningClass,
		Description: "Learned agent success record, unique on (prompt_hash, agent_id, task_type).",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "prompt_hash",
				DataType:        []string{"text"},
				Description:     "Rolling dedup hash of prompt plus agent id.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "agent_id",
				DataType:        []string{"text"},
				Description:     "Agent that handled the interaction.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "task_type",
				DataType:        []string{"text"},
				Description:     "Task bucket the score was earned under.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "success_score",
				DataType:    []string{"number"},
				Description: "Success score of the most recent interaction.",
			},
			{
				Name:        "sample_count",
				DataType:    []string{"int"},
				Description: "Number of interactions folded into avg_score.",
			},
			{
				Name:            "avg_score",
				DataType:        []string{"number"},
				Description:     "Running average success score.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:        "tags",
				DataType:    []string{"text[]"},
				Description: "Free-form tags, typically the quest id.",
			},
		},
	}
}

func getUserSessionSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       UserSessionClass,
		Description: "Completed interaction session read back for episodic retrieval.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "quest_id",
				DataType:        []string{"text"},
				Description:     "Quest or task bucket the session belonged to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "agent_used",
				DataType:        []string{"text"},
				Description:     "Agent that handled the session.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "xp_earned",
				DataType:    []string{"int"},
				Description: "XP reward earned on completion.",
			},
			{
				Name:        "retry_count",
				DataType:    []string{"int"},
				Description: "Number of retries before completion.",
			},
			{
				Name:            "completed_at",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds when the session completed. 0 = never.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureSchema creates any of the conductor's classes that do not exist yet.
// Existing classes are left untouched.
func EnsureSchema(ctx context.Context, client *weaviate.Client) error {
	schemaGetters := []func() *models.Class{
		getKnowledgeChunkSchema,
		getAgentLearningSchema,
		getUserSessionSchema,
	}

	for _, getSchema := range schemaGetters {
		class := getSchema()

		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
		if err == nil {
			slog.Debug("Schema already exists", "class", class.Class)
			continue
		}

		slog.Info("Schema not found, creating it", "class", class.Class)
		if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("create schema for class %s: %w", class.Class, err)
		}
	}
	return nil
}
