// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conductor wires the decision engine, response policy, agent
// router, and the retrieval and learning memory trio into one service.
package conductor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	weaviateclient "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/apexstack/conductor/services/conductor/agent/classifier"
	"github.com/apexstack/conductor/services/conductor/agent/registry"
	"github.com/apexstack/conductor/services/conductor/agent/routing"
	"github.com/apexstack/conductor/services/conductor/config"
	"github.com/apexstack/conductor/services/conductor/datatypes"
	"github.com/apexstack/conductor/services/conductor/rlm"
	"github.com/apexstack/conductor/services/conductor/routes"
	"github.com/apexstack/conductor/services/conductor/storage/badgerstore"
	weaviatestore "github.com/apexstack/conductor/services/conductor/storage/weaviate"
)

// Conductor owns the wired core and the lifecycle of its stores.
type Conductor struct {
	cfg config.Config

	registry  *registry.Registry
	router    *routing.Router
	tracker   *rlm.Tracker
	learner   *rlm.Learner
	retriever *rlm.Retriever

	warm *badgerstore.Store
	cold *weaviatestore.Store
}

// New constructs the full service from configuration.
//
// Description:
//
//	Opens the warm and cold tiers when enabled, builds the registry,
//	classifier, router, tracker, learner, and retriever, seeds the
//	learner's cache from the stores, and starts the tracker's TTL
//	sweeper. Either store being disabled or unreachable degrades the
//	service to fewer tiers, never to a failed start; only a broken warm
//	store path is a hard error because it signals a misconfiguration.
func New(ctx context.Context, cfg config.Config) (*Conductor, error) {
	c := &Conductor{cfg: cfg}

	if cfg.Badger.Enabled {
		warm, err := badgerstore.Open(badgerstore.DefaultConfig(cfg.Badger.Path))
		if err != nil {
			return nil, fmt.Errorf("open warm store: %w", err)
		}
		c.warm = warm
	}

	if cfg.Weaviate.Enabled {
		client, err := weaviateclient.NewClient(weaviateclient.Config{
			Host:   cfg.Weaviate.Host,
			Scheme: cfg.Weaviate.Scheme,
		})
		if err != nil {
			slog.Error("Failed to create Weaviate client, running without cold tier", "error", err)
		} else if err := weaviatestore.EnsureSchema(ctx, client); err != nil {
			slog.Error("Failed to ensure Weaviate schema, running without cold tier", "error", err)
		} else {
			cold, err := weaviatestore.NewStore(client, weaviatestore.StoreConfig{
				CallTimeout: cfg.Weaviate.CallTimeout,
			})
			if err != nil {
				return nil, fmt.Errorf("create cold store: %w", err)
			}
			c.cold = cold
		}
	}

	c.registry = registry.Default()

	// The interfaces are satisfied by nil-able concrete stores; pass
	// typed nils through as absent tiers.
	var coldLearnings rlm.LearningStore
	var coldSessions rlm.SessionStore
	var coldKnowledge rlm.KnowledgeSearcher
	if c.cold != nil {
		coldLearnings = c.cold
		coldSessions = c.cold
		coldKnowledge = c.cold
	}
	var warm rlm.WarmStore
	if c.warm != nil {
		warm = c.warm
	}

	c.learner = rlm.NewLearner(rlm.LearnerConfig{
		KnownAgents:      c.registry.AgentIDs(),
		Warm:             warm,
		Cold:             coldLearnings,
		MaxEntries:       cfg.Learner.MaxEntries,
		PersistQueueSize: cfg.Learner.PersistQueueSize,
		PersistTimeout:   cfg.Learner.PersistTimeout,
	})
	c.learner.InitializeLearnings(ctx)

	c.tracker = rlm.NewTracker(rlm.TrackerConfig{
		SessionTTL:    cfg.Tracker.SessionTTL,
		MaxSessions:   cfg.Tracker.MaxSessions,
		SweepInterval: cfg.Tracker.SweepInterval,
		OnEvict: func(outcome *datatypes.InteractionOutcome) {
			c.learner.Record(outcome, "")
		},
	})
	c.tracker.StartSweeper()

	c.retriever = rlm.NewRetriever(coldKnowledge, coldLearnings, coldSessions, nil)

	router, err := routing.New(c.registry, classifier.NewKeywordClassifier(), c.learner, nil)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	c.router = router

	return c, nil
}

// Registry returns the wired capability registry.
func (c *Conductor) Registry() *registry.Registry { return c.registry }

// Router returns the wired agent router.
func (c *Conductor) Router() *routing.Router { return c.router }

// Tracker returns the wired interaction tracker.
func (c *Conductor) Tracker() *rlm.Tracker { return c.tracker }

// Learner returns the wired learner.
func (c *Conductor) Learner() *rlm.Learner { return c.learner }

// Retriever returns the wired memory retriever.
func (c *Conductor) Retriever() *rlm.Retriever { return c.retriever }

// Run serves the HTTP surface until the listener fails.
func (c *Conductor) Run() error {
	router := gin.Default()
	router.Use(otelgin.Middleware("conductor-service"))

	routes.SetupRoutes(router, c.registry, c.router, c.tracker, c.learner, c.retriever)

	slog.Info("Starting the conductor server", "addr", c.cfg.Server.Addr)
	return router.Run(c.cfg.Server.Addr)
}

// Close stops background workers and closes the stores.
func (c *Conductor) Close() error {
	c.tracker.Stop()
	c.learner.Close()
	if c.warm != nil {
		if err := c.warm.Close(); err != nil {
			return fmt.Errorf("close warm store: %w", err)
		}
	}
	return nil
}
