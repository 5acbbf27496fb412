// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badgerstore is the warm local tier of the conductor's memory.
//
// Learner rows are persisted to an embedded BadgerDB so a restart can
// reseed the in-process cache without reaching the cold external store.
// This is the middle layer of the tiered persistence model:
//
//	Hot (RAM) → Warm (BadgerDB) → Cold (Weaviate)
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/apexstack/conductor/services/conductor/rlm"
)

// learningPrefix namespaces learner rows inside the shared database.
const learningPrefix = "learning/"

// Config holds configuration for the warm store.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Useful
	// for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger for BadgerDB's internal output. If nil, that output is
	// disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a testing configuration with no persistence.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the warm tier for learner state.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db *badger.DB
}

var _ rlm.WarmStore = (*Store)(nil)

// Open creates and opens the warm store with the given configuration.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func learningKey(row rlm.LearningRow) []byte {
	return []byte(learningPrefix + string(row.AgentID) + ":" + string(row.TaskType))
}

// SaveLearning writes or replaces the row for its (agent, task) pair.
// Unlike the cold tier, the warm tier keeps only the latest row per pair
// because it exists solely to reseed the learner's EMA cache.
func (s *Store) SaveLearning(ctx context.Context, row rlm.LearningRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal learning row: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(learningKey(row), value)
	})
	if err != nil {
		return fmt.Errorf("save learning %s:%s: %w", row.AgentID, row.TaskType, err)
	}
	return nil
}

// LoadLearnings returns up to limit stored rows ordered by AvgScore
// descending.
func (s *Store) LoadLearnings(ctx context.Context, limit int) ([]rlm.LearningRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []rlm.LearningRow
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(learningPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var row rlm.LearningRow
				if err := json.Unmarshal(value, &row); err != nil {
					// Skip rows written by an incompatible version.
					return nil
				}
				rows = append(rows, row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load learnings: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].AvgScore > rows[j].AvgScore
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
