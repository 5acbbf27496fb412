// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rlm

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Persistence Worker
// =============================================================================

const (
	defaultPersistQueue   = 256
	defaultPersistTimeout = 3 * time.Second
)

// persistWorker drains learning rows to the warm and cold tiers in the
// background. The queue is bounded: when it is full, writes are dropped
// and counted rather than blocking the caller, because the local cache
// is authoritative and persistence exists only for cross-process
// bootstrapping.
type persistWorker struct {
	warm    WarmStore
	cold    LearningStore
	timeout time.Duration
	logger  *slog.Logger

	jobs chan LearningRow
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newPersistWorker(warm WarmStore, cold LearningStore, queueSize int, timeout time.Duration, logger *slog.Logger) *persistWorker {
	if queueSize <= 0 {
		queueSize = defaultPersistQueue
	}
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &persistWorker{
		warm:    warm,
		cold:    cold,
		timeout: timeout,
		logger:  logger,
		jobs:    make(chan LearningRow, queueSize),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// enqueue hands a row to the worker. Returns false when the queue is full
// or the worker is closed and the row was dropped.
func (w *persistWorker) enqueue(row LearningRow) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.jobs <- row:
		return true
	default:
		persistDropped.Inc()
		w.logger.Warn("persist queue full, dropping learning",
			slog.String("agent", string(row.AgentID)),
			slog.String("task", string(row.TaskType)),
		)
		return false
	}
}

// close stops the worker after draining queued rows. Safe to call more
// than once and safe against a concurrent enqueue.
func (w *persistWorker) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *persistWorker) run() {
	defer w.wg.Done()
	for row := range w.jobs {
		w.persist(row)
	}
}

// persist writes one row to every configured tier. Failures are counted
// and logged, never propagated.
func (w *persistWorker) persist(row LearningRow) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if w.warm != nil {
		if err := w.warm.SaveLearning(ctx, row); err != nil {
			persistFailures.WithLabelValues("warm").Inc()
			w.logger.Warn("warm learning persist failed",
				slog.String("agent", string(row.AgentID)),
				slog.String("error", err.Error()),
			)
		}
	}
	if w.cold != nil {
		if err := w.cold.UpsertLearning(ctx, row); err != nil {
			persistFailures.WithLabelValues("cold").Inc()
			w.logger.Warn("cold learning persist failed",
				slog.String("agent", string(row.AgentID)),
				slog.String("error", err.Error()),
			)
		}
	}
}
