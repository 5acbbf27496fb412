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
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// =============================================================================
// Learner
// =============================================================================

const (
	// emaSeed is the assumed prior score for an (agent, task) pair with no
	// recorded data yet.
	emaSeed = 0.5

	// coldStartLimit is how many stored rows seed the cache at startup.
	coldStartLimit = 100

	defaultMaxLearnings = 2048
)

// generalTask is the bucket for outcomes with no quest and no resolved
// task type.
const generalTask = datatypes.TaskType("general")

// LearnerConfig configures the learner.
type LearnerConfig struct {
	// KnownAgents is the fixed set of agent ids AgentScores reports on.
	KnownAgents []datatypes.AgentID

	// Warm is the local embedded tier, used before Cold when reseeding.
	// Optional.
	Warm WarmStore

	// Cold is the external store for cross-process bootstrapping. Optional.
	Cold LearningStore

	// MaxEntries caps the EMA cache; the least recently updated entry is
	// evicted to make room. Default: 2048.
	MaxEntries int

	// PersistQueueSize bounds the background persistence queue.
	// Default: 256.
	PersistQueueSize int

	// PersistTimeout bounds each persistence write. Default: 3s.
	PersistTimeout time.Duration

	// Logger for persistence warnings. If nil, uses slog.Default.
	Logger *slog.Logger
}

// emaEntry is one cached moving-average score.
type emaEntry struct {
	score     float64
	updatedAt time.Time
}

// LearningStats summarizes the cache for diagnostics.
type LearningStats struct {
	TotalLearnings int `json:"totalLearnings"`

	// BestAgent is nil when no data has been recorded.
	BestAgent *AgentAverage `json:"bestAgent"`
}

// AgentAverage is one agent's mean cached score across all task types,
// rounded to two decimal places.
type AgentAverage struct {
	AgentID  datatypes.AgentID `json:"agentId"`
	AvgScore float64           `json:"avgScore"`
}

// Learner folds interaction outcomes into per-(agent, task) success scores.
//
// Description:
//
//	Each recorded outcome is scored (see CalculateSuccessScore) and merged
//	into a local exponential moving average, newAvg = (oldAvg + score) / 2.
//	The local cache is authoritative for routing within the process
//	lifetime; the warm and cold tiers exist only so a restart can reseed
//	it. All persistence is best-effort through a bounded background
//	worker, so a slow or dead store never blocks the caller.
//
// Thread Safety: Safe for concurrent use.
type Learner struct {
	mu          sync.Mutex
	cache       map[string]emaEntry
	knownAgents []datatypes.AgentID
	maxEntries  int

	warm   WarmStore
	cold   LearningStore
	worker *persistWorker
	logger *slog.Logger
}

// NewLearner creates a learner and starts its persistence worker. Call
// Close to stop the worker.
func NewLearner(cfg LearnerConfig) *Learner {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxLearnings
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Learner{
		cache:       make(map[string]emaEntry),
		knownAgents: append([]datatypes.AgentID(nil), cfg.KnownAgents...),
		maxEntries:  cfg.MaxEntries,
		warm:        cfg.Warm,
		cold:        cfg.Cold,
		worker:      newPersistWorker(cfg.Warm, cfg.Cold, cfg.PersistQueueSize, cfg.PersistTimeout, cfg.Logger),
		logger:      cfg.Logger,
	}
}

func learningKey(agent datatypes.AgentID, taskType datatypes.TaskType) string {
	return string(agent) + ":" + string(taskType)
}

// resolveTaskType picks the bucket an outcome is learned under: the caller's
// resolved task type when known, else the quest id, else the general bucket.
func resolveTaskType(outcome *datatypes.InteractionOutcome, taskType datatypes.TaskType) datatypes.TaskType {
	if taskType != "" {
		return taskType
	}
	if outcome.QuestID != "" {
		return datatypes.TaskType(outcome.QuestID)
	}
	return generalTask
}

// Record scores one resolved outcome and folds it into the cache, then
// queues the row for best-effort persistence. taskType may be empty; see
// resolveTaskType.
func (l *Learner) Record(outcome *datatypes.InteractionOutcome, taskType datatypes.TaskType) {
	if outcome == nil {
		return
	}
	score := CalculateSuccessScore(outcome)
	successScores.Observe(score)
	task := resolveTaskType(outcome, taskType)
	key := learningKey(outcome.AgentUsed, task)

	l.mu.Lock()
	entry, ok := l.cache[key]
	if !ok {
		entry = emaEntry{score: emaSeed}
		if len(l.cache) >= l.maxEntries {
			l.evictOldestLocked()
		}
	}
	entry.score = (entry.score + score) / 2
	entry.updatedAt = time.Now()
	l.cache[key] = entry
	l.mu.Unlock()

	var tags []string
	if outcome.QuestID != "" {
		tags = []string{outcome.QuestID}
	}
	l.worker.enqueue(LearningRow{
		PromptHash:   outcome.PromptHash,
		AgentID:      outcome.AgentUsed,
		TaskType:     task,
		SuccessScore: score,
		SampleCount:  1,
		AvgScore:     score,
		Tags:         tags,
	})
}

// AgentScores returns whichever subset of the known agents has cached data
// for the task type. Missing agents simply have no entry.
func (l *Learner) AgentScores(taskType datatypes.TaskType) map[datatypes.AgentID]float64 {
	scores := make(map[datatypes.AgentID]float64)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, agent := range l.knownAgents {
		if entry, ok := l.cache[learningKey(agent, taskType)]; ok {
			scores[agent] = entry.score
		}
	}
	return scores
}

// InitializeLearnings seeds the cache from the warm tier, then the cold
// store's top rows by average score. Both reads are non-fatal; an
// unreachable store just means a cold cache.
func (l *Learner) InitializeLearnings(ctx context.Context) {
	if l.warm != nil {
		rows, err := l.warm.LoadLearnings(ctx, coldStartLimit)
		if err != nil {
			l.logger.Warn("warm learning seed failed", slog.String("error", err.Error()))
		} else {
			l.seed(rows)
		}
	}
	if l.cold != nil {
		rows, err := l.cold.TopLearnings(ctx, coldStartLimit)
		if err != nil {
			l.logger.Warn("cold learning seed failed", slog.String("error", err.Error()))
		} else {
			l.seed(rows)
		}
	}
}

func (l *Learner) seed(rows []LearningRow) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, row := range rows {
		if row.AgentID == "" || row.TaskType == "" {
			continue
		}
		if len(l.cache) >= l.maxEntries {
			break
		}
		l.cache[learningKey(row.AgentID, row.TaskType)] = emaEntry{
			score:     row.AvgScore,
			updatedAt: now,
		}
	}
}

// Stats reports the cache size and the agent with the highest mean cached
// score across all task types.
func (l *Learner) Stats() LearningStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := LearningStats{TotalLearnings: len(l.cache)}

	type acc struct {
		total float64
		count int
	}
	averages := make(map[datatypes.AgentID]acc)
	for key, entry := range l.cache {
		agent, _, _ := strings.Cut(key, ":")
		a := averages[datatypes.AgentID(agent)]
		a.total += entry.score
		a.count++
		averages[datatypes.AgentID(agent)] = a
	}
	// Sorted iteration keeps the tie-break stable across runs.
	agents := make([]datatypes.AgentID, 0, len(averages))
	for agent := range averages {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })
	for _, agent := range agents {
		a := averages[agent]
		avg := math.Round(a.total/float64(a.count)*100) / 100
		if stats.BestAgent == nil || avg > stats.BestAgent.AvgScore {
			stats.BestAgent = &AgentAverage{AgentID: agent, AvgScore: avg}
		}
	}
	return stats
}

// Close stops the persistence worker after draining queued rows.
func (l *Learner) Close() {
	l.worker.close()
}

// evictOldestLocked drops the least recently updated entry. Caller holds
// l.mu.
func (l *Learner) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range l.cache {
		if oldestKey == "" || entry.updatedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.updatedAt
		}
	}
	if oldestKey != "" {
		delete(l.cache, oldestKey)
	}
}
