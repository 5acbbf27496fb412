// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rlm

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apexstack/conductor/services/conductor/datatypes"
)

// =============================================================================
// Interaction Tracker
// =============================================================================

// Success scoring constants. Abandonment forces the fixed low score; all
// other outcomes start at the base and collect adjustments before clamping
// to [0,1].
const (
	abandonedScore  = 0.1
	scoreBase       = 0.5
	timeBonusMax    = 0.2
	timeBonusCap    = 30 * time.Minute
	retryPenalty    = 0.1
	retryPenaltyCap = 0.3
	errorPenalty    = 0.2
	xpBonus         = 0.1
	goldBonus       = 0.05
)

// TrackerConfig configures the in-process session tracker.
type TrackerConfig struct {
	// SessionTTL is how long an open session may sit without completing
	// before the sweeper evicts it. Default: 2 hours.
	SessionTTL time.Duration

	// MaxSessions caps the number of concurrently tracked sessions; the
	// oldest open session is evicted to make room. Default: 10000.
	MaxSessions int

	// SweepInterval is how often the TTL sweeper runs. Default: 1 minute.
	SweepInterval time.Duration

	// OnEvict, when set, receives sessions the sweeper evicts. Evicted
	// sessions are marked abandoned first.
	OnEvict func(outcome *datatypes.InteractionOutcome)

	// Logger for sweep output. If nil, uses slog.Default.
	Logger *slog.Logger
}

// DefaultTrackerConfig returns production defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		SessionTTL:    2 * time.Hour,
		MaxSessions:   10000,
		SweepInterval: time.Minute,
	}
}

// Tracker is the in-process session ledger for routed interactions.
//
// Description:
//
//	Sessions are added at start and removed on completion or abandonment
//	(one-shot semantics: a second Complete or Abandon for the same id is a
//	no-op returning nil, not an error, since completion can legitimately
//	race with process restarts). Sessions that never resolve are evicted
//	by a TTL sweeper so the map stays bounded.
//
// Thread Safety: Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*datatypes.InteractionOutcome

	ttl         time.Duration
	maxSessions int
	sweepEvery  time.Duration
	onEvict     func(outcome *datatypes.InteractionOutcome)
	logger      *slog.Logger

	sweeping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewTracker creates a tracker with the given configuration. Zero-valued
// fields fall back to defaults. Call Start to begin TTL sweeping and Stop
// to halt it.
func NewTracker(cfg TrackerConfig) *Tracker {
	def := DefaultTrackerConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tracker{
		sessions:    make(map[string]*datatypes.InteractionOutcome),
		ttl:         cfg.SessionTTL,
		maxSessions: cfg.MaxSessions,
		sweepEvery:  cfg.SweepInterval,
		onEvict:     cfg.OnEvict,
		logger:      cfg.Logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// PromptHash computes the rolling dedup hash of prompt+agent. Not
// cryptographic; only used as a stable dedup key downstream.
func PromptHash(prompt string, agent datatypes.AgentID) string {
	var h int32
	for _, c := range prompt + string(agent) {
		h = (h << 5) - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return fmt.Sprintf("%08x", v)
}

// Start begins tracking one routed interaction and returns its session id.
func (t *Tracker) Start(userID, questID string, agent datatypes.AgentID, prompt string) string {
	sessionID := "sess_" + uuid.NewString()
	outcome := &datatypes.InteractionOutcome{
		SessionID:  sessionID,
		UserID:     userID,
		QuestID:    questID,
		AgentUsed:  agent,
		PromptHash: PromptHash(prompt, agent),
		StartedAt:  time.Now(),
	}

	t.mu.Lock()
	var evicted *datatypes.InteractionOutcome
	if len(t.sessions) >= t.maxSessions {
		evicted = t.evictOldestLocked()
	}
	t.sessions[sessionID] = outcome
	t.mu.Unlock()

	if evicted != nil {
		sessionsEvicted.Inc()
		if t.onEvict != nil {
			t.onEvict(evicted)
		}
	}

	return sessionID
}

// RecordRetry increments the retry count for an open session. Unknown ids
// are ignored.
func (t *Tracker) RecordRetry(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[sessionID]; ok {
		s.RetryCount++
	}
}

// RecordError flags an open session as having hit an error. Unknown ids
// are ignored.
func (t *Tracker) RecordError(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[sessionID]; ok {
		s.ErrorOccurred = true
	}
}

// Complete finalizes a session with its rewards and removes it from the
// store. Returns nil for unknown or already-resolved ids.
func (t *Tracker) Complete(sessionID string, xp, gold int, metadata map[string]any) *datatypes.InteractionOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return nil
	}
	s.CompletedAt = time.Now()
	s.XPEarned = xp
	s.GoldEarned = gold
	s.Metadata = metadata
	delete(t.sessions, sessionID)
	return s
}

// Abandon marks a session abandoned and removes it from the store. Returns
// nil for unknown or already-resolved ids.
func (t *Tracker) Abandon(sessionID string) *datatypes.InteractionOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return nil
	}
	s.Abandoned = true
	s.CompletedAt = time.Now()
	delete(t.sessions, sessionID)
	return s
}

// ActiveSessions returns the ids of all currently open sessions in stable
// order.
func (t *Tracker) ActiveSessions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CalculateSuccessScore converts one outcome into a success score in [0,1].
//
// Description:
//
//	Abandonment scores a fixed 0.1 regardless of other fields. Otherwise
//	the score starts at 0.5, earns up to +0.2 for fast completion relative
//	to the 30-minute cap, loses 0.1 per retry up to 0.3, loses 0.2 for any
//	error, and earns +0.1 / +0.05 for XP and gold rewards, clamped to
//	[0,1].
func CalculateSuccessScore(outcome *datatypes.InteractionOutcome) float64 {
	if outcome.Abandoned {
		return abandonedScore
	}
	score := scoreBase
	if !outcome.CompletedAt.IsZero() {
		duration := outcome.CompletedAt.Sub(outcome.StartedAt)
		timeFactor := 1 - duration.Seconds()/timeBonusCap.Seconds()
		if timeFactor < 0 {
			timeFactor = 0
		}
		score += timeFactor * timeBonusMax
	}
	retryPen := float64(outcome.RetryCount) * retryPenalty
	if retryPen > retryPenaltyCap {
		retryPen = retryPenaltyCap
	}
	score -= retryPen
	if outcome.ErrorOccurred {
		score -= errorPenalty
	}
	if outcome.XPEarned > 0 {
		score += xpBonus
	}
	if outcome.GoldEarned > 0 {
		score += goldBonus
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// StartSweeper begins the background TTL sweeper. Call Stop to halt it.
func (t *Tracker) StartSweeper() {
	t.mu.Lock()
	if t.sweeping {
		t.mu.Unlock()
		return
	}
	t.sweeping = true
	t.mu.Unlock()
	go t.run()
}

// Stop halts the TTL sweeper and waits for it to finish. Safe to call when
// the sweeper never started.
func (t *Tracker) Stop() {
	t.mu.Lock()
	started := t.sweeping
	t.mu.Unlock()
	if !started {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}

func (t *Tracker) run() {
	defer close(t.doneCh)
	ticker := time.NewTicker(t.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

// sweep evicts sessions older than the TTL.
func (t *Tracker) sweep() {
	cutoff := time.Now().Add(-t.ttl)

	t.mu.Lock()
	var evicted []*datatypes.InteractionOutcome
	for id, s := range t.sessions {
		if s.StartedAt.Before(cutoff) {
			s.Abandoned = true
			s.CompletedAt = time.Now()
			evicted = append(evicted, s)
			delete(t.sessions, id)
		}
	}
	t.mu.Unlock()

	for _, s := range evicted {
		sessionsEvicted.Inc()
		t.logger.Warn("evicted stale interaction session",
			slog.String("session_id", s.SessionID),
			slog.String("agent", string(s.AgentUsed)),
			slog.Time("started_at", s.StartedAt),
		)
		if t.onEvict != nil {
			t.onEvict(s)
		}
	}
}

// evictOldestLocked removes the oldest open session and returns it, or nil
// when none is tracked. Caller holds t.mu and must run the OnEvict
// callback after unlocking, as sweep does.
func (t *Tracker) evictOldestLocked() *datatypes.InteractionOutcome {
	var oldestID string
	var oldest time.Time
	for id, s := range t.sessions {
		if oldestID == "" || s.StartedAt.Before(oldest) {
			oldestID = id
			oldest = s.StartedAt
		}
	}
	if oldestID == "" {
		return nil
	}
	s := t.sessions[oldestID]
	s.Abandoned = true
	s.CompletedAt = time.Now()
	delete(t.sessions, oldestID)
	return s
}
