// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire and data types shared by the conductor
// core: state snapshots, next-best actions, decision traces, routing decisions,
// interaction outcomes, and retrieved memories.
//
// Everything in this package is plain data. Types here never perform I/O and
// carry no behavior beyond small accessors, so every other package can depend
// on them without introducing cycles.
package datatypes

import "time"

// =============================================================================
// Identity Knowledge
// =============================================================================

// FieldSource records where a piece of identity knowledge came from.
type FieldSource string

const (
	// SourceRequest means the value arrived in the current request.
	SourceRequest FieldSource = "request"
	// SourceState means the value was recovered from client-side state.
	// The conductor treats this tag as opaque provenance and does not
	// assume how the caller obtained it.
	SourceState FieldSource = "state"
	// SourceDB means the value was recovered from persistent storage.
	SourceDB FieldSource = "db"
	// SourceNone means the value was never supplied.
	SourceNone FieldSource = "none"
)

// KnownField wraps a piece of user-identity knowledge with a validity flag
// and provenance so the decision engine can distinguish "never supplied"
// from "supplied but unvalidated" from "recovered from storage".
//
// Valid is only meaningful for fields with a verification step; today that
// is email only.
type KnownField[T any] struct {
	Value  T           `json:"value,omitempty"`
	Valid  bool        `json:"valid,omitempty"`
	Source FieldSource `json:"source"`
}

// Persona is the declared visitor persona. Empty means not chosen yet.
type Persona string

const (
	PersonaPersonal Persona = "PERSONAL"
	PersonaBusiness Persona = "BUSINESS"
)

// KnownFields is the full set of identity knowledge carried by a snapshot.
type KnownFields struct {
	Email   KnownField[string]  `json:"email"`
	Name    KnownField[string]  `json:"name"`
	Phone   KnownField[string]  `json:"phone"`
	Persona KnownField[Persona] `json:"persona"`
	Goal    KnownField[string]  `json:"goal"`
}

// =============================================================================
// Onboarding State
// =============================================================================

// OnboardingStep is the closed set of onboarding states. Steps are monotonic
// in normal operation; the decision engine computes the next step from the
// chosen action and never regresses it.
type OnboardingStep string

const (
	StepBoot             OnboardingStep = "boot"
	StepEmailGuard       OnboardingStep = "email_guard"
	StepOnboardingName   OnboardingStep = "onboarding_name"
	StepOnboardingPhone  OnboardingStep = "onboarding_phone"
	StepHandshake        OnboardingStep = "handshake"
	StepDynamicDiscovery OnboardingStep = "dynamic_discovery"
	StepValidation       OnboardingStep = "validation"
	StepProcessing       OnboardingStep = "processing"
	StepUnlocked         OnboardingStep = "unlocked"
)

// Intent is the last classified intent of the visitor's message.
type Intent string

const (
	IntentQuery        Intent = "query"
	IntentProvideField Intent = "provide_field"
	IntentHelp         Intent = "help"
	IntentCommand      Intent = "command"
	IntentUnknown      Intent = "unknown"
)

// InteractionMode selects the presentation register of the conversation.
type InteractionMode string

const (
	ModeStandard InteractionMode = "STANDARD"
	ModeGeek     InteractionMode = "GEEK"
)

// StateSnapshot is the immutable per-call input to the decision engine: a
// structured description of what is known about a visitor and where they are
// in onboarding. The caller constructs a fresh snapshot for every request and
// never mutates it; the engine's output implies the next snapshot's step but
// does not write it.
type StateSnapshot struct {
	RequestID    string          `json:"requestId"`
	TS           time.Time       `json:"ts"`
	Message      string          `json:"message"`
	HistoryTurns int             `json:"historyTurns"`
	UserID       string          `json:"userId,omitempty"`
	SessionID    string          `json:"sessionId,omitempty"`
	Route        string          `json:"route"`
	Mode         InteractionMode `json:"mode"`

	Known       KnownFields    `json:"known"`
	CurrentStep OnboardingStep `json:"currentStep"`
	Unlocked    bool           `json:"unlocked"`

	// Tier is the numeric access tier (0, 1, or 2).
	Tier             int    `json:"tier"`
	InteractionCount int    `json:"interactionCount"`
	LastIntent       Intent `json:"lastIntent"`

	// Provider/model preference hints passed through to the caller's
	// invocation layer; the conductor itself never calls a model.
	PreferredProvider string `json:"preferredProvider,omitempty"`
	PreferredModel    string `json:"preferredModel,omitempty"`
}
