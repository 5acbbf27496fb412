// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Effort and impact levels for recommendation items.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// RecommendationItem is one actionable recommendation surfaced to an
// unlocked visitor.
type RecommendationItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Why      string `json:"why"`
	NextStep string `json:"nextStep"`
	Effort   Level  `json:"effort"`
	Impact   Level  `json:"impact"`
}

// RecommendationPayload is the body rendered for a RETURN_RECOMMENDATIONS
// action: a persona-specific track with the top three items and an optional
// quick win.
type RecommendationPayload struct {
	Persona  Persona              `json:"persona"`
	Track    string               `json:"track"`
	Top3     []RecommendationItem `json:"top3"`
	QuickWin string               `json:"quickWin,omitempty"`
}
