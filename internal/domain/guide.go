// Package domain defines the core types and interfaces for the guided
// cooking session controller. All other packages depend on domain; domain
// depends on nothing.
package domain

import "time"

// GuideData is the ordered step data for one guided session, supplied by
// the surrounding recipe subsystem. The controller never mutates it.
type GuideData struct {
	ID           string
	Title        string
	Items        []PrepItem    // preparation phase, in order
	Instructions []string      // cooking phase, in order
	TotalTime    time.Duration // display hint only, never drives control flow
}

// PrepItem is a single preparation-phase ingredient.
type PrepItem struct {
	ID     int
	Name   string
	Amount float64
	Unit   string // "cups", "grams", "pieces", ""
}

// GuideSummary is a lightweight view of a guide for listing.
type GuideSummary struct {
	ID    string
	Title string
}

// StepCount returns the number of steps in the given phase: prep items
// during Preparation, instructions during Cooking.
func (g *GuideData) StepCount(phase Phase) int {
	if phase == PhasePreparation {
		return len(g.Items)
	}
	return len(g.Instructions)
}
