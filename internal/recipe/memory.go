// Package recipe provides guide-data sources. The in-memory source ships
// a couple of hardcoded guides for the demo CLI and tests; the real
// application feeds data from its recipe subsystem.
package recipe

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/logger"
)

// Compile-time interface check.
var _ domain.GuideSource = (*MemorySource)(nil)

// MemorySource serves a fixed set of guides from memory.
type MemorySource struct {
	guides []*domain.GuideData
	log    *logger.Logger
}

// NewMemorySource creates a source with the built-in sample guides.
func NewMemorySource(log *logger.Logger) *MemorySource {
	return &MemorySource{
		guides: sampleGuides(),
		log:    log,
	}
}

// List returns summaries of all guides.
func (s *MemorySource) List(ctx context.Context) ([]domain.GuideSummary, error) {
	out := make([]domain.GuideSummary, len(s.guides))
	for i, g := range s.guides {
		out[i] = domain.GuideSummary{ID: g.ID, Title: g.Title}
	}
	return out, nil
}

// Get returns a full guide by ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.GuideData, error) {
	for _, g := range s.guides {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, fmt.Errorf("guide %q: %w", id, domain.ErrNotFound)
}

func sampleGuides() []*domain.GuideData {
	return []*domain.GuideData{
		{
			ID:    "mushroom-risotto",
			Title: "mushroom risotto",
			Items: []domain.PrepItem{
				{ID: 1, Name: "arborio rice", Amount: 1.5, Unit: "cups"},
				{ID: 2, Name: "mushrooms", Amount: 300, Unit: "grams"},
				{ID: 3, Name: "onion", Amount: 1, Unit: ""},
				{ID: 4, Name: "vegetable stock", Amount: 1, Unit: "liter"},
				{ID: 5, Name: "parmesan", Amount: 50, Unit: "grams"},
				{ID: 6, Name: "butter", Amount: 2, Unit: "tablespoons"},
			},
			Instructions: []string{
				"Warm the stock in a pot and keep it at a low simmer.",
				"Dice the onion and slice the mushrooms.",
				"Melt half the butter and sweat the onion until translucent.",
				"Add the mushrooms and cook until they release their liquid.",
				"Stir in the rice and toast it for two minutes.",
				"Add stock one ladle at a time, stirring until absorbed.",
				"When the rice is creamy and al dente, fold in the parmesan and remaining butter.",
				"Rest for two minutes off the heat, then serve.",
			},
			TotalTime: 40 * time.Minute,
		},
		{
			ID:    "shakshuka",
			Title: "shakshuka",
			Items: []domain.PrepItem{
				{ID: 1, Name: "eggs", Amount: 4, Unit: ""},
				{ID: 2, Name: "canned tomatoes", Amount: 400, Unit: "grams"},
				{ID: 3, Name: "red pepper", Amount: 1, Unit: ""},
				{ID: 4, Name: "onion", Amount: 1, Unit: ""},
				{ID: 5, Name: "cumin", Amount: 1, Unit: "teaspoon"},
			},
			Instructions: []string{
				"Slice the onion and pepper.",
				"Soften them in olive oil over medium heat.",
				"Add the cumin and cook until fragrant.",
				"Pour in the tomatoes and simmer until thickened.",
				"Make wells in the sauce and crack in the eggs.",
				"Cover and cook until the whites are set.",
			},
			TotalTime: 25 * time.Minute,
		},
	}
}
