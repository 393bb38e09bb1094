// Package expiry estimates when a food item will expire.
package expiry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raine/snapshelf/internal/food"
)

// Storage locations understood by RulePredictor.
const (
	LocationFridge  = "fridge"
	LocationFreezer = "freezer"
	LocationPantry  = "pantry"
)

// Locations lists the storage locations with their own shelf-life column.
var Locations = []string{LocationFridge, LocationFreezer, LocationPantry}

// Prediction is an estimated expiry date and a human-readable reason.
type Prediction struct {
	ExpiryDate time.Time
	Reasoning  string
}

// Predictor estimates an expiry date for a single item.
type Predictor interface {
	Predict(ctx context.Context, name string, category food.Category, storageLocation string) (*Prediction, error)
}

// shelfLife is the number of days an item keeps per storage location.
type shelfLife struct {
	fridge, freezer, pantry int
}

func (s shelfLife) days(location string) int {
	switch location {
	case LocationFreezer:
		return s.freezer
	case LocationPantry:
		return s.pantry
	default:
		return s.fridge
	}
}

var shelfLifeTable = map[food.Category]shelfLife{
	food.CategoryDairy:      {fridge: 7, freezer: 90, pantry: 1},
	food.CategoryMeat:       {fridge: 3, freezer: 120, pantry: 1},
	food.CategoryPoultry:    {fridge: 2, freezer: 270, pantry: 1},
	food.CategoryFish:       {fridge: 2, freezer: 180, pantry: 1},
	food.CategorySeafood:    {fridge: 2, freezer: 90, pantry: 1},
	food.CategoryVegetables: {fridge: 7, freezer: 240, pantry: 4},
	food.CategoryFruits:     {fridge: 10, freezer: 240, pantry: 5},
	food.CategoryBakery:     {fridge: 7, freezer: 90, pantry: 4},
	food.CategoryEggs:       {fridge: 28, freezer: 365, pantry: 7},
	food.CategoryCondiments: {fridge: 180, freezer: 365, pantry: 365},
	food.CategoryBeverages:  {fridge: 10, freezer: 180, pantry: 180},
	food.CategorySnacks:     {fridge: 60, freezer: 180, pantry: 60},
	food.CategoryFrozen:     {fridge: 2, freezer: 180, pantry: 1},
	food.CategoryCanned:     {fridge: 5, freezer: 60, pantry: 730},
}

var defaultShelfLife = shelfLife{fridge: 5, freezer: 90, pantry: 30}

// RulePredictor predicts expiry from a fixed category by location table.
// It never fails.
type RulePredictor struct {
	now func() time.Time
}

// NewRulePredictor creates a predictor using the wall clock.
func NewRulePredictor() *RulePredictor {
	return &RulePredictor{now: time.Now}
}

// WithClock replaces the clock, for tests.
func (p *RulePredictor) WithClock(now func() time.Time) *RulePredictor {
	p.now = now
	return p
}

// NormalizeLocation lowercases a storage location and maps unknown values to
// the fridge.
func NormalizeLocation(location string) string {
	loc := strings.ToLower(strings.TrimSpace(location))
	switch loc {
	case LocationFridge, LocationFreezer, LocationPantry:
		return loc
	default:
		return LocationFridge
	}
}

// Predict implements Predictor. The returned date has no time-of-day part.
func (p *RulePredictor) Predict(ctx context.Context, name string, category food.Category, storageLocation string) (*Prediction, error) {
	location := NormalizeLocation(storageLocation)

	life, ok := shelfLifeTable[category]
	var reasoning string
	if ok {
		reasoning = fmt.Sprintf("Based on category '%s' stored in '%s'", category, location)
	} else {
		life = defaultShelfLife
		reasoning = fmt.Sprintf("No category rule; default shelf life for '%s'", location)
	}

	now := p.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	return &Prediction{
		ExpiryDate: today.AddDate(0, 0, life.days(location)),
		Reasoning:  reasoning,
	}, nil
}
