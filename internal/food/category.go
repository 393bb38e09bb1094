// Package food holds the domain vocabularies for food items and the
// functions that map free-text vendor vocabulary onto them.
package food

import "strings"

// Category is a canonical food category tag used by expiry prediction.
// The zero value means no category.
type Category string

const (
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategoryPoultry    Category = "poultry"
	CategoryFish       Category = "fish"
	CategorySeafood    Category = "seafood"
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryBakery     Category = "bakery"
	CategoryEggs       Category = "eggs"
	CategoryCondiments Category = "condiments"
	CategoryBeverages  Category = "beverages"
	CategorySnacks     Category = "snacks"
	CategoryFrozen     Category = "frozen"
	CategoryCanned     Category = "canned"
)

// categoryMap maps lowercased vendor tags to canonical categories.
// "other" maps to the zero Category on purpose: prediction should fall back
// to its default rule instead of matching a category literally named "other".
var categoryMap = map[string]Category{
	"dairy":      CategoryDairy,
	"meat":       CategoryMeat,
	"poultry":    CategoryPoultry,
	"fish":       CategoryFish,
	"seafood":    CategorySeafood,
	"vegetables": CategoryVegetables,
	"fruits":     CategoryFruits,
	"bread":      CategoryBakery,
	"bakery":     CategoryBakery,
	"eggs":       CategoryEggs,
	"condiments": CategoryCondiments,
	"beverages":  CategoryBeverages,
	"snacks":     CategorySnacks,
	"frozen":     CategoryFrozen,
	"canned":     CategoryCanned,
	"other":      "",
}

var knownCategories = map[Category]bool{
	CategoryDairy: true, CategoryMeat: true, CategoryPoultry: true, CategoryFish: true,
	CategorySeafood: true, CategoryVegetables: true, CategoryFruits: true, CategoryBakery: true,
	CategoryEggs: true, CategoryCondiments: true, CategoryBeverages: true, CategorySnacks: true,
	CategoryFrozen: true, CategoryCanned: true,
}

// NormalizeCategory maps a vendor category onto a canonical Category.
//
// Matching is case-insensitive and ignores surrounding whitespace. Tags that
// are not in the lookup table pass through lowercased, so a new vendor tag
// like "grains" still reaches the predictor. Compare NormalizeUnit, which
// drops unknown input instead.
func NormalizeCategory(raw string) Category {
	if raw == "" {
		return ""
	}
	key := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := categoryMap[key]; ok {
		return c
	}
	return Category(key)
}

// Known reports whether c is one of the canonical categories.
func (c Category) Known() bool {
	return knownCategories[c]
}

func (c Category) String() string {
	return string(c)
}
