package food

import "strings"

// Unit is one of the five quantity units accepted by draft and inventory
// records. The zero value means no unit.
type Unit string

const (
	UnitPieces      Unit = "Pieces"
	UnitGrams       Unit = "Grams"
	UnitKilograms   Unit = "Kilograms"
	UnitMilliliters Unit = "Milliliters"
	UnitLiters      Unit = "Liters"
)

// Units lists the canonical units in display order.
var Units = []Unit{UnitPieces, UnitGrams, UnitKilograms, UnitMilliliters, UnitLiters}

var unitAliases = map[string]Unit{
	"pieces": UnitPieces, "piece": UnitPieces, "pcs": UnitPieces, "pc": UnitPieces,
	"grams": UnitGrams, "gram": UnitGrams, "g": UnitGrams,
	"kilograms": UnitKilograms, "kilogram": UnitKilograms, "kg": UnitKilograms,
	"milliliters": UnitMilliliters, "milliliter": UnitMilliliters, "ml": UnitMilliliters,
	"liters": UnitLiters, "liter": UnitLiters, "l": UnitLiters,
}

// NormalizeUnit maps a free-text unit onto a canonical Unit.
//
// Unlike NormalizeCategory, unrecognized input ("cups", "ounces") returns the
// zero Unit rather than passing through: draft and inventory records only
// store the five canonical tags.
func NormalizeUnit(raw string) Unit {
	if raw == "" {
		return ""
	}
	if u := Unit(raw); u.Valid() {
		return u
	}
	return unitAliases[strings.ToLower(strings.TrimSpace(raw))]
}

// Valid reports whether u is exactly one of the canonical units.
func (u Unit) Valid() bool {
	switch u {
	case UnitPieces, UnitGrams, UnitKilograms, UnitMilliliters, UnitLiters:
		return true
	}
	return false
}

func (u Unit) String() string {
	return string(u)
}
