package energy

import (
	"math"

	"github.com/gehringer/solarboard/pkg/types"
)

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Autoconsumed is the part of production used on site: produced minus
// exported, floored at zero. It is null if either input is null.
func Autoconsumed(produced, exported types.NullFloat) types.NullFloat {
	if !produced.Valid || !exported.Valid {
		return types.Null
	}
	return types.Float(round(math.Max(0, produced.Float64-exported.Float64), 6))
}

// Percent returns part/whole×100 rounded to one decimal, or null when either
// is null or whole is not positive.
func Percent(part, whole types.NullFloat) types.NullFloat {
	if !part.Valid || !whole.Valid || whole.Float64 <= 0 {
		return types.Null
	}
	return types.Float(round(part.Float64/whole.Float64*100, 1))
}

// percentOrZero is Percent for aggregate totals, where an empty denominator
// reads as 0%.
func percentOrZero(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return round(part/whole*100, 1)
}
