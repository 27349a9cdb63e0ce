package energy

import (
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/samber/lo"
)

// resetTolerance is how far a running total may drop between two hours and
// still be reported as-is. Anything lower is a counter reset.
const resetTolerance = -0.1

// Decumulate turns a running total into per-step deltas. The first delta is
// the first value; a drop below resetTolerance yields 0 rather than a large
// negative delta, and the following step is measured from the post-reset
// value.
func Decumulate(cumulative []float64) []float64 {
	deltas := make([]float64, len(cumulative))
	for i, v := range cumulative {
		if i == 0 {
			deltas[i] = v
			continue
		}
		if d := v - cumulative[i-1]; d > resetTolerance {
			deltas[i] = d
		}
	}
	return deltas
}

// Field selects one reading of an HourlyRecord.
type Field func(types.HourlyRecord) types.NullFloat

var (
	Produced Field = func(r types.HourlyRecord) types.NullFloat { return r.ProducedKWh }
	Consumed Field = func(r types.HourlyRecord) types.NullFloat { return r.ConsumedKWh }
	Imported Field = func(r types.HourlyRecord) types.NullFloat { return r.ImportedKWh }
	Exported Field = func(r types.HourlyRecord) types.NullFloat { return r.ExportedKWh }

	ForecastCumul Field = func(r types.HourlyRecord) types.NullFloat {
		return types.Float(float64(r.ForecastHourCumulKWh))
	}
)

// Series extracts a field from every row for charting. Null readings become
// 0 here: charts draw a zero where the row builder keeps a null.
func Series(rows []types.HourlyRecord, f Field) []float64 {
	return lo.Map(rows, func(r types.HourlyRecord, _ int) float64 {
		return f(r).OrZero()
	})
}

// Hourly returns per-hour values of a field, decumulating it when cumulative
// is set.
func Hourly(rows []types.HourlyRecord, f Field, cumulative bool) []float64 {
	values := Series(rows, f)
	if cumulative {
		return Decumulate(values)
	}
	return values
}
