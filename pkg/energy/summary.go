package energy

import (
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/samber/lo"
)

// Totals are the day's energy figures up to the last reported hour.
type Totals struct {
	ProducedKWh     float64 `json:"produced_kwh"`
	ConsumedKWh     float64 `json:"consumed_kwh"`
	AutoconsumedKWh float64 `json:"autoconsumed_kwh"`
	ForecastDayKWh  float64 `json:"forecast_day_kwh"`
}

// Total adds up a field over the non-null hours. For cumulative telemetry the
// last non-null value already is the total.
func Total(rows []types.HourlyRecord, f Field, cumulative bool) float64 {
	valid := lo.FilterMap(rows, func(r types.HourlyRecord, _ int) (float64, bool) {
		v := f(r)
		return v.Float64, v.Valid
	})
	if len(valid) == 0 {
		return 0
	}
	if cumulative {
		return valid[len(valid)-1]
	}
	return lo.Sum(valid)
}

// DayTotals computes Totals for one day of rows.
func DayTotals(rows []types.HourlyRecord, cumulative bool) Totals {
	t := Totals{
		ProducedKWh:     Total(rows, Produced, cumulative),
		ConsumedKWh:     Total(rows, Consumed, cumulative),
		AutoconsumedKWh: Total(rows, autoconsumed, cumulative),
	}
	if len(rows) > 0 {
		t.ForecastDayKWh = float64(rows[0].ForecastDayKWh)
	}
	return t
}

var autoconsumed Field = func(r types.HourlyRecord) types.NullFloat { return r.AutoconsumedKWh }

// Summarize reduces a day of rows to the history entry the dashboard charts
// over the last 30 days.
func Summarize(rows []types.HourlyRecord, cumulative bool) types.HistoryEntry {
	if len(rows) == 0 {
		return types.HistoryEntry{}
	}
	t := DayTotals(rows, cumulative)
	return types.HistoryEntry{
		Date:            rows[0].Date,
		Autoconsumption: types.Percentage(percentOrZero(t.AutoconsumedKWh, t.ProducedKWh)),
		Autosufficiency: types.Percentage(percentOrZero(t.AutoconsumedKWh, t.ConsumedKWh)),
		Deviation:       types.Percentage(deviation(t.ProducedKWh, t.ForecastDayKWh)),
	}
}

func deviation(actual, forecast float64) float64 {
	if forecast <= 0 {
		return 0
	}
	return round((actual-forecast)/forecast*100, 1)
}
