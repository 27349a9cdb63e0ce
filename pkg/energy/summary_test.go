package energy

import (
	"testing"

	"github.com/gehringer/solarboard/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, types.HistoryEntry{}, Summarize(nil, false))
	})

	t.Run("Per Hour", func(t *testing.T) {
		rows := []types.HourlyRecord{
			{Date: "2024-06-15", ForecastDayKWh: 10, ProducedKWh: types.Float(4), ConsumedKWh: types.Float(5), AutoconsumedKWh: types.Float(3)},
			{Date: "2024-06-15", ForecastDayKWh: 10, ProducedKWh: types.Float(4), ConsumedKWh: types.Float(5), AutoconsumedKWh: types.Float(3)},
			{Date: "2024-06-15", ForecastDayKWh: 10},
		}
		got := Summarize(rows, false)
		assert.Equal(t, "2024-06-15", got.Date)
		assert.Equal(t, types.Percentage(75), got.Autoconsumption)
		assert.Equal(t, types.Percentage(60), got.Autosufficiency)
		assert.Equal(t, types.Percentage(-20), got.Deviation)
	})

	t.Run("Cumulative", func(t *testing.T) {
		rows := []types.HourlyRecord{
			{Date: "2024-06-15", ProducedKWh: types.Float(2), ConsumedKWh: types.Float(1), AutoconsumedKWh: types.Float(1)},
			{Date: "2024-06-15", ProducedKWh: types.Float(8), ConsumedKWh: types.Float(4), AutoconsumedKWh: types.Float(2)},
			{Date: "2024-06-15"},
		}
		totals := DayTotals(rows, true)
		assert.Equal(t, Totals{ProducedKWh: 8, ConsumedKWh: 4, AutoconsumedKWh: 2}, totals)

		got := Summarize(rows, true)
		assert.Equal(t, types.Percentage(25), got.Autoconsumption)
		assert.Equal(t, types.Percentage(50), got.Autosufficiency)
		assert.Equal(t, types.Percentage(0), got.Deviation, "no forecast")
	})

	t.Run("No Production", func(t *testing.T) {
		rows := []types.HourlyRecord{{Date: "2024-01-01", ForecastDayKWh: 5, ProducedKWh: types.Float(0), ConsumedKWh: types.Float(0)}}
		got := Summarize(rows, false)
		assert.Equal(t, types.Percentage(0), got.Autoconsumption)
		assert.Equal(t, types.Percentage(0), got.Autosufficiency)
		assert.Equal(t, types.Percentage(-100), got.Deviation)
	})
}
