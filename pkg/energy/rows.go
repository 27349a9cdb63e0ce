package energy

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gehringer/solarboard/pkg/types"
	"github.com/samber/lo"
)

// timestampLayout matches the local timestamp the data table has always used.
const timestampLayout = "2006-01-02T15:04:05"

// BuildRows merges telemetry and forecasts into exactly 24 HourlyRecords for
// the date of now in loc, ordered by hour.
//
// Readings are only filled for hours at or before the current hour that have
// a matching entry in the telemetry time array. Every other hour has all raw
// and derived readings null.
func BuildRows(now time.Time, loc *time.Location, src types.SourcePayload) []types.HourlyRecord {
	local := now.In(loc)
	currentDate := local.Format(types.DateLayout)
	currentHour := local.Hour()

	var forecastDay types.Number
	if f, ok := lo.Find(src.Forecasts, func(f types.DayForecast) bool {
		return f.Date == currentDate
	}); ok {
		forecastDay = f.ForecastKWh
	}

	todays := lo.Filter(src.HourlyForecasts, func(f types.HourForecast, _ int) bool {
		return f.Date == currentDate
	})

	timestamp := src.Timestamp
	if timestamp == "" {
		timestamp = local.Format(timestampLayout)
	}

	rows := make([]types.HourlyRecord, 0, types.HoursPerDay)
	for hour := 0; hour < types.HoursPerDay; hour++ {
		row := types.HourlyRecord{
			Timestamp:      timestamp,
			Date:           currentDate,
			Hour:           hour,
			ForecastDayKWh: forecastDay,
		}
		if f, ok := lo.Find(todays, func(f types.HourForecast) bool {
			h, ok := forecastHour(f.Time)
			return ok && h == hour
		}); ok {
			row.ForecastHourCumulKWh = f.ForecastKWh
		}

		idx := slices.Index(src.Data.Time, fmt.Sprintf("%02d", hour))
		if idx != -1 && hour <= currentHour {
			fillReadings(&row, src.Data, idx)
		}
		rows = append(rows, row)
	}
	return rows
}

func fillReadings(row *types.HourlyRecord, t types.Telemetry, idx int) {
	row.ProducedKWh = readingAt(t.Produced, idx)
	row.ConsumedKWh = readingAt(t.Consumed, idx)
	row.ImportedKWh = readingAt(t.Imported, idx)
	row.ExportedKWh = readingAt(t.Exported, idx)

	row.AutoconsumedKWh = Autoconsumed(row.ProducedKWh, row.ExportedKWh)
	row.AutosufficiencyPct = Percent(row.AutoconsumedKWh, row.ConsumedKWh)
	row.AutoconsumptionPct = Percent(row.AutoconsumedKWh, row.ProducedKWh)
}

func readingAt(arr []types.NullFloat, idx int) types.NullFloat {
	if idx < 0 || idx >= len(arr) {
		return types.Null
	}
	return arr[idx]
}

// forecastHour reads the leading HH of a forecast time such as "07:00".
func forecastHour(s string) (int, bool) {
	head, _, _ := strings.Cut(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, false
	}
	return h, true
}
