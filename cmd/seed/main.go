package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/gehringer/solarboard/pkg/energy"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/storage"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Installation used for the synthetic days.
const (
	SolarPeakKWh  = 3.2
	HomeBaseKWh   = 0.4
	ForecastError = 0.25
)

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	cfg := energy.Configured()
	s := storage.Configured()
	span := lflag.Duration("seed-span", 30*24*time.Hour, "How far back to seed days, ending today")
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().In(cfg.Location)
	days := int(*span / (24 * time.Hour))

	for i := days; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		// past days are seeded as complete, today up to the current hour
		at := time.Date(day.Year(), day.Month(), day.Day(), 23, 30, 0, 0, cfg.Location)
		if i == 0 {
			at = now
		}

		src := syntheticDay(rng, at, cfg.TelemetryCumulative)
		rows := energy.BuildRows(at, cfg.Location, src)
		date := cfg.Today(at)
		if err := s.UpsertHourlyRecords(ctx, date, rows); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed hourly records", "error", err)
			os.Exit(1)
		}

		summary := energy.Summarize(rows, cfg.TelemetryCumulative)
		if err := s.UpsertHistoryEntry(ctx, summary); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed history entry", "error", err)
			os.Exit(1)
		}

		fmt.Printf("Seeded %s: autoconsumption %.1f%%, autosufficiency %.1f%%, deviation %+.1f%%\n",
			date, summary.Autoconsumption, summary.Autosufficiency, summary.Deviation)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeded mock data successfully")
}

// syntheticDay builds a source payload with a bell-shaped production curve,
// a household load with morning and evening peaks and a noisy forecast.
func syntheticDay(rng *rand.Rand, at time.Time, cumulative bool) types.SourcePayload {
	date := at.Format(types.DateLayout)
	cloud := 0.4 + rng.Float64()*0.6

	var src types.SourcePayload
	src.Timestamp = at.Format("2006-01-02T15:04:05")

	var produced, consumed, imported, exported float64
	var forecastCumul, forecastDay float64
	for h := 0; h < types.HoursPerDay; h++ {
		solar := 0.0
		if h > 5 && h < 21 {
			dist := math.Abs(float64(h) - 13.5)
			solar = SolarPeakKWh * math.Exp(-(dist*dist)/10.0)
		}
		forecast := solar * (1 + (rng.Float64()*2-1)*ForecastError)
		forecastDay += forecast
		solar *= cloud

		home := HomeBaseKWh + rng.Float64()*0.3
		if h >= 7 && h < 9 {
			home += 0.8
		} else if h >= 18 && h < 22 {
			home += 1.5
		}

		used := math.Min(solar, home)
		hourExport := solar - used
		hourImport := home - used

		if cumulative {
			produced += solar
			consumed += home
			imported += hourImport
			exported += hourExport
		} else {
			produced, consumed, imported, exported = solar, home, hourImport, hourExport
		}
		forecastCumul += forecast

		src.Data.Time = append(src.Data.Time, fmt.Sprintf("%02d", h))
		src.Data.Produced = append(src.Data.Produced, types.Float(round(produced)))
		src.Data.Consumed = append(src.Data.Consumed, types.Float(round(consumed)))
		src.Data.Imported = append(src.Data.Imported, types.Float(round(imported)))
		src.Data.Exported = append(src.Data.Exported, types.Float(round(exported)))
		src.HourlyForecasts = append(src.HourlyForecasts, types.HourForecast{
			Date:        date,
			Time:        fmt.Sprintf("%02d:00", h),
			ForecastKWh: types.Number(round(forecastCumul)),
		})
	}
	src.Forecasts = []types.DayForecast{{Date: date, ForecastKWh: types.Number(round(forecastDay))}}
	return src
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
