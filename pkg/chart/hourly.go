package chart

import (
	"cmp"
	"slices"

	"github.com/gehringer/solarboard/pkg/energy"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/samber/lo"
)

// Astro fallbacks when no astro record was returned for the day.
const (
	DefaultSunrise   = 6.0
	DefaultSunset    = 18.0
	DefaultSolarNoon = 12.0
)

const (
	colorProduction = "#667eea"
	colorForecast   = "#fbbf24"
	colorSolarNoon  = "#f59e0b"
	colorNight      = "rgba(0, 0, 0, 0.1)"
	colorConsumed   = "#ef4444"
	colorProduced   = "#10b981"
	colorGrid       = "#3b82f6"
	colorZero       = "#333"
)

func sortedByHour(rows []types.HourlyRecord) []types.HourlyRecord {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b types.HourlyRecord) int {
		return cmp.Compare(a.Hour, b.Hour)
	})
	return sorted
}

func hourAxis() Axis {
	return Axis{Title: "Heure de la journée", Min: ptr(0), Max: ptr(23)}
}

// Production charts hourly production against the hourly forecast, with
// night shaded before sunrise and after sunset and a line at solar noon.
func Production(rows []types.HourlyRecord, astro []types.AstroRecord, opts Options) *Chart {
	sorted := sortedByHour(rows)

	sunrise, sunset, noon := DefaultSunrise, DefaultSunset, DefaultSolarNoon
	if len(astro) > 0 {
		sunrise = types.TimeToDecimal(astro[0].Sunrise)
		sunset = types.TimeToDecimal(astro[0].Sunset)
		noon = types.TimeToDecimal(astro[0].SolarNoon)
	}

	c := &Chart{
		Tab:    TabProduction,
		Kind:   KindLine,
		Labels: hourLabels(sorted),
		Series: []Series{
			{
				Label: "Production (kWh)",
				Data:  energy.Hourly(sorted, energy.Produced, opts.TelemetryCumulative),
				Color: colorProduction,
				Fill:  true,
			},
			{
				Label:  "Prévision (kWh)",
				Data:   energy.Hourly(sorted, energy.ForecastCumul, true),
				Color:  colorForecast,
				Dashed: true,
			},
		},
		Annotations: []Annotation{
			{ID: "nightBefore", Type: AnnotationBox, Axis: "x", Min: 0, Max: sunrise, Label: "Nuit", Color: colorNight},
			{ID: "nightAfter", Type: AnnotationBox, Axis: "x", Min: sunset, Max: types.HoursPerDay, Label: "Nuit", Color: colorNight},
			{ID: "solarNoon", Type: AnnotationLine, Axis: "x", Min: noon, Max: noon, Label: "Midi Solaire", Color: colorSolarNoon, Width: 2},
		},
		XAxis: hourAxis(),
		YAxis: Axis{Title: "Production Horaire (kWh)", Min: ptr(0)},
	}
	if len(sorted) > 0 {
		c.UpdatedAt = sorted[len(sorted)-1].Timestamp
	}
	return c
}

// EnergyBalance charts production above zero, consumption below it, and the
// signed net grid flux (export minus import) on the same hourly axis.
func EnergyBalance(rows []types.HourlyRecord, opts Options) *Chart {
	sorted := sortedByHour(rows)
	cumulative := opts.TelemetryCumulative

	produced := energy.Hourly(sorted, energy.Produced, cumulative)
	consumed := lo.Map(energy.Hourly(sorted, energy.Consumed, cumulative), func(v float64, _ int) float64 {
		return -v
	})
	imported := energy.Hourly(sorted, energy.Imported, cumulative)
	exported := energy.Hourly(sorted, energy.Exported, cumulative)
	net := lo.Map(exported, func(e float64, i int) float64 {
		return e - imported[i]
	})

	c := &Chart{
		Tab:    TabEnergy,
		Kind:   KindLine,
		Labels: hourLabels(sorted),
		Series: []Series{
			{Label: "Production", Data: produced, Color: colorProduced, Fill: true},
			{Label: "Consommation", Data: consumed, Color: colorConsumed, Fill: true},
			{Label: "Flux réseau (export - import)", Data: net, Color: colorGrid, Dashed: true},
		},
		Annotations: []Annotation{
			{ID: "zeroLine", Type: AnnotationLine, Axis: "y", Min: 0, Max: 0, Color: colorZero, Width: 3},
		},
		XAxis: hourAxis(),
		YAxis: Axis{Title: "Énergie Horaire (kWh)"},
	}
	if len(sorted) > 0 {
		c.UpdatedAt = sorted[len(sorted)-1].Timestamp
	}
	return c
}
