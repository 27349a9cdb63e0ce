package chart

import (
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/samber/lo"
)

// HistoryWindow is how many days the history charts show.
const HistoryWindow = 30

const (
	colorAutoconsumption = "#eab308"
	colorAutosufficiency = "#3b82f6"
	colorAhead           = "#22c55e"
	colorBehind          = "#ef4444"
)

// recent returns the last HistoryWindow entries, oldest first.
func recent(history []types.HistoryEntry) []types.HistoryEntry {
	if len(history) <= HistoryWindow {
		return history
	}
	return history[len(history)-HistoryWindow:]
}

func dayLabels(history []types.HistoryEntry) []string {
	return lo.Map(history, func(h types.HistoryEntry, _ int) string {
		return types.FormatDateDDMM(h.Date)
	})
}

// Autonomy charts self-consumption and self-sufficiency for the last 30 days.
func Autonomy(history []types.HistoryEntry) *Chart {
	days := recent(history)
	return &Chart{
		Tab:    TabBalance,
		Kind:   KindBar,
		Labels: dayLabels(days),
		Series: []Series{
			{
				Label: types.HistoryAutoconsumptionKey,
				Data: lo.Map(days, func(h types.HistoryEntry, _ int) float64 {
					return float64(h.Autoconsumption)
				}),
				Color: colorAutoconsumption,
			},
			{
				Label: types.HistoryAutosufficiencyKey,
				Data: lo.Map(days, func(h types.HistoryEntry, _ int) float64 {
					return float64(h.Autosufficiency)
				}),
				Color: colorAutosufficiency,
			},
		},
		YAxis: Axis{Title: "Pourcentage (%)", Min: ptr(0), Max: ptr(100)},
	}
}

// Accuracy charts the forecast deviation for the last 30 days. Days at or
// above the forecast are green, days below it red.
func Accuracy(history []types.HistoryEntry) *Chart {
	days := recent(history)
	deviation := lo.Map(days, func(h types.HistoryEntry, _ int) float64 {
		return float64(h.Deviation)
	})
	colors := lo.Map(deviation, func(v float64, _ int) string {
		if v >= 0 {
			return colorAhead
		}
		return colorBehind
	})
	return &Chart{
		Tab:    TabSolar,
		Kind:   KindBar,
		Labels: dayLabels(days),
		Series: []Series{
			{Label: "Écart Prévision vs Réel (%)", Data: deviation, Colors: colors},
		},
		Annotations: []Annotation{
			{ID: "zeroLine", Type: AnnotationLine, Axis: "y", Min: 0, Max: 0, Color: colorZero, Width: 1},
		},
		YAxis: Axis{Title: types.HistoryDeviationKey},
	}
}
