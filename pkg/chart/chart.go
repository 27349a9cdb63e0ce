// Package chart builds the data models the dashboard draws. A Chart carries
// everything a client-side renderer needs (labels, series, colors and
// annotations) so the browser never reshapes upstream data itself.
package chart

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/gehringer/solarboard/pkg/types"
)

// Tab names one of the dashboard tabs. Each tab owns exactly one chart.
type Tab string

const (
	// TabProduction is hourly production against the forecast.
	TabProduction Tab = "production"
	// TabEnergy is the hourly energy balance.
	TabEnergy Tab = "energy"
	// TabBalance is the 30-day autonomy chart.
	TabBalance Tab = "balance"
	// TabSolar is the 30-day forecast accuracy chart.
	TabSolar Tab = "solar"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabProduction, TabEnergy, TabBalance, TabSolar}

// ParseTab returns the Tab named s.
func ParseTab(s string) (Tab, bool) {
	t := Tab(s)
	return t, slices.Contains(Tabs, t)
}

// UsesHistory reports whether the tab is drawn from daily history rather
// than today's hourly rows.
func (t Tab) UsesHistory() bool {
	return t == TabBalance || t == TabSolar
}

// Kind is the chart type.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

// Series is one dataset.
type Series struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
	Color string    `json:"color,omitempty"`
	// Colors overrides Color per data point.
	Colors []string `json:"colors,omitempty"`
	Fill   bool     `json:"fill,omitempty"`
	Dashed bool     `json:"dashed,omitempty"`
}

// AnnotationType is the shape of an Annotation.
type AnnotationType string

const (
	AnnotationLine AnnotationType = "line"
	AnnotationBox  AnnotationType = "box"
)

// Annotation is a line or shaded box drawn over the chart. Min and Max are in
// the units of Axis; a line has Min == Max.
type Annotation struct {
	ID    string         `json:"id"`
	Type  AnnotationType `json:"type"`
	Axis  string         `json:"axis"`
	Min   float64        `json:"min"`
	Max   float64        `json:"max"`
	Label string         `json:"label,omitempty"`
	Color string         `json:"color"`
	Width int            `json:"width,omitempty"`
}

// Axis describes the bounds and title of an axis. Nil bounds are automatic.
type Axis struct {
	Title string   `json:"title,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Chart is a renderable chart model.
type Chart struct {
	Tab         Tab          `json:"tab"`
	Kind        Kind         `json:"kind"`
	Labels      []string     `json:"labels"`
	Series      []Series     `json:"series"`
	Annotations []Annotation `json:"annotations,omitempty"`
	XAxis       Axis         `json:"xAxis"`
	YAxis       Axis         `json:"yAxis"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`

	mu        sync.RWMutex
	destroyed bool
}

// Destroy releases the chart's data. A destroyed chart is never returned by
// a Board again.
func (c *Chart) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Series = nil
	c.Labels = nil
	c.Annotations = nil
	c.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (c *Chart) Destroyed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.destroyed
}

// Snapshot returns a deep copy of the chart that a later Destroy of c does
// not affect.
func (c *Chart) Snapshot() *Chart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := &Chart{
		Tab:         c.Tab,
		Kind:        c.Kind,
		Labels:      slices.Clone(c.Labels),
		Annotations: slices.Clone(c.Annotations),
		XAxis:       c.XAxis,
		YAxis:       c.YAxis,
		UpdatedAt:   c.UpdatedAt,
		destroyed:   c.destroyed,
	}
	if c.Series != nil {
		cp.Series = make([]Series, len(c.Series))
		for i, s := range c.Series {
			s.Data = slices.Clone(s.Data)
			s.Colors = slices.Clone(s.Colors)
			cp.Series[i] = s
		}
	}
	return cp
}

type chartJSON struct {
	Tab         Tab          `json:"tab"`
	Kind        Kind         `json:"kind"`
	Labels      []string     `json:"labels"`
	Series      []Series     `json:"series"`
	Annotations []Annotation `json:"annotations,omitempty"`
	XAxis       Axis         `json:"xAxis"`
	YAxis       Axis         `json:"yAxis"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
}

// MarshalJSON encodes the chart. It is safe to call while another goroutine
// destroys the chart.
func (c *Chart) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(chartJSON{
		Tab:         c.Tab,
		Kind:        c.Kind,
		Labels:      c.Labels,
		Series:      c.Series,
		Annotations: c.Annotations,
		XAxis:       c.XAxis,
		YAxis:       c.YAxis,
		UpdatedAt:   c.UpdatedAt,
	})
}

// Options tune how hourly rows are charted.
type Options struct {
	// TelemetryCumulative decumulates produced/consumed/imported/exported
	// before charting. The forecast is always decumulated.
	TelemetryCumulative bool
}

// Data is everything a tab may be built from.
type Data struct {
	Hourly  []types.HourlyRecord `json:"hourly,omitempty"`
	Astro   []types.AstroRecord  `json:"astro,omitempty"`
	History []types.HistoryEntry `json:"history,omitempty"`
}

// Build creates the chart for tab from d.
func Build(tab Tab, d Data, opts Options) (*Chart, error) {
	switch tab {
	case TabProduction:
		return Production(d.Hourly, d.Astro, opts), nil
	case TabEnergy:
		return EnergyBalance(d.Hourly, opts), nil
	case TabBalance:
		return Autonomy(d.History), nil
	case TabSolar:
		return Accuracy(d.History), nil
	default:
		return nil, fmt.Errorf("unknown tab: %q", tab)
	}
}

func ptr(v float64) *float64 {
	return &v
}

func hourLabels(rows []types.HourlyRecord) []string {
	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = strconv.Itoa(r.Hour)
	}
	return labels
}
