// Package dashboard loads the data behind each dashboard tab, caches it per
// tab and renders the tab's chart.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gehringer/solarboard/pkg/chart"
	"github.com/gehringer/solarboard/pkg/energy"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/gehringer/solarboard/pkg/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a whole tab load, fan-out included.
const DefaultTimeout = 15 * time.Second

// ErrUnknownTab is returned for a tab name that is not one of chart.Tabs.
var ErrUnknownTab = errors.New("unknown tab")

// Fetcher reads the upstream data the tabs are built from.
type Fetcher interface {
	Hourly(ctx context.Context, date string) ([]types.HourlyRecord, error)
	Astro(ctx context.Context, date string) ([]types.AstroRecord, error)
	History(ctx context.Context, date string) ([]types.HistoryEntry, error)
}

// Result is a loaded tab.
type Result struct {
	Tab    chart.Tab
	Date   string
	Data   chart.Data
	Cached bool
}

// Loader loads tabs through a Cache. Concurrent loads of the same data share
// one upstream call, and a failed load leaves the cache as it was so the
// next request retries.
type Loader struct {
	fetcher Fetcher
	cache   *Cache
	board   *chart.Board
	cfg     *energy.Config
	metrics *metrics.Metrics

	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// NewLoader returns a Loader with its own Cache and Board.
func NewLoader(f Fetcher, cfg *energy.Config, m *metrics.Metrics) *Loader {
	return &Loader{
		fetcher: f,
		cache:   NewCache(),
		board:   chart.NewBoard(),
		cfg:     cfg,
		metrics: m,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

// Cache returns the loader's cache.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// dateFor returns the day a tab is loaded for: today for hourly tabs and
// yesterday, the last complete day, for history tabs.
func (l *Loader) dateFor(tab chart.Tab) string {
	now := l.now()
	if tab.UsesHistory() {
		return l.cfg.Yesterday(now)
	}
	return l.cfg.Today(now)
}

// Load returns the data for tab, from the cache when it holds an entry for
// the current day.
func (l *Loader) Load(ctx context.Context, tab chart.Tab) (Result, error) {
	if _, ok := chart.ParseTab(string(tab)); !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	date := l.dateFor(tab)

	if e, ok := l.cache.Get(tab); ok && e.Date == date {
		log.Ctx(ctx).DebugContext(ctx, "using cached tab data", slog.String("tab", string(tab)))
		l.metrics.ObserveChartLoad(string(tab), true)
		return Result{Tab: tab, Date: date, Data: e.Data, Cached: true}, nil
	}

	key := string(tab)
	if tab.UsesHistory() {
		key = "history"
	}
	v, err, _ := l.group.Do(key+"/"+date, func() (any, error) {
		// shared by every waiter, so detached from the caller's cancellation
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.fetch(fctx, tab, date)
	})
	if err != nil {
		log.Ctx(ctx).ErrorContext(
			ctx,
			"failed to load tab",
			slog.String("tab", string(tab)),
			slog.String("date", date),
			slog.Any("error", err),
		)
		return Result{}, fmt.Errorf("failed to load %s tab: %w", tab, err)
	}
	l.metrics.ObserveChartLoad(string(tab), false)
	return Result{Tab: tab, Date: date, Data: v.(chart.Data)}, nil
}

func (l *Loader) fetch(ctx context.Context, tab chart.Tab, date string) (chart.Data, error) {
	var d chart.Data
	switch tab {
	case chart.TabProduction:
		eg, ectx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			rows, err := l.fetcher.Hourly(ectx, date)
			d.Hourly = rows
			return err
		})
		eg.Go(func() error {
			astro, err := l.fetcher.Astro(ectx, date)
			d.Astro = astro
			return err
		})
		if err := eg.Wait(); err != nil {
			return chart.Data{}, err
		}
	case chart.TabEnergy:
		rows, err := l.fetcher.Hourly(ctx, date)
		if err != nil {
			return chart.Data{}, err
		}
		d.Hourly = rows
	case chart.TabBalance, chart.TabSolar:
		// the other history tab may already hold this day's history
		shared := false
		for _, other := range []chart.Tab{chart.TabBalance, chart.TabSolar} {
			if e, ok := l.cache.Get(other); ok && e.Date == date {
				d, shared = e.Data, true
				break
			}
		}
		if !shared {
			history, err := l.fetcher.History(ctx, date)
			if err != nil {
				return chart.Data{}, err
			}
			d.History = history
		}
	}

	e := Entry{Date: date, Data: d, LoadedAt: l.now()}
	if tab.UsesHistory() {
		l.cache.Set(chart.TabBalance, e)
		l.cache.Set(chart.TabSolar, e)
	} else {
		l.cache.Set(tab, e)
	}
	return d, nil
}

// Invalidate drops the cached data and chart of tab. The two history tabs
// share their data, so invalidating one invalidates both.
func (l *Loader) Invalidate(tab chart.Tab) error {
	if _, ok := chart.ParseTab(string(tab)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	if tab.UsesHistory() {
		l.cache.Invalidate(chart.TabBalance)
		l.cache.Invalidate(chart.TabSolar)
		l.board.Clear(chart.TabBalance, chart.TabSolar)
	} else {
		l.cache.Invalidate(tab)
		l.board.Clear(tab)
	}
	return nil
}

// Chart loads tab and rebuilds its chart, destroying the previous one. The
// returned chart is a copy the caller owns.
func (l *Loader) Chart(ctx context.Context, tab chart.Tab) (*chart.Chart, Result, error) {
	res, err := l.Load(ctx, tab)
	if err != nil {
		return nil, Result{}, err
	}
	opts := chart.Options{TelemetryCumulative: l.cfg.TelemetryCumulative}
	c, err := l.board.Render(tab, func() (*chart.Chart, error) {
		return chart.Build(tab, res.Data, opts)
	})
	if err != nil {
		return nil, Result{}, err
	}
	return c, res, nil
}
