// Package collector takes snapshots of the day's energy: it pulls the
// combined telemetry and forecast payload, builds the 24 hourly rows,
// summarizes the day and stores both.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gehringer/solarboard/pkg/energy"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/gehringer/solarboard/pkg/storage"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/levenlabs/go-lflag"
	"github.com/robfig/cron/v3"
)

// Source returns the payload rows are built from.
type Source interface {
	Source(ctx context.Context, date string) (types.SourcePayload, error)
}

// Result is what one snapshot stored.
type Result struct {
	Date    string               `json:"date"`
	Rows    []types.HourlyRecord `json:"rows"`
	Summary types.HistoryEntry   `json:"summary"`
}

// Collector runs snapshots. Runs never overlap.
type Collector struct {
	source  Source
	db      storage.Database
	cfg     *energy.Config
	metrics *metrics.Metrics

	cronSpec string
	mu       sync.Mutex
}

// New returns a Collector without a schedule.
func New(src Source, db storage.Database, cfg *energy.Config, m *metrics.Metrics) *Collector {
	return &Collector{source: src, db: db, cfg: cfg, metrics: m}
}

// Configured registers the snapshot flags.
func Configured(src Source, db storage.Database, cfg *energy.Config, m *metrics.Metrics) *Collector {
	c := New(src, db, cfg, m)
	spec := lflag.String("snapshot-cron", "", "Cron schedule (in --timezone) for snapshots, e.g. \"5 * * * *\". Empty disables scheduling")

	lflag.Do(func() {
		c.cronSpec = *spec
		if c.cronSpec == "" {
			return
		}
		if _, err := cron.ParseStandard(c.cronSpec); err != nil {
			panic(fmt.Sprintf("invalid snapshot-cron %q: %v", c.cronSpec, err))
		}
	})

	return c
}

// Run takes one snapshot for the day of now.
func (c *Collector) Run(ctx context.Context, now time.Time) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.run(ctx, now)
	c.metrics.ObserveSnapshot(now, err)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "snapshot failed", slog.Any("error", err))
		return Result{}, err
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"snapshot stored",
		slog.String("date", res.Date),
		slog.Int("rows", len(res.Rows)),
		slog.Float64("autoconsumption", float64(res.Summary.Autoconsumption)),
		slog.Float64("deviation", float64(res.Summary.Deviation)),
	)
	return res, nil
}

func (c *Collector) run(ctx context.Context, now time.Time) (Result, error) {
	date := c.cfg.Today(now)
	payload, err := c.source.Source(ctx, date)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get source payload: %w", err)
	}

	rows := energy.BuildRows(now, c.cfg.Location, payload)
	if err := c.db.UpsertHourlyRecords(ctx, date, rows); err != nil {
		return Result{}, fmt.Errorf("failed to store hourly records: %w", err)
	}

	summary := energy.Summarize(rows, c.cfg.TelemetryCumulative)
	if err := c.db.UpsertHistoryEntry(ctx, summary); err != nil {
		return Result{}, fmt.Errorf("failed to store history entry: %w", err)
	}

	return Result{Date: date, Rows: rows, Summary: summary}, nil
}

// Scheduled reports whether a cron schedule is configured.
func (c *Collector) Scheduled() bool {
	return c.cronSpec != ""
}

// Schedule runs a snapshot on every tick of the configured schedule until
// ctx is done. It returns immediately when no schedule is configured.
func (c *Collector) Schedule(ctx context.Context) error {
	if c.cronSpec == "" {
		return nil
	}
	return c.schedule(ctx, c.cronSpec, time.Now)
}

func (c *Collector) schedule(ctx context.Context, spec string, now func() time.Time) error {
	cr := cron.New()
	_, err := cr.AddFunc("CRON_TZ="+c.cfg.Location.String()+" "+spec, func() {
		// errors are logged and counted by Run
		_, _ = c.Run(ctx, now())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule snapshots: %w", err)
	}

	log.Ctx(ctx).InfoContext(ctx, "scheduling snapshots", slog.String("spec", spec), slog.String("timezone", c.cfg.Location.String()))
	cr.Start()
	<-ctx.Done()
	<-cr.Stop().Done()

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
