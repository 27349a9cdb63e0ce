package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gehringer/solarboard/pkg/apsystems"
	"github.com/gehringer/solarboard/pkg/collector"
	"github.com/gehringer/solarboard/pkg/dashboard"
	"github.com/gehringer/solarboard/pkg/energy"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/gehringer/solarboard/pkg/server"
	"github.com/gehringer/solarboard/pkg/storage"
	"github.com/gehringer/solarboard/pkg/webhook"

	"github.com/levenlabs/go-lflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	// init packages
	logCfg := log.Configured()
	m := metrics.New()
	cfg := energy.Configured()
	wh := webhook.Configured(m)
	ap := apsystems.Configured(m)
	s := storage.Configured()
	col := collector.Configured(wh, s, cfg, m)

	// init server
	srv := server.Configured(server.Deps{
		Energy:    cfg,
		Webhook:   wh,
		APSystems: ap,
		Loader:    dashboard.NewLoader(wh, cfg, m),
		Collector: col,
		Storage:   s,
		Metrics:   m,
	})

	// parse flags
	lflag.Configure()

	// lflag sets llog's level, slog has to follow it
	level, err := log.LLogLevel()
	if err != nil {
		panic(err)
	}
	logCfg.Setup(level)
	slog.Debug("logger configured", slog.String("level", level.String()), slog.String("format", logCfg.Format))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	if col.Scheduled() && !wh.HasSource() {
		log.Ctx(ctx).ErrorContext(ctx, "snapshot-cron requires webhook-source-url")
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if col.Scheduled() {
		g.Go(func() error {
			return col.Schedule(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
