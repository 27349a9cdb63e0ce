package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gehringer/solarboard/pkg/apsystems"
	"github.com/gehringer/solarboard/pkg/chart"
	"github.com/gehringer/solarboard/pkg/collector"
	"github.com/gehringer/solarboard/pkg/dashboard"
	"github.com/gehringer/solarboard/pkg/energy"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/gehringer/solarboard/pkg/storage"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// DataFetcher relays a solar-data request to the webhook for its type.
type DataFetcher interface {
	Fetch(ctx context.Context, t types.DataType, date string) ([]json.RawMessage, error)
}

// Relay sends a signed request to the APsystems API.
type Relay interface {
	Do(ctx context.Context, creds apsystems.Credentials, endpoint string) (json.RawMessage, error)
}

// ChartLoader builds dashboard charts from cached or freshly loaded data.
type ChartLoader interface {
	Chart(ctx context.Context, tab chart.Tab) (*chart.Chart, dashboard.Result, error)
	Invalidate(tab chart.Tab) error
}

// Snapshotter stores a snapshot of the day's energy.
type Snapshotter interface {
	Run(ctx context.Context, now time.Time) (collector.Result, error)
}

// Deps are the components the server exposes over HTTP.
type Deps struct {
	Energy    *energy.Config
	Webhook   DataFetcher
	APSystems Relay
	Loader    ChartLoader
	Collector Snapshotter
	Storage   storage.Database
	Metrics   *metrics.Metrics
}

// Server serves the proxy functions, the dashboard chart API and the stored
// energy rows.
type Server struct {
	cfg       *energy.Config
	webhook   DataFetcher
	apsystems Relay
	loader    ChartLoader
	collector Snapshotter
	storage   storage.Database
	metrics   *metrics.Metrics

	listenAddr       string
	httpServer       *http.Server
	serverName       string
	webCacheDuration time.Duration
	now              func() time.Time

	updateSpecificAudience string
	updateSpecificEmail    string
	tokenValidator         tokenValidator
}

// New returns a Server for d listening on listenAddr.
func New(d Deps, listenAddr string) *Server {
	s := &Server{
		cfg:        d.Energy,
		webhook:    d.Webhook,
		apsystems:  d.APSystems,
		loader:     d.Loader,
		collector:  d.Collector,
		storage:    d.Storage,
		metrics:    d.Metrics,
		listenAddr: listenAddr,
		serverName: "solarboard",
		now:        time.Now,
	}
	if s.cfg == nil {
		s.cfg = energy.DefaultConfig()
	}
	return s
}

// Configured initializes the Server with dependencies and registers its
// flags.
func Configured(d Deps) *Server {
	srv := New(d, "")
	if revision := os.Getenv("K_REVISION"); revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	webCacheDuration := lflag.Duration("web-cache-duration", 0, "Duration clients may cache responses about past days (e.g. 1h). 0 means no cache.")
	updateSpecificAudience := lflag.String("update-specific-audience", "", "Google ID token audience required for /api/update. Empty leaves it open.")
	updateSpecificEmail := lflag.String("update-specific-email", "", "email the /api/update ID token must be issued for")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.webCacheDuration = *webCacheDuration

		if *updateSpecificAudience != "" {
			if *updateSpecificEmail == "" {
				panic("update-specific-email is required with update-specific-audience")
			}
			validator, err := newGoogleValidator(context.Background(), *updateSpecificAudience)
			if err != nil {
				log.Ctx(context.Background()).Error("failed to configure update auth", slog.Any("error", err))
				os.Exit(1)
			}
			srv.updateSpecificAudience = *updateSpecificAudience
			srv.updateSpecificEmail = *updateSpecificEmail
			srv.tokenValidator = validator
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/charts/{tab}", s.handleGetChart)
	apiMux.HandleFunc("DELETE /api/charts/{tab}", s.handleDeleteChart)
	apiMux.HandleFunc("GET /api/energy/hourly", s.handleHourly)
	apiMux.HandleFunc("GET /api/energy/hourly.xlsx", s.handleHourlyXLSX)
	apiMux.HandleFunc("GET /api/energy/history", s.handleHistory)
	apiMux.Handle("POST /api/update", s.updateAuthMiddleware(http.HandlerFunc(s.handleUpdate)))

	mux := http.NewServeMux()
	mux.Handle("/api/", s.metrics.InstrumentHandler("api", apiMux))
	for _, prefix := range []string{"", "/.netlify/functions"} {
		mux.Handle(prefix+"/solar-data", s.metrics.InstrumentHandler("solar-data", http.HandlerFunc(s.handleSolarData)))
		mux.Handle(prefix+"/apsystems", s.metrics.InstrumentHandler("apsystems", http.HandlerFunc(s.handleAPSystems)))
	}
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an
// error occurs. It shuts down gracefully when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) writeJSONError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, errorResponse{
		Error:     msg,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

// writeError logs err and writes it with the status its kind maps to.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Ctx(ctx).ErrorContext(ctx, msg, slog.Int("status", code), slog.Any("error", err))
	} else {
		log.Ctx(ctx).DebugContext(ctx, msg, slog.Int("status", code), slog.Any("error", err))
	}
	s.writeJSONError(w, err.Error(), code)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// cachePast lets clients cache a response about days that are over.
func (s *Server) cachePast(w http.ResponseWriter, lastDate string) {
	if s.webCacheDuration <= 0 || lastDate >= s.cfg.Today(s.now()) {
		w.Header().Set("Cache-Control", "no-cache")
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.webCacheDuration.Seconds())))
}
