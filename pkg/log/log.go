package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"github.com/lmittmann/tint"
)

// Output formats for --log-format.
const (
	FormatJSON = "json"
	FormatText = "text"
)

var (
	defaultLogLevel slog.LevelVar
	defaultLogger   = NewLogger(os.Stdout, FormatJSON, &defaultLogLevel)
)

func init() {
	defaultLogLevel.Set(slog.LevelInfo)
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger from the context. If no logger is found, it returns the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a new context with the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func SetDefaultLogLevel(level slog.Level) {
	defaultLogLevel.Set(level)
}

// NewLogger returns a logger writing JSON, or colored text through tint
// when format is FormatText.
func NewLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	if format == FormatText {
		return slog.New(tint.NewHandler(w, &tint.Options{
			AddSource:  true,
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
}

// Config selects the default logger's output.
type Config struct {
	Format string
}

// Configured registers the --log-format flag.
func Configured() *Config {
	c := &Config{Format: FormatJSON}
	format := lflag.String("log-format", FormatJSON, "Log output format (json or text)")

	lflag.Do(func() {
		switch *format {
		case FormatJSON, FormatText:
			c.Format = *format
		default:
			panic(fmt.Sprintf("invalid log-format %q, expected json or text", *format))
		}
	})

	return c
}

// Setup installs the default logger at level. It must be called before any
// goroutine logs.
func (c *Config) Setup(level slog.Level) *slog.Logger {
	SetDefaultLogLevel(level)
	defaultLogger = NewLogger(os.Stdout, c.Format, &defaultLogLevel)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// LLogLevel returns the slog level matching the level lflag configured on
// llog.
func LLogLevel() (slog.Level, error) {
	switch llog.GetLevel() {
	case llog.DebugLevel:
		return slog.LevelDebug, nil
	case llog.InfoLevel:
		return slog.LevelInfo, nil
	case llog.WarnLevel:
		return slog.LevelWarn, nil
	case llog.ErrorLevel:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", llog.GetLevel().String())
	}
}
