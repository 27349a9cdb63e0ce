package energy

import (
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
)

// DefaultTimezone is where the installation is; every "now" comparison uses it.
const DefaultTimezone = "Europe/Paris"

// Config holds the settings shared by everything that reasons about hours
// of the day.
type Config struct {
	// Location resolves the current date and hour. Server-local time is
	// never used.
	Location *time.Location

	// TelemetryCumulative marks produced/consumed/imported/exported as
	// running totals since midnight. When false they are per-hour values.
	// The hourly forecast is always cumulative.
	TelemetryCumulative bool
}

// DefaultConfig returns the configuration used when no flags are set.
func DefaultConfig() *Config {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		panic(fmt.Errorf("failed to load %s location: %w", DefaultTimezone, err))
	}
	return &Config{Location: loc}
}

// Configured registers the energy flags and returns a Config that is filled
// in once flags are parsed.
func Configured() *Config {
	cfg := DefaultConfig()
	tz := lflag.String("timezone", DefaultTimezone, "IANA timezone used to resolve the current date and hour")
	cumulative := lflag.Bool("telemetry-cumulative", false, "Treat telemetry readings as running totals since midnight instead of hourly values")

	lflag.Do(func() {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			panic(fmt.Sprintf("invalid timezone %q: %v", *tz, err))
		}
		cfg.Location = loc
		cfg.TelemetryCumulative = *cumulative
	})

	return cfg
}

// Today returns the date of now in the configured location.
func (c *Config) Today(now time.Time) string {
	return now.In(c.Location).Format(time.DateOnly)
}

// Yesterday returns the day before Today.
func (c *Config) Yesterday(now time.Time) string {
	return now.In(c.Location).AddDate(0, 0, -1).Format(time.DateOnly)
}
