package storage

import (
	"context"
	"errors"

	"github.com/gehringer/solarboard/pkg/types"
)

// ErrNotFound is returned when no record exists for the requested date.
var ErrNotFound = errors.New("not found")

// Database persists the hourly rows and daily history built by the
// collector.
type Database interface {
	// Hourly rows
	// UpsertHourlyRecords replaces the rows stored for date.
	UpsertHourlyRecords(ctx context.Context, date string, rows []types.HourlyRecord) error
	// GetHourlyRecords returns the rows for date ordered by hour, or
	// ErrNotFound.
	GetHourlyRecords(ctx context.Context, date string) ([]types.HourlyRecord, error)

	// History
	UpsertHistoryEntry(ctx context.Context, entry types.HistoryEntry) error
	// GetHistory returns the entries dated start through end inclusive,
	// oldest first.
	GetHistory(ctx context.Context, start, end string) ([]types.HistoryEntry, error)

	// Lifecycle
	Close() error
}
