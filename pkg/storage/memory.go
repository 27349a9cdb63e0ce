package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gehringer/solarboard/pkg/types"
)

// Memory is a Database kept in process memory. It is meant for local
// development and tests; nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	hourly  map[string][]types.HourlyRecord
	history map[string]types.HistoryEntry
}

var _ Database = (*Memory)(nil)

// NewMemory returns an empty Memory database.
func NewMemory() *Memory {
	return &Memory{
		hourly:  make(map[string][]types.HourlyRecord),
		history: make(map[string]types.HistoryEntry),
	}
}

func (m *Memory) UpsertHourlyRecords(ctx context.Context, date string, rows []types.HourlyRecord) error {
	if date == "" {
		return fmt.Errorf("date cannot be empty")
	}
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b types.HourlyRecord) int {
		return cmp.Compare(a.Hour, b.Hour)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hourly[date] = sorted
	return nil
}

func (m *Memory) GetHourlyRecords(ctx context.Context, date string) ([]types.HourlyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.hourly[date]
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("%w: hourly records for %s", ErrNotFound, date)
	}
	return slices.Clone(rows), nil
}

func (m *Memory) UpsertHistoryEntry(ctx context.Context, entry types.HistoryEntry) error {
	if entry.Date == "" {
		return fmt.Errorf("history entry missing date")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[entry.Date] = entry
	return nil
}

func (m *Memory) GetHistory(ctx context.Context, start, end string) ([]types.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.HistoryEntry
	for date, e := range m.history {
		if date >= start && date <= end {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b types.HistoryEntry) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
