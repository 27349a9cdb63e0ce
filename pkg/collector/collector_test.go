package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gehringer/solarboard/pkg/energy"
	"github.com/gehringer/solarboard/pkg/metrics"
	"github.com/gehringer/solarboard/pkg/storage"
	"github.com/gehringer/solarboard/pkg/storage/storagemock"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	payload types.SourcePayload
	err     error
	dates   []string
	calls   atomic.Int32
}

func (f *fakeSource) Source(ctx context.Context, date string) (types.SourcePayload, error) {
	f.calls.Add(1)
	f.dates = append(f.dates, date)
	return f.payload, f.err
}

func payload() types.SourcePayload {
	src := types.SourcePayload{
		Timestamp: "2024-06-15T12:05:00",
		Forecasts: []types.DayForecast{{Date: "2024-06-15", ForecastKWh: 10}},
	}
	for h := 0; h <= 12; h++ {
		src.Data.Time = append(src.Data.Time, fmt.Sprintf("%02d", h))
		src.Data.Produced = append(src.Data.Produced, types.Float(1))
		src.Data.Consumed = append(src.Data.Consumed, types.Float(2))
		src.Data.Imported = append(src.Data.Imported, types.Float(1.5))
		src.Data.Exported = append(src.Data.Exported, types.Float(0.5))
	}
	return src
}

func TestRun(t *testing.T) {
	cfg := energy.DefaultConfig()
	// 12:05 in Paris
	now := time.Date(2024, 6, 15, 10, 5, 0, 0, time.UTC)

	t.Run("Stores Rows And Summary", func(t *testing.T) {
		src := &fakeSource{payload: payload()}
		db := &storagemock.MockDatabase{}
		db.On("UpsertHourlyRecords", mock.Anything, "2024-06-15", mock.MatchedBy(func(rows []types.HourlyRecord) bool {
			return len(rows) == types.HoursPerDay && rows[12].ProducedKWh.Valid && !rows[13].ProducedKWh.Valid
		})).Return(nil)
		// 13 hours of 1 kWh produced against a 10 kWh forecast
		db.On("UpsertHistoryEntry", mock.Anything, types.HistoryEntry{
			Date:            "2024-06-15",
			Autoconsumption: 50,
			Autosufficiency: 25,
			Deviation:       30,
		}).Return(nil)

		m := metrics.New()
		c := New(src, db, cfg, m)
		res, err := c.Run(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-15", res.Date)
		assert.Len(t, res.Rows, types.HoursPerDay)
		assert.Equal(t, types.Percentage(30), res.Summary.Deviation)
		assert.Equal(t, []string{"2024-06-15"}, src.dates)
		db.AssertExpectations(t)

		assert.Equal(t, 1, mustCount(t, m))
	})

	t.Run("Source Error", func(t *testing.T) {
		src := &fakeSource{err: errors.New("boom")}
		db := &storagemock.MockDatabase{}

		c := New(src, db, cfg, nil)
		_, err := c.Run(context.Background(), now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		db.AssertNotCalled(t, "UpsertHourlyRecords", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Storage Error", func(t *testing.T) {
		src := &fakeSource{payload: payload()}
		db := &storagemock.MockDatabase{}
		db.On("UpsertHourlyRecords", mock.Anything, "2024-06-15", mock.Anything).Return(errors.New("unavailable"))

		c := New(src, db, cfg, nil)
		_, err := c.Run(context.Background(), now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store hourly records")
		db.AssertNotCalled(t, "UpsertHistoryEntry", mock.Anything, mock.Anything)
	})

	t.Run("History Error", func(t *testing.T) {
		src := &fakeSource{payload: payload()}
		db := &storagemock.MockDatabase{}
		db.On("UpsertHourlyRecords", mock.Anything, "2024-06-15", mock.Anything).Return(nil)
		db.On("UpsertHistoryEntry", mock.Anything, mock.Anything).Return(errors.New("unavailable"))

		c := New(src, db, cfg, nil)
		_, err := c.Run(context.Background(), now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store history entry")
	})
}

func TestSchedule(t *testing.T) {
	cfg := energy.DefaultConfig()
	src := &fakeSource{payload: payload()}
	db := storage.NewMemory()
	c := New(src, db, cfg, nil)

	t.Run("Unscheduled", func(t *testing.T) {
		assert.False(t, c.Scheduled())
		assert.NoError(t, c.Schedule(context.Background()))
	})

	t.Run("Runs Until Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		now := func() time.Time { return time.Date(2024, 6, 15, 10, 5, 0, 0, time.UTC) }

		done := make(chan error, 1)
		go func() { done <- c.schedule(ctx, "@every 1s", now) }()

		assert.Eventually(t, func() bool { return src.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("schedule did not stop")
		}

		rows, err := db.GetHourlyRecords(context.Background(), "2024-06-15")
		require.NoError(t, err)
		assert.Len(t, rows, types.HoursPerDay)
	})

	t.Run("Invalid Spec", func(t *testing.T) {
		err := c.schedule(context.Background(), "every tuesday", time.Now)
		assert.Error(t, err)
	})
}

func mustCount(t *testing.T, m *metrics.Metrics) int {
	t.Helper()
	n, err := testutil.GatherAndCount(m.Registry(), "solarboard_snapshot_runs_total")
	require.NoError(t, err)
	return n
}
