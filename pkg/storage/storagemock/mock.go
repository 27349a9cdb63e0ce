package storagemock

import (
	"context"

	"github.com/gehringer/solarboard/pkg/storage"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) UpsertHourlyRecords(ctx context.Context, date string, rows []types.HourlyRecord) error {
	args := m.Called(ctx, date, rows)
	return args.Error(0)
}

func (m *MockDatabase) GetHourlyRecords(ctx context.Context, date string) ([]types.HourlyRecord, error) {
	args := m.Called(ctx, date)
	if rows := args.Get(0); rows != nil {
		return rows.([]types.HourlyRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) UpsertHistoryEntry(ctx context.Context, entry types.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDatabase) GetHistory(ctx context.Context, start, end string) ([]types.HistoryEntry, error) {
	args := m.Called(ctx, start, end)
	if entries := args.Get(0); entries != nil {
		return entries.([]types.HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
