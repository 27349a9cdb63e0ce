package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gehringer/solarboard/pkg/types"
	"github.com/xuri/excelize/v2"
)

// historyDays is the default span of /api/energy/history.
const historyDays = 30

const hourlySheet = "energy_hourly"

var hourlyColumns = []string{
	"timestamp",
	"date",
	"hour",
	"forecast_day_kwh",
	"forecast_hour_cumul_kwh",
	"produced_kwh",
	"consumed_kwh",
	"imported_kwh",
	"exported_kwh",
	"autoconsumed_kwh",
	"autosufficiency_pct",
	"autoconsumption_pct",
}

// dateParam reads ?date=, defaulting to today.
func (s *Server) dateParam(r *http.Request) (string, error) {
	date := r.URL.Query().Get("date")
	var v validator
	v.date("date", date)
	if err := v.err(); err != nil {
		return "", err
	}
	if date == "" {
		date = s.cfg.Today(s.now())
	}
	return date, nil
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date, err := s.dateParam(r)
	if err != nil {
		s.writeError(ctx, w, "invalid hourly request", err)
		return
	}

	rows, err := s.storage.GetHourlyRecords(ctx, date)
	if err != nil {
		s.writeError(ctx, w, "failed to get hourly records", fmt.Errorf("hourly records for %s: %w", date, err))
		return
	}

	s.cachePast(w, date)
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHourlyXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date, err := s.dateParam(r)
	if err != nil {
		s.writeError(ctx, w, "invalid hourly export request", err)
		return
	}

	rows, err := s.storage.GetHourlyRecords(ctx, date)
	if err != nil {
		s.writeError(ctx, w, "failed to get hourly records", fmt.Errorf("hourly records for %s: %w", date, err))
		return
	}

	var buf bytes.Buffer
	if err := writeHourlyWorkbook(&buf, rows); err != nil {
		s.writeError(ctx, w, "failed to build workbook", err)
		return
	}

	s.cachePast(w, date)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="energy_hourly_%s.xlsx"`, date))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// writeHourlyWorkbook writes rows as a single energy_hourly sheet with a
// header row. Null readings are left as empty cells.
func writeHourlyWorkbook(buf *bytes.Buffer, rows []types.HourlyRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", hourlySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(hourlySheet, "A1", &hourlyColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.Timestamp,
			row.Date,
			row.Hour,
			float64(row.ForecastDayKWh),
			float64(row.ForecastHourCumulKWh),
			cellValue(row.ProducedKWh),
			cellValue(row.ConsumedKWh),
			cellValue(row.ImportedKWh),
			cellValue(row.ExportedKWh),
			cellValue(row.AutoconsumedKWh),
			cellValue(row.AutosufficiencyPct),
			cellValue(row.AutoconsumptionPct),
		}
		if err := f.SetSheetRow(hourlySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write hour %d: %w", row.Hour, err)
		}
	}
	if err := f.Write(buf); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cellValue(n types.NullFloat) any {
	if !n.Valid {
		return nil
	}
	return n.Float64
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")

	var v validator
	v.date("start", start)
	v.date("end", end)
	if err := v.err(); err != nil {
		s.writeError(ctx, w, "invalid history request", err)
		return
	}

	if end == "" {
		end = s.cfg.Yesterday(s.now())
	}
	if start == "" {
		e, _ := time.Parse(types.DateLayout, end)
		start = e.AddDate(0, 0, -(historyDays - 1)).Format(types.DateLayout)
	}
	if start > end {
		v.check(false, "start %s is after end %s", start, end)
		s.writeError(ctx, w, "invalid history request", v.err())
		return
	}

	entries, err := s.storage.GetHistory(ctx, start, end)
	if err != nil {
		s.writeError(ctx, w, "failed to get history", err)
		return
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}

	s.cachePast(w, end)
	writeJSON(w, http.StatusOK, entries)
}
