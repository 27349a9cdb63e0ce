package types

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Column names used by the history sheet.
const (
	HistoryDateKey            = "Date"
	HistoryAutoconsumptionKey = "Autoconsommation (%)"
	HistoryAutosufficiencyKey = "Autosuffisance (%)"
	HistoryDeviationKey       = "Écart (%)"
)

// HistoryEntry is one past day of the history sheet.
type HistoryEntry struct {
	Date            string     `mapstructure:"Date"`
	Autoconsumption Percentage `mapstructure:"Autoconsommation (%)"`
	Autosufficiency Percentage `mapstructure:"Autosuffisance (%)"`
	// Deviation is the signed difference between actual and forecast
	// production, as a percent of the forecast.
	Deviation Percentage `mapstructure:"Écart (%)"`
}

// MarshalJSON writes the entry with the sheet's column names.
func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		HistoryDateKey:            h.Date,
		HistoryAutoconsumptionKey: float64(h.Autoconsumption),
		HistoryAutosufficiencyKey: float64(h.Autosufficiency),
		HistoryDeviationKey:       float64(h.Deviation),
	})
}

// UnmarshalJSON reads an entry keyed by the sheet's column names.
func (h *HistoryEntry) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	entry, err := DecodeHistoryEntry(raw)
	if err != nil {
		return err
	}
	*h = entry
	return nil
}

var percentageType = reflect.TypeOf(Percentage(0))

func percentageHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != percentageType {
		return data, nil
	}
	return Percentage(ParsePercentage(data)), nil
}

// DecodeHistoryEntry decodes one loosely typed history row. Unknown columns
// are ignored and a numeric Date is converted to its string form.
func DecodeHistoryEntry(raw map[string]any) (HistoryEntry, error) {
	var entry HistoryEntry
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(percentageHook),
		Result:           &entry,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to create history decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to decode history entry: %w", err)
	}
	return entry, nil
}

// DecodeHistoryEntries decodes every row, failing on the first bad one.
func DecodeHistoryEntries(rows []map[string]any) ([]HistoryEntry, error) {
	entries := make([]HistoryEntry, 0, len(rows))
	for i, row := range rows {
		entry, err := DecodeHistoryEntry(row)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
