package types

import (
	"encoding/json"
	"regexp"
	"time"
)

// DataType selects which upstream webhook a solar-data request is relayed to.
type DataType string

const (
	DataTypeHourly  DataType = "hourly"
	DataTypeAstro   DataType = "astro"
	DataTypeHistory DataType = "history"

	DefaultDataType = DataTypeHourly
)

// DataTypes lists the supported types in the order they are reported.
var DataTypes = []DataType{DataTypeHourly, DataTypeAstro, DataTypeHistory}

// ParseDataType returns the DataType for s and whether it is supported.
func ParseDataType(s string) (DataType, bool) {
	for _, t := range DataTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// DateLayout is the layout of every date parameter and record date.
const DateLayout = time.DateOnly

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether s is a YYYY-MM-DD string naming a real calendar
// day, so "2024-02-29" passes and "2023-02-29" does not.
func ValidDate(s string) bool {
	if !dateFormat.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

var ddmmLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatDateDDMM renders a history date as "DD/MM" for chart labels. Values
// that are not recognized dates are returned unchanged.
func FormatDateDDMM(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range ddmmLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01")
		}
	}
	return s
}

// DataResponse is the envelope returned by the solar-data relay.
type DataResponse struct {
	Success  bool              `json:"success"`
	Type     DataType          `json:"type"`
	Data     []json.RawMessage `json:"data"`
	RowCount int               `json:"rowCount"`
	Date     string            `json:"date"`
}
