package types

// HoursPerDay is the number of HourlyRecords in a complete day.
const HoursPerDay = 24

// HourlyRecord is the reconciled view of one hour of a day: the real
// readings, the forecast, and the ratios derived from them. Raw and derived
// readings are null for hours after "now" or when the source had no value.
type HourlyRecord struct {
	Timestamp            string    `json:"timestamp"`
	Date                 string    `json:"date"`
	Hour                 int       `json:"hour"`
	ForecastDayKWh       Number    `json:"forecast_day_kwh"`
	ForecastHourCumulKWh Number    `json:"forecast_hour_cumul_kwh"`
	ProducedKWh          NullFloat `json:"produced_kwh"`
	ConsumedKWh          NullFloat `json:"consumed_kwh"`
	ImportedKWh          NullFloat `json:"imported_kwh"`
	ExportedKWh          NullFloat `json:"exported_kwh"`
	AutoconsumedKWh      NullFloat `json:"autoconsumed_kwh"`
	AutosufficiencyPct   NullFloat `json:"autosufficiency_pct"`
	AutoconsumptionPct   NullFloat `json:"autoconsumption_pct"`
}

// Telemetry holds the per-hour arrays from the energy monitor. Time holds
// zero-padded hours ("00".."23") and every other array is indexed in
// parallel with it.
type Telemetry struct {
	Time     []string    `json:"time"`
	Produced []NullFloat `json:"produced"`
	Consumed []NullFloat `json:"consumed"`
	Imported []NullFloat `json:"imported"`
	Exported []NullFloat `json:"exported"`
}

// DayForecast is the total production forecast for a date.
type DayForecast struct {
	Date        string `json:"date"`
	ForecastKWh Number `json:"forecast_kwh"`
}

// HourForecast is the forecast accumulated from midnight through Time
// ("HH:MM" or "HH:MM:SS") on Date.
type HourForecast struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	ForecastKWh Number `json:"forecast_kwh"`
}

// SourcePayload is the combined telemetry and forecast document the source
// webhook returns.
type SourcePayload struct {
	Timestamp       string         `json:"timestamp"`
	Data            Telemetry      `json:"data"`
	Forecasts       []DayForecast  `json:"forecasts"`
	HourlyForecasts []HourForecast `json:"hourlyForecasts"`
}
