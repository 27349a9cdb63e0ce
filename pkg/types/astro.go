package types

import (
	"strconv"
	"strings"
)

// AstroRecord holds the sun times for a date as "HH:MM:SS" strings.
type AstroRecord struct {
	Date      string `json:"date,omitempty"`
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	SolarNoon string `json:"solar_noon"`
}

// TimeToDecimal converts "HH:MM:SS" (or "HH:MM") into fractional hours.
// Missing or unparseable parts count as zero.
func TimeToDecimal(s string) float64 {
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	part := func(i int) float64 {
		if i >= len(parts) {
			return 0
		}
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0
		}
		return float64(v)
	}
	return part(0) + part(1)/60 + part(2)/3600
}
