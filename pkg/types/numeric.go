package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NullFloat is a reading that may be absent. Upstream payloads carry numbers,
// numeric strings, nulls and the occasional garbage value; anything that does
// not parse to a finite float decodes as null instead of zero.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a valid NullFloat holding v.
func Float(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// Null is the absent reading.
var Null = NullFloat{}

// Ptr returns nil for a null reading.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// OrZero returns the value or 0 when null.
func (n NullFloat) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Float64
}

// MarshalJSON implements json.Marshaler.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON implements json.Unmarshaler. It never fails: values that
// cannot be read as a float become null.
func (n *NullFloat) UnmarshalJSON(b []byte) error {
	*n = parseJSONFloat(b)
	return nil
}

// Number is a float that decodes from a JSON number or numeric string and
// falls back to 0 for anything else.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number(parseJSONFloat(b).OrZero())
	return nil
}

func parseJSONFloat(b []byte) NullFloat {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Null
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Null
		}
		return ParseNullFloat(s)
	}
	return ParseNullFloat(string(b))
}

// ParseNullFloat parses s as a float, returning null when it is empty, not a
// number, or not finite.
func ParseNullFloat(s string) NullFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return Float(v)
}

// Percentage is a percent value normalized from the localized strings the
// history sheet produces ("12,5%", "−3,2 %") or from plain numbers.
type Percentage float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Percentage) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*p = 0
		return nil
	}
	*p = Percentage(ParsePercentage(v))
	return nil
}

var percentReplacer = strings.NewReplacer(
	"%", "",
	",", ".",
	"−", "-", // minus sign
	" ", "",
	" ", "",
)

// ParsePercentage converts a number or localized percentage string to a
// float. Numbers pass through unchanged; empty or unparseable values are 0.
func ParsePercentage(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case Percentage:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		return ParseNullFloat(percentReplacer.Replace(t)).OrZero()
	default:
		return 0
	}
}
