package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrNoEventType marks a row whose EVTYPE is empty after normalization.
// Such rows cannot be grouped and are skipped by the pipeline.
var ErrNoEventType = errors.New("empty event type")

// beginDateLayout matches the archive's BGN_DATE values, e.g. "4/18/1950 0:00:00".
const beginDateLayout = "1/2/2006 15:04:05"

// ParseRecord coerces a raw CSV row into an Observation. Numeric coercion
// never fails (unparseable values become zero); the only rejection is a row
// with no usable event type.
func ParseRecord(rec RawRecord) (Observation, error) {
	eventType := NormalizeEventType(rec.EventType)
	if eventType == "" {
		return Observation{}, ErrNoEventType
	}

	return Observation{
		EventType:      eventType,
		Year:           parseEventYear(rec.BeginDate),
		Fatalities:     parseFloatOrZero(rec.Fatalities),
		Injuries:       parseFloatOrZero(rec.Injuries),
		PropertyDamage: ScaleDamage(parseFloatOrZero(rec.PropDamage), rec.PropDamageExp),
		CropDamage:     ScaleDamage(parseFloatOrZero(rec.CropDamage), rec.CropDamageExp),
	}, nil
}

// NormalizeEventType trims, collapses internal whitespace, and uppercases an
// EVTYPE label so that the archive's case and padding variants group together.
// No synonym folding happens here.
func NormalizeEventType(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), " "))
}

// DamageMultiplier maps a PROPDMGEXP/CROPDMGEXP magnitude code to the factor
// scaling the recorded mantissa to US dollars. Codes match case-insensitively;
// an empty code means the value is already in dollars. Codes outside the
// published set ("+", "-", "?") return 0 so the contribution is dropped.
func DamageMultiplier(code string) float64 {
	code = strings.TrimSpace(code)
	if code == "" {
		return 1
	}
	if len(code) == 1 && code[0] >= '0' && code[0] <= '9' {
		return math.Pow(10, float64(code[0]-'0'))
	}

	switch strings.ToUpper(code) {
	case "H":
		return 1e2
	case "K":
		return 1e3
	case "M":
		return 1e6
	case "B":
		return 1e9
	default:
		return 0
	}
}

// ScaleDamage converts a raw damage mantissa and its magnitude code to USD.
func ScaleDamage(raw float64, code string) float64 {
	if raw == 0 {
		return 0
	}
	return raw * DamageMultiplier(code)
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseEventYear extracts the year from a BGN_DATE value, returning 0 when
// the date does not parse.
func parseEventYear(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	t, err := time.Parse(beginDateLayout, s)
	if err != nil {
		return 0
	}
	return t.Year()
}
