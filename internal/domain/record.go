package domain

import "time"

// RawRecord holds the report-relevant columns of one Storm Data CSV row,
// untouched. Field values arrive exactly as published, including case
// variants, padding, and magnitude codes.
type RawRecord struct {
	EventType     string // EVTYPE
	BeginDate     string // BGN_DATE
	Fatalities    string // FATALITIES
	Injuries      string // INJURIES
	PropDamage    string // PROPDMG
	PropDamageExp string // PROPDMGEXP
	CropDamage    string // CROPDMG
	CropDamageExp string // CROPDMGEXP
}

// Observation is the coerced form of a RawRecord: normalized event type,
// numeric casualty counts, and damage figures scaled to US dollars.
type Observation struct {
	EventType      string
	Year           int // 0 when BGN_DATE is unparseable
	Fatalities     float64
	Injuries       float64
	PropertyDamage float64 // USD
	CropDamage     float64 // USD
}

// Totals accumulates the four measures for one event type.
type Totals struct {
	EventType      string  `json:"event_type"`
	Observations   int     `json:"observations"`
	Fatalities     float64 `json:"fatalities"`
	Injuries       float64 `json:"injuries"`
	PropertyDamage float64 `json:"property_damage"`
	CropDamage     float64 `json:"crop_damage"`
}

// Casualties is the merged population-health measure.
func (t Totals) Casualties() float64 {
	return t.Fatalities + t.Injuries
}

// TotalDamage is the merged economic measure.
func (t Totals) TotalDamage() float64 {
	return t.PropertyDamage + t.CropDamage
}

// Report is the complete output of one aggregation run: identification,
// dataset coverage, grand totals, and the ranked tables.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`

	Rows        int `json:"rows"`         // observations aggregated
	RowsSkipped int `json:"rows_skipped"` // rows dropped before aggregation
	EventTypes  int `json:"event_types"`
	FirstYear   int `json:"first_year,omitempty"`
	LastYear    int `json:"last_year,omitempty"`

	// Grand sums every measure across all event types (EventType is empty).
	Grand Totals `json:"grand"`

	TopByFatalities     []Totals `json:"top_by_fatalities"`
	TopByInjuries       []Totals `json:"top_by_injuries"`
	TopByCasualties     []Totals `json:"top_by_casualties"`
	TopByPropertyDamage []Totals `json:"top_by_property_damage"`
	TopByCropDamage     []Totals `json:"top_by_crop_damage"`
	TopByTotalDamage    []Totals `json:"top_by_total_damage"`
}
