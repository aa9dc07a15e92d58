package domain

import "sort"

// Meta identifies one aggregation run on its Report.
type Meta struct {
	RunID       string
	Source      string
	RowsSkipped int
}

// Aggregator groups observations by event type and sums the four measures.
// Not safe for concurrent use; the pipeline feeds it from a single goroutine.
type Aggregator struct {
	byType    map[string]*Totals
	rows      int
	firstYear int
	lastYear  int
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byType: make(map[string]*Totals)}
}

// Add folds one observation into the per-type totals.
func (a *Aggregator) Add(obs Observation) {
	t, ok := a.byType[obs.EventType]
	if !ok {
		t = &Totals{EventType: obs.EventType}
		a.byType[obs.EventType] = t
	}
	t.Observations++
	t.Fatalities += obs.Fatalities
	t.Injuries += obs.Injuries
	t.PropertyDamage += obs.PropertyDamage
	t.CropDamage += obs.CropDamage

	a.rows++
	if obs.Year != 0 {
		if a.firstYear == 0 || obs.Year < a.firstYear {
			a.firstYear = obs.Year
		}
		if obs.Year > a.lastYear {
			a.lastYear = obs.Year
		}
	}
}

// Observations reports the number of rows aggregated so far.
func (a *Aggregator) Observations() int { return a.rows }

// EventTypes reports the number of distinct event types seen so far.
func (a *Aggregator) EventTypes() int { return len(a.byType) }

// Report assembles the six ranked tables plus coverage metadata. topN limits
// each table; zero or negative means unlimited.
func (a *Aggregator) Report(meta Meta, topN int) *Report {
	return &Report{
		RunID:       meta.RunID,
		GeneratedAt: clock.Now().UTC(),
		Source:      meta.Source,
		Rows:        a.rows,
		RowsSkipped: meta.RowsSkipped,
		EventTypes:  len(a.byType),
		FirstYear:   a.firstYear,
		LastYear:    a.lastYear,
		Grand:       a.grandTotals(),

		TopByFatalities:     a.topBy(topN, func(t *Totals) float64 { return t.Fatalities }),
		TopByInjuries:       a.topBy(topN, func(t *Totals) float64 { return t.Injuries }),
		TopByCasualties:     a.topBy(topN, func(t *Totals) float64 { return t.Casualties() }),
		TopByPropertyDamage: a.topBy(topN, func(t *Totals) float64 { return t.PropertyDamage }),
		TopByCropDamage:     a.topBy(topN, func(t *Totals) float64 { return t.CropDamage }),
		TopByTotalDamage:    a.topBy(topN, func(t *Totals) float64 { return t.TotalDamage() }),
	}
}

func (a *Aggregator) grandTotals() Totals {
	var g Totals
	for _, t := range a.byType {
		g.Observations += t.Observations
		g.Fatalities += t.Fatalities
		g.Injuries += t.Injuries
		g.PropertyDamage += t.PropertyDamage
		g.CropDamage += t.CropDamage
	}
	return g
}

// topBy ranks event types by the given measure, largest first, ties broken by
// event type ascending so a given input always yields the same table. Types
// whose measure is zero are excluded from that table.
func (a *Aggregator) topBy(n int, measure func(*Totals) float64) []Totals {
	ranked := make([]Totals, 0, len(a.byType))
	for _, t := range a.byType {
		if measure(t) == 0 {
			continue
		}
		ranked = append(ranked, *t)
	}

	sort.Slice(ranked, func(i, j int) bool {
		vi, vj := measure(&ranked[i]), measure(&ranked[j])
		if vi != vj {
			return vi > vj
		}
		return ranked[i].EventType < ranked[j].EventType
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
