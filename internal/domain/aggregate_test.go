package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObservations() []Observation {
	return []Observation{
		{EventType: "TORNADO", Year: 1950, Fatalities: 10, Injuries: 100, PropertyDamage: 5e6, CropDamage: 0},
		{EventType: "TORNADO", Year: 2011, Fatalities: 5, Injuries: 50, PropertyDamage: 3e6, CropDamage: 1e6},
		{EventType: "FLOOD", Year: 1998, Fatalities: 3, Injuries: 20, PropertyDamage: 10e6, CropDamage: 4e6},
		{EventType: "HEAT", Year: 1995, Fatalities: 20, Injuries: 0, PropertyDamage: 0, CropDamage: 0},
		{EventType: "HAIL", Year: 2001, Fatalities: 0, Injuries: 0, PropertyDamage: 2e6, CropDamage: 6e6},
	}
}

func aggregate(obs []Observation) *Aggregator {
	agg := NewAggregator()
	for _, o := range obs {
		agg.Add(o)
	}
	return agg
}

func TestAggregatorAdd(t *testing.T) {
	agg := aggregate(testObservations())

	assert.Equal(t, 5, agg.Observations())
	assert.Equal(t, 4, agg.EventTypes())

	rep := agg.Report(Meta{}, 0)

	require.NotEmpty(t, rep.TopByFatalities)
	var tornado Totals
	for _, tt := range rep.TopByFatalities {
		if tt.EventType == "TORNADO" {
			tornado = tt
		}
	}
	assert.Equal(t, 2, tornado.Observations)
	assert.Equal(t, 15.0, tornado.Fatalities)
	assert.Equal(t, 150.0, tornado.Injuries)
	assert.Equal(t, 8e6, tornado.PropertyDamage)
	assert.Equal(t, 1e6, tornado.CropDamage)
	assert.Equal(t, 165.0, tornado.Casualties())
	assert.Equal(t, 9e6, tornado.TotalDamage())
}

func TestReportRankings(t *testing.T) {
	rep := aggregate(testObservations()).Report(Meta{}, 0)

	t.Run("fatalities ranked non-increasing", func(t *testing.T) {
		names := eventTypes(rep.TopByFatalities)
		assert.Equal(t, []string{"HEAT", "TORNADO", "FLOOD"}, names)
		assertNonIncreasing(t, rep.TopByFatalities, func(tt Totals) float64 { return tt.Fatalities })
	})

	t.Run("zero measures are excluded", func(t *testing.T) {
		// HAIL has no casualties; HEAT has no damage.
		assert.NotContains(t, eventTypes(rep.TopByFatalities), "HAIL")
		assert.NotContains(t, eventTypes(rep.TopByCasualties), "HAIL")
		assert.NotContains(t, eventTypes(rep.TopByTotalDamage), "HEAT")
	})

	t.Run("casualties merge fatalities and injuries", func(t *testing.T) {
		// TORNADO 165, FLOOD 23, HEAT 20.
		assert.Equal(t, []string{"TORNADO", "FLOOD", "HEAT"}, eventTypes(rep.TopByCasualties))
	})

	t.Run("total damage merges property and crop", func(t *testing.T) {
		// FLOOD 14e6, TORNADO 9e6, HAIL 8e6.
		assert.Equal(t, []string{"FLOOD", "TORNADO", "HAIL"}, eventTypes(rep.TopByTotalDamage))
		assertNonIncreasing(t, rep.TopByTotalDamage, func(tt Totals) float64 { return tt.TotalDamage() })
	})

	t.Run("crop ranking independent of property ranking", func(t *testing.T) {
		assert.Equal(t, []string{"HAIL", "FLOOD", "TORNADO"}, eventTypes(rep.TopByCropDamage))
		assert.Equal(t, []string{"FLOOD", "TORNADO", "HAIL"}, eventTypes(rep.TopByPropertyDamage))
	})
}

func TestReportRankingTieBreak(t *testing.T) {
	agg := aggregate([]Observation{
		{EventType: "WILDFIRE", Fatalities: 7},
		{EventType: "AVALANCHE", Fatalities: 7},
		{EventType: "BLIZZARD", Fatalities: 9},
	})

	rep := agg.Report(Meta{}, 0)

	assert.Equal(t, []string{"BLIZZARD", "AVALANCHE", "WILDFIRE"}, eventTypes(rep.TopByFatalities))
}

func TestReportTopNClamp(t *testing.T) {
	agg := aggregate(testObservations())

	t.Run("limits each table", func(t *testing.T) {
		rep := agg.Report(Meta{}, 2)
		assert.Len(t, rep.TopByFatalities, 2)
		assert.Equal(t, []string{"HEAT", "TORNADO"}, eventTypes(rep.TopByFatalities))
	})

	t.Run("larger than distinct types", func(t *testing.T) {
		rep := agg.Report(Meta{}, 100)
		assert.Len(t, rep.TopByFatalities, 3)
	})

	t.Run("zero means unlimited", func(t *testing.T) {
		rep := agg.Report(Meta{}, 0)
		assert.Len(t, rep.TopByTotalDamage, 3)
	})
}

func TestReportGrandTotals(t *testing.T) {
	rep := aggregate(testObservations()).Report(Meta{}, 0)

	expected := Totals{
		Observations:   5,
		Fatalities:     38,
		Injuries:       170,
		PropertyDamage: 20e6,
		CropDamage:     11e6,
	}
	if diff := cmp.Diff(expected, rep.Grand); diff != "" {
		t.Errorf("grand totals mismatch (-want +got):\n%s", diff)
	}

	var byTypeDamage float64
	for _, tt := range rep.TopByTotalDamage {
		byTypeDamage += tt.TotalDamage()
	}
	assert.Equal(t, rep.Grand.TotalDamage(), byTypeDamage)
}

func TestReportMetadata(t *testing.T) {
	fixedTime := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	agg := aggregate(testObservations())
	rep := agg.Report(Meta{RunID: "run-42", Source: "data/StormData.csv.bz2", RowsSkipped: 3}, 10)

	assert.Equal(t, "run-42", rep.RunID)
	assert.Equal(t, "data/StormData.csv.bz2", rep.Source)
	assert.Equal(t, fixedTime, rep.GeneratedAt)
	assert.Equal(t, 5, rep.Rows)
	assert.Equal(t, 3, rep.RowsSkipped)
	assert.Equal(t, 4, rep.EventTypes)
	assert.Equal(t, 1950, rep.FirstYear)
	assert.Equal(t, 2011, rep.LastYear)
}

func TestReportYearRangeIgnoresUnknownYears(t *testing.T) {
	agg := aggregate([]Observation{
		{EventType: "TORNADO", Year: 0, Fatalities: 1},
		{EventType: "TORNADO", Year: 1987, Fatalities: 1},
	})

	rep := agg.Report(Meta{}, 0)

	assert.Equal(t, 1987, rep.FirstYear)
	assert.Equal(t, 1987, rep.LastYear)
}

func eventTypes(list []Totals) []string {
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.EventType
	}
	return names
}

func assertNonIncreasing(t *testing.T, list []Totals, measure func(Totals) float64) {
	t.Helper()
	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, measure(list[i-1]), measure(list[i]),
			"ranking out of order at index %d", i)
	}
}
