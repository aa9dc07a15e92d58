// Command validate re-runs the aggregation over a storm data CSV and checks
// the report invariants end to end: the damage multiplier table, per-row
// damage scaling, per-type sums versus the grand total, and ranking order.
// With -charts-dir it also verifies that previously rendered chart files
// decode as PNGs of the expected size.
//
// Usage:
//
//	go run ./cmd/validate -input data/StormData.csv.bz2 -top 10 \
//	  -charts-dir out -chart-width 1400 -chart-height 900
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-impact-report/internal/adapter/csvfile"
	"github.com/couchcryptid/storm-impact-report/internal/adapter/render"
	"github.com/couchcryptid/storm-impact-report/internal/domain"
)

const maxPhaseErrors = 25

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) >= maxPhaseErrors {
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// multipliers restates the damage magnitude table independently of the
// domain package, so a regression there fails loudly here.
var multipliers = map[string]float64{
	"": 1, "H": 1e2, "K": 1e3, "M": 1e6, "B": 1e9,
	"0": 1, "1": 10, "2": 1e2, "3": 1e3, "4": 1e4,
	"5": 1e5, "6": 1e6, "7": 1e7, "8": 1e8, "9": 1e9,
}

func main() {
	input := flag.String("input", "", "storm data CSV to validate (plain, .bz2, .gz, or .zst)")
	top := flag.Int("top", 10, "rows per ranked table")
	batch := flag.Int("batch", 5000, "extraction batch size")
	chartsDir := flag.String("charts-dir", "", "directory holding previously rendered charts (optional)")
	chartWidth := flag.Int("chart-width", 0, "expected chart width in px (0 skips the check)")
	chartHeight := flag.Int("chart-height", 0, "expected chart height in px (0 skips the check)")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*input, *top, *batch, *chartsDir, *chartWidth, *chartHeight); code != 0 {
		os.Exit(code)
	}
}

func run(input string, top, batch int, chartsDir string, chartWidth, chartHeight int) int {
	fmt.Println("=== Storm Impact Report Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	reader, err := csvfile.Open(input, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open input: %v\n", err)
		return 1
	}
	defer reader.Close()

	// ── Re-run the aggregation, checking each row on the way ──

	scalingPhase := &phase{name: "Phase 2: Row Damage Scaling"}
	agg := domain.NewAggregator()
	indep := newIndependentTotals()
	skipped := 0
	rows := 0

	ctx := context.Background()
	for {
		rawBatch, err := reader.ExtractBatch(ctx, batch)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: extract: %v\n", err)
			return 1
		}
		for _, raw := range rawBatch {
			obs, err := domain.ParseRecord(raw)
			if err != nil {
				skipped++
				continue
			}
			checkScaling(scalingPhase, raw, obs)
			indep.add(obs)
			agg.Add(obs)
			rows++
		}
	}

	report := agg.Report(domain.Meta{
		RunID:       "validate",
		Source:      input,
		RowsSkipped: reader.Skipped() + skipped,
	}, top)

	phases := []*phase{
		validateMultiplierTable(),
		scalingPhase,
		validateAggregation(report, indep, rows),
		validateRankings(report, indep, top),
	}
	if chartsDir != "" {
		phases = append(phases, validateCharts(chartsDir, chartWidth, chartHeight))
	}

	// ── Report results ──

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-40s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d aggregated, %d skipped, %d event types\n",
		report.Rows, report.RowsSkipped, report.EventTypes)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Damage Multiplier Table ──

func validateMultiplierTable() *phase {
	p := &phase{name: "Phase 1: Damage Multiplier Table"}

	for code, want := range multipliers {
		if got := domain.DamageMultiplier(code); !floatEq(got, want) {
			p.errorf("code %q: multiplier %g, want %g", code, got, want)
		}
		lower := strings.ToLower(code)
		if got := domain.DamageMultiplier(lower); !floatEq(got, want) {
			p.errorf("code %q: multiplier %g, want %g", lower, got, want)
		}
	}
	for _, junk := range []string{"+", "-", "?", "X"} {
		if got := domain.DamageMultiplier(junk); got != 0 {
			p.errorf("junk code %q: multiplier %g, want 0", junk, got)
		}
	}
	return p
}

// ── Phase 2: Row Damage Scaling ──
// Recomputes each observation's measures with independent arithmetic.

func checkScaling(p *phase, raw domain.RawRecord, obs domain.Observation) {
	if want := expectedDamage(raw.PropDamage, raw.PropDamageExp); !floatEq(obs.PropertyDamage, want) {
		p.errorf("%s: property damage %g, want %g (raw %q exp %q)",
			obs.EventType, obs.PropertyDamage, want, raw.PropDamage, raw.PropDamageExp)
	}
	if want := expectedDamage(raw.CropDamage, raw.CropDamageExp); !floatEq(obs.CropDamage, want) {
		p.errorf("%s: crop damage %g, want %g (raw %q exp %q)",
			obs.EventType, obs.CropDamage, want, raw.CropDamage, raw.CropDamageExp)
	}
	if want := floatOrZero(raw.Fatalities); !floatEq(obs.Fatalities, want) {
		p.errorf("%s: fatalities %g, want %g (raw %q)", obs.EventType, obs.Fatalities, want, raw.Fatalities)
	}
	if want := floatOrZero(raw.Injuries); !floatEq(obs.Injuries, want) {
		p.errorf("%s: injuries %g, want %g (raw %q)", obs.EventType, obs.Injuries, want, raw.Injuries)
	}
}

func expectedDamage(raw, code string) float64 {
	m, ok := multipliers[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		m = 0
	}
	return floatOrZero(raw) * m
}

// ── Phase 3: Aggregation Consistency ──

func validateAggregation(report *domain.Report, indep *indepTotals, rows int) *phase {
	p := &phase{name: "Phase 3: Aggregation Consistency"}

	if report.Rows != rows {
		p.errorf("report rows %d, independently counted %d", report.Rows, rows)
	}
	if report.EventTypes != len(indep.perType) {
		p.errorf("report event types %d, independently counted %d", report.EventTypes, len(indep.perType))
	}
	if report.Grand.Observations != indep.grand.observations {
		p.errorf("grand observations %d, independently counted %d",
			report.Grand.Observations, indep.grand.observations)
	}
	if !floatEq(report.Grand.Fatalities, indep.grand.fatalities) {
		p.errorf("grand fatalities %g, independently summed %g", report.Grand.Fatalities, indep.grand.fatalities)
	}
	if !floatEq(report.Grand.Injuries, indep.grand.injuries) {
		p.errorf("grand injuries %g, independently summed %g", report.Grand.Injuries, indep.grand.injuries)
	}
	if !floatEq(report.Grand.PropertyDamage, indep.grand.property) {
		p.errorf("grand property damage %g, independently summed %g",
			report.Grand.PropertyDamage, indep.grand.property)
	}
	if !floatEq(report.Grand.CropDamage, indep.grand.crop) {
		p.errorf("grand crop damage %g, independently summed %g", report.Grand.CropDamage, indep.grand.crop)
	}
	return p
}

// ── Phase 4: Ranking Invariants ──

func validateRankings(report *domain.Report, indep *indepTotals, top int) *phase {
	p := &phase{name: "Phase 4: Ranking Invariants"}

	tables := []struct {
		name    string
		rows    []domain.Totals
		measure func(domain.Totals) float64
	}{
		{"fatalities", report.TopByFatalities, func(t domain.Totals) float64 { return t.Fatalities }},
		{"injuries", report.TopByInjuries, func(t domain.Totals) float64 { return t.Injuries }},
		{"casualties", report.TopByCasualties, func(t domain.Totals) float64 { return t.Casualties() }},
		{"property damage", report.TopByPropertyDamage, func(t domain.Totals) float64 { return t.PropertyDamage }},
		{"crop damage", report.TopByCropDamage, func(t domain.Totals) float64 { return t.CropDamage }},
		{"total damage", report.TopByTotalDamage, func(t domain.Totals) float64 { return t.TotalDamage() }},
	}

	for _, tb := range tables {
		if top > 0 && len(tb.rows) > top {
			p.errorf("%s: %d rows exceeds top %d", tb.name, len(tb.rows), top)
		}
		for i, row := range tb.rows {
			v := tb.measure(row)
			if v == 0 {
				p.errorf("%s[%d] %s: zero-measure entry in ranking", tb.name, i, row.EventType)
			}
			if i > 0 {
				prev := tb.measure(tb.rows[i-1])
				if v > prev {
					p.errorf("%s[%d] %s: %g ranks below smaller %g", tb.name, i, row.EventType, v, prev)
				}
				if v == prev && tb.rows[i-1].EventType >= row.EventType {
					p.errorf("%s[%d]: tie on %g not broken alphabetically (%s before %s)",
						tb.name, i, v, tb.rows[i-1].EventType, row.EventType)
				}
			}

			m := indep.perType[row.EventType]
			if m == nil {
				p.errorf("%s[%d] %s: event type not present in source", tb.name, i, row.EventType)
				continue
			}
			if row.Observations != m.observations || !floatEq(row.Fatalities, m.fatalities) ||
				!floatEq(row.Injuries, m.injuries) || !floatEq(row.PropertyDamage, m.property) ||
				!floatEq(row.CropDamage, m.crop) {
				p.errorf("%s[%d] %s: totals diverge from independent sums", tb.name, i, row.EventType)
			}
		}
	}
	return p
}

// ── Phase 5: Chart Files ──

func validateCharts(dir string, width, height int) *phase {
	p := &phase{name: "Phase 5: Chart Files"}

	for _, file := range []string{render.CasualtiesChartFile, render.DamageChartFile} {
		path := filepath.Join(dir, file)
		f, err := os.Open(path)
		if err != nil {
			p.errorf("%s: %v", file, err)
			continue
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			p.errorf("%s: decode: %v", file, err)
			continue
		}
		b := img.Bounds()
		if width > 0 && b.Dx() != width {
			p.errorf("%s: width %d, want %d", file, b.Dx(), width)
		}
		if height > 0 && b.Dy() != height {
			p.errorf("%s: height %d, want %d", file, b.Dy(), height)
		}
	}
	return p
}

// ── Independent sums ──

// indepTotals re-sums every measure with its own arithmetic, bypassing the
// Aggregator.
type indepTotals struct {
	perType map[string]*measures
	grand   measures
}

type measures struct {
	observations int
	fatalities   float64
	injuries     float64
	property     float64
	crop         float64
}

func newIndependentTotals() *indepTotals {
	return &indepTotals{perType: map[string]*measures{}}
}

func (it *indepTotals) add(obs domain.Observation) {
	m := it.perType[obs.EventType]
	if m == nil {
		m = &measures{}
		it.perType[obs.EventType] = m
	}
	m.observations++
	m.fatalities += obs.Fatalities
	m.injuries += obs.Injuries
	m.property += obs.PropertyDamage
	m.crop += obs.CropDamage

	it.grand.observations++
	it.grand.fatalities += obs.Fatalities
	it.grand.injuries += obs.Injuries
	it.grand.property += obs.PropertyDamage
	it.grand.crop += obs.CropDamage
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
