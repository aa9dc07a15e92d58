// Command genmock writes a deterministic StormData-shaped CSV fixture and
// prints the aggregate stats the report pipeline produces for it. Every
// generated row is run through the actual domain package, so the printed
// numbers are exactly what test assertions should expect.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/storm_mock.csv.gz -rows 5000 -seed 1 \
//	  -stats-out data/mock/storm_mock_stats.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
)

var header = []string{
	"STATE", "BGN_DATE", "EVTYPE", "FATALITIES", "INJURIES",
	"PROPDMG", "PROPDMGEXP", "CROPDMG", "CROPDMGEXP", "REMARKS",
}

var states = []string{"TX", "OK", "KS", "NE", "IA", "MO", "AL", "MS", "FL", "GA"}

// eventProfile shapes how often a generated event type hurts people or
// causes damage. The numbers are loosely modeled on archive frequencies.
type eventProfile struct {
	name         string
	weight       int
	fatalChance  float64
	maxFatal     int
	injureChance float64
	maxInjure    int
	propChance   float64
	cropChance   float64
}

var eventCatalog = []eventProfile{
	{"TSTM WIND", 20, 0.01, 2, 0.05, 8, 0.60, 0.05},
	{"HAIL", 18, 0, 0, 0.02, 4, 0.55, 0.15},
	{"TORNADO", 12, 0.06, 12, 0.35, 90, 0.85, 0.05},
	{"FLASH FLOOD", 10, 0.03, 3, 0.03, 5, 0.65, 0.20},
	{"FLOOD", 8, 0.01, 2, 0.02, 6, 0.60, 0.30},
	{"LIGHTNING", 8, 0.04, 1, 0.15, 3, 0.40, 0.01},
	{"HIGH WIND", 6, 0.01, 2, 0.05, 6, 0.50, 0.10},
	{"WINTER STORM", 5, 0.02, 3, 0.08, 15, 0.45, 0.05},
	{"EXCESSIVE HEAT", 3, 0.30, 20, 0.25, 40, 0.02, 0.10},
	{"WILDFIRE", 3, 0.01, 2, 0.04, 8, 0.55, 0.15},
	{"DROUGHT", 2, 0, 0, 0, 0, 0.15, 0.90},
	{"RIP CURRENT", 2, 0.45, 2, 0.20, 3, 0, 0},
}

var eventWeightTotal = func() int {
	total := 0
	for _, p := range eventCatalog {
		total += p.weight
	}
	return total
}()

// expCodes mirrors the magnitude-code mix of the real archive: mostly K and
// M, with the legacy lowercase, H, digit, and junk codes sprinkled in.
var expCodes = []struct {
	code   string
	weight int
}{
	{"K", 55}, {"M", 14}, {"", 8}, {"k", 5}, {"m", 3}, {"B", 1},
	{"H", 2}, {"h", 1}, {"0", 2}, {"3", 2}, {"5", 2}, {"7", 1},
	{"+", 2}, {"-", 1}, {"?", 1},
}

var expWeightTotal = func() int {
	total := 0
	for _, c := range expCodes {
		total += c.weight
	}
	return total
}()

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock/storm_mock.csv.gz", "output CSV path (.csv, .csv.gz, or .csv.zst)")
	rows := flag.Int("rows", 5000, "data rows to generate")
	seed := flag.Int64("seed", 1, "PRNG seed; same seed, same fixture")
	statsOut := flag.String("stats-out", "", "optional path for the expected report as JSON")
	top := flag.Int("top", 10, "rows per ranked table in the stats output")
	flag.Parse()

	if *rows < 1 {
		return fmt.Errorf("rows must be at least 1")
	}

	// Fixed clock so the stats JSON is byte-for-byte reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.January, 2, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	table, agg, skipped := generate(*rows, *seed)

	if err := writeRows(*out, table); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d data rows)", *out, len(table)-1)

	report := agg.Report(domain.Meta{
		RunID:       fmt.Sprintf("genmock-seed-%d", *seed),
		Source:      *out,
		RowsSkipped: skipped,
	}, *top)

	if *statsOut != "" {
		if err := writeJSON(*statsOut, report); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		log.Printf("wrote stats: %s", *statsOut)
	}

	printStats(report)
	return nil
}

// generate builds the CSV rows and, in the same pass, the aggregation the
// report pipeline would produce from them.
func generate(n int, seed int64) ([][]string, *domain.Aggregator, int) {
	rng := rand.New(rand.NewSource(seed))
	agg := domain.NewAggregator()
	skipped := 0

	table := make([][]string, 0, n+1)
	table = append(table, append([]string(nil), header...))

	for i := 0; i < n; i++ {
		row := randomRow(rng, i)
		table = append(table, row)

		obs, err := domain.ParseRecord(toRawRecord(row))
		if err != nil {
			skipped++
			continue
		}
		agg.Add(obs)
	}
	return table, agg, skipped
}

func randomRow(rng *rand.Rand, i int) []string {
	p := pickProfile(rng)

	// A slice of rows carries the archive's mess: case drift, padding, and
	// the occasional missing event type or short row.
	evtype := p.name
	switch {
	case i%97 == 40:
		evtype = ""
	case i%37 == 13:
		evtype = strings.ToLower(evtype)
	case i%53 == 20:
		evtype = "  " + evtype + " "
	}

	fatalities := "0"
	if p.maxFatal > 0 && rng.Float64() < p.fatalChance {
		fatalities = strconv.Itoa(1 + rng.Intn(p.maxFatal))
	}
	injuries := "0"
	if p.maxInjure > 0 && rng.Float64() < p.injureChance {
		injuries = strconv.Itoa(1 + rng.Intn(p.maxInjure))
	}

	propDmg, propExp := "0", ""
	if rng.Float64() < p.propChance {
		propDmg, propExp = randomDamage(rng)
	}
	cropDmg, cropExp := "0", ""
	if rng.Float64() < p.cropChance {
		cropDmg, cropExp = randomDamage(rng)
	}

	remarks := ""
	switch {
	case i%29 == 3:
		remarks = `Reported "locally heavy" damage`
	case i%11 == 0:
		remarks = "Trees down, lines down"
	}

	row := []string{
		states[rng.Intn(len(states))],
		randomDate(rng),
		evtype,
		fatalities,
		injuries,
		propDmg,
		propExp,
		cropDmg,
		cropExp,
		remarks,
	}
	if i%101 == 50 {
		row = row[:3]
	}
	return row
}

func pickProfile(rng *rand.Rand) eventProfile {
	r := rng.Intn(eventWeightTotal)
	for _, p := range eventCatalog {
		if r < p.weight {
			return p
		}
		r -= p.weight
	}
	return eventCatalog[0]
}

func pickExpCode(rng *rand.Rand) string {
	r := rng.Intn(expWeightTotal)
	for _, c := range expCodes {
		if r < c.weight {
			return c.code
		}
		r -= c.weight
	}
	return expCodes[0].code
}

func randomDamage(rng *rand.Rand) (string, string) {
	mantissa := math.Round((0.1+rng.Float64()*499.9)*100) / 100
	return strconv.FormatFloat(mantissa, 'f', 2, 64), pickExpCode(rng)
}

func randomDate(rng *rand.Rand) string {
	year := 1950 + rng.Intn(62)
	month := 1 + rng.Intn(12)
	day := 1 + rng.Intn(28)
	return fmt.Sprintf("%d/%d/%d 0:00:00", month, day, year)
}

// toRawRecord maps a generated row to the record the CSV reader would
// produce for it, including blanks for short rows.
func toRawRecord(row []string) domain.RawRecord {
	get := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return domain.RawRecord{
		BeginDate:     get(1),
		EventType:     get(2),
		Fatalities:    get(3),
		Injuries:      get(4),
		PropDamage:    get(5),
		PropDamageExp: get(6),
		CropDamage:    get(7),
		CropDamageExp: get(8),
	}
}

func writeRows(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var closers []io.Closer
	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(f)
		w = zw
		closers = append(closers, zw)
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return err
		}
		w = zw
		closers = append(closers, zw)
	}
	closers = append(closers, f)

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(report *domain.Report) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("aggregated: %d, skipped: %d, event types: %d\n",
		report.Rows, report.RowsSkipped, report.EventTypes)
	fmt.Printf("period: %d-%d\n", report.FirstYear, report.LastYear)
	fmt.Printf("grand: fatalities=%.0f injuries=%.0f property=%.2f crop=%.2f\n",
		report.Grand.Fatalities, report.Grand.Injuries,
		report.Grand.PropertyDamage, report.Grand.CropDamage)

	printRanking("top by fatalities", report.TopByFatalities, func(t domain.Totals) string {
		return fmt.Sprintf("%.0f", t.Fatalities)
	})
	printRanking("top by casualties", report.TopByCasualties, func(t domain.Totals) string {
		return fmt.Sprintf("%.0f", t.Casualties())
	})
	printRanking("top by total damage", report.TopByTotalDamage, func(t domain.Totals) string {
		return fmt.Sprintf("%.2f", t.TotalDamage())
	})
}

func printRanking(label string, rows []domain.Totals, value func(domain.Totals) string) {
	fmt.Printf("%s:", label)
	for i, t := range rows {
		if i == 5 {
			break
		}
		fmt.Printf(" %s=%s", t.EventType, value(t))
	}
	fmt.Println()
}
