// Package render holds the output side of the report pipeline: the console
// tables and the PNG bar charts. Both satisfy the pipeline's Renderer
// interface and are fed the same assembled Report.
package render

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
)

// Tables writes the run summary and the six ranked tables as plain text,
// typically to stdout.
type Tables struct {
	out io.Writer
	p   *message.Printer
}

func NewTables(out io.Writer) *Tables {
	return &Tables{out: out, p: message.NewPrinter(language.English)}
}

func (t *Tables) Name() string { return "tables" }

func (t *Tables) Render(_ context.Context, report *domain.Report) error {
	w := bufio.NewWriter(t.out)

	t.summary(w, report)
	t.table(w, "EVENT TYPES BY FATALITIES", report.TopByFatalities,
		column{"FATALITIES", func(r *domain.Totals) string { return t.count(r.Fatalities) }},
	)
	t.table(w, "EVENT TYPES BY INJURIES", report.TopByInjuries,
		column{"INJURIES", func(r *domain.Totals) string { return t.count(r.Injuries) }},
	)
	t.table(w, "EVENT TYPES BY COMBINED CASUALTIES", report.TopByCasualties,
		column{"FATALITIES", func(r *domain.Totals) string { return t.count(r.Fatalities) }},
		column{"INJURIES", func(r *domain.Totals) string { return t.count(r.Injuries) }},
		column{"CASUALTIES", func(r *domain.Totals) string { return t.count(r.Casualties()) }},
	)
	t.table(w, "EVENT TYPES BY PROPERTY DAMAGE", report.TopByPropertyDamage,
		column{"PROPERTY", func(r *domain.Totals) string { return usd(r.PropertyDamage) }},
	)
	t.table(w, "EVENT TYPES BY CROP DAMAGE", report.TopByCropDamage,
		column{"CROP", func(r *domain.Totals) string { return usd(r.CropDamage) }},
	)
	t.table(w, "EVENT TYPES BY TOTAL ECONOMIC DAMAGE", report.TopByTotalDamage,
		column{"PROPERTY", func(r *domain.Totals) string { return usd(r.PropertyDamage) }},
		column{"CROP", func(r *domain.Totals) string { return usd(r.CropDamage) }},
		column{"TOTAL", func(r *domain.Totals) string { return usd(r.TotalDamage()) }},
	)

	return w.Flush()
}

func (t *Tables) summary(w io.Writer, report *domain.Report) {
	fmt.Fprintf(w, "STORM IMPACT REPORT\n")
	fmt.Fprintf(w, "  run     %s\n", report.RunID)
	fmt.Fprintf(w, "  source  %s\n", report.Source)
	fmt.Fprintf(w, "  rows    %s read / %s skipped\n",
		t.p.Sprintf("%d", report.Rows), t.p.Sprintf("%d", report.RowsSkipped))
	if report.FirstYear > 0 {
		fmt.Fprintf(w, "  period  %d-%d\n", report.FirstYear, report.LastYear)
	}
	fmt.Fprintf(w, "  types   %s distinct event types\n", t.p.Sprintf("%d", report.EventTypes))
	fmt.Fprintf(w, "  toll    %s fatalities / %s injuries\n",
		t.count(report.Grand.Fatalities), t.count(report.Grand.Injuries))
	fmt.Fprintf(w, "  damage  %s property / %s crop\n\n",
		usd(report.Grand.PropertyDamage), usd(report.Grand.CropDamage))
}

// column describes one value column of a ranked table.
type column struct {
	header string
	value  func(*domain.Totals) string
}

func (t *Tables) table(w io.Writer, title string, rows []domain.Totals, cols ...column) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s\n  (none)\n\n", title)
		return
	}
	fmt.Fprintf(w, "TOP %d %s\n", len(rows), title)

	rankW := len(fmt.Sprint(len(rows)))
	if rankW < len("RANK") {
		rankW = len("RANK")
	}
	eventW := len("EVENT TYPE")
	for i := range rows {
		if l := len(rows[i].EventType); l > eventW {
			eventW = l
		}
	}
	colW := make([]int, len(cols))
	values := make([][]string, len(rows))
	for c, col := range cols {
		colW[c] = len(col.header)
	}
	for i := range rows {
		values[i] = make([]string, len(cols))
		for c, col := range cols {
			v := col.value(&rows[i])
			values[i][c] = v
			if len(v) > colW[c] {
				colW[c] = len(v)
			}
		}
	}

	fmt.Fprintf(w, "  %*s  %-*s", rankW, "RANK", eventW, "EVENT TYPE")
	for c, col := range cols {
		fmt.Fprintf(w, "  %*s", colW[c], col.header)
	}
	fmt.Fprintln(w)

	for i := range rows {
		fmt.Fprintf(w, "  %*d  %-*s", rankW, i+1, eventW, rows[i].EventType)
		for c := range cols {
			fmt.Fprintf(w, "  %*s", colW[c], values[i][c])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

func (t *Tables) count(v float64) string {
	return t.p.Sprintf("%.0f", v)
}

// usd renders a dollar amount the way the tables and the chart axes show
// money: humanized to the nearest K/M/B step.
func usd(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}
