package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
)

// Chart filenames under the configured output directory.
const (
	CasualtiesChartFile = "storm-casualties.png"
	DamageChartFile     = "storm-damage.png"
)

const (
	titleFontSize = 22
	labelFontSize = 13

	colorInk        = "#1f2430"
	colorMuted      = "#6a7180"
	colorGrid       = "#e3e6eb"
	colorAxis       = "#9aa1ad"
	colorFatalities = "#c0392b"
	colorInjuries   = "#e67e22"
	colorProperty   = "#2980b9"
	colorCrop       = "#27ae60"

	maxBarLabelLen = 28
)

// Charts renders the two report charts as PNG files: harm to population
// health (fatality + injury segments) and economic consequences (property +
// crop segments), both as horizontal stacked bars over the top-ranked event
// types.
type Charts struct {
	dir       string
	width     int
	height    int
	titleFace font.Face
	labelFace font.Face
	logger    *slog.Logger
	p         *message.Printer
}

// NewCharts loads the chart fonts up front so a bad font path fails the run
// before any data is read.
func NewCharts(dir string, width, height int, fontPath string, logger *slog.Logger) (*Charts, error) {
	titleFace, err := fontFace(fontPath, titleFontSize)
	if err != nil {
		return nil, fmt.Errorf("load chart font: %w", err)
	}
	labelFace, err := fontFace(fontPath, labelFontSize)
	if err != nil {
		return nil, fmt.Errorf("load chart font: %w", err)
	}

	return &Charts{
		dir:       dir,
		width:     width,
		height:    height,
		titleFace: titleFace,
		labelFace: labelFace,
		logger:    logger,
		p:         message.NewPrinter(language.English),
	}, nil
}

func (c *Charts) Name() string { return "charts" }

func (c *Charts) Render(ctx context.Context, report *domain.Report) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	outputs := []struct {
		file  string
		chart chart
	}{
		{CasualtiesChartFile, c.casualtyChart(report)},
		{DamageChartFile, c.damageChart(report)},
	}
	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(c.dir, out.file)
		if err := c.draw(out.chart, path); err != nil {
			return fmt.Errorf("render %s: %w", out.file, err)
		}
		c.logger.Info("chart written", "path", path)
	}
	return nil
}

func (c *Charts) casualtyChart(report *domain.Report) chart {
	bars := make([]bar, 0, len(report.TopByCasualties))
	for _, t := range report.TopByCasualties {
		bars = append(bars, bar{
			label:    t.EventType,
			segments: []float64{t.Fatalities, t.Injuries},
		})
	}
	return chart{
		title: "Harm to population health by weather event type",
		subtitle: fmt.Sprintf("Top %d event types by combined casualties, %s",
			len(bars), periodLabel(report)),
		legend: []legendEntry{
			{"Fatalities", colorFatalities},
			{"Injuries", colorInjuries},
		},
		bars:   bars,
		format: c.countLabel,
	}
}

func (c *Charts) damageChart(report *domain.Report) chart {
	bars := make([]bar, 0, len(report.TopByTotalDamage))
	for _, t := range report.TopByTotalDamage {
		bars = append(bars, bar{
			label:    t.EventType,
			segments: []float64{t.PropertyDamage, t.CropDamage},
		})
	}
	return chart{
		title: "Economic consequences by weather event type",
		subtitle: fmt.Sprintf("Top %d event types by combined damage (USD), %s",
			len(bars), periodLabel(report)),
		legend: []legendEntry{
			{"Property damage", colorProperty},
			{"Crop damage", colorCrop},
		},
		bars:   bars,
		format: usd,
	}
}

func (c *Charts) countLabel(v float64) string {
	return c.p.Sprintf("%.0f", v)
}

type chart struct {
	title    string
	subtitle string
	legend   []legendEntry
	bars     []bar
	format   func(float64) string
}

type legendEntry struct {
	label string
	color string
}

type bar struct {
	label    string
	segments []float64
}

func (b bar) total() float64 {
	var t float64
	for _, v := range b.segments {
		t += v
	}
	return t
}

func (c *Charts) draw(ch chart, path string) error {
	dc := gg.NewContext(c.width, c.height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	margin := 32.0

	dc.SetFontFace(c.titleFace)
	dc.SetHexColor(colorInk)
	dc.DrawString(ch.title, margin, margin+16)

	dc.SetFontFace(c.labelFace)
	dc.SetHexColor(colorMuted)
	dc.DrawString(ch.subtitle, margin, margin+40)

	legendY := margin + 64
	c.drawLegend(dc, ch.legend, margin, legendY)

	if len(ch.bars) == 0 {
		dc.SetHexColor(colorMuted)
		dc.DrawStringAnchored("no data", float64(c.width)/2, float64(c.height)/2, 0.5, 0.5)
		return c.save(dc, path)
	}

	// The left edge clears the longest bar label, the right edge leaves room
	// for the total printed after each bar.
	maxTotal := 0.0
	labelW := 0.0
	valueW := 0.0
	for _, b := range ch.bars {
		if t := b.total(); t > maxTotal {
			maxTotal = t
		}
		if w, _ := dc.MeasureString(truncateLabel(b.label)); w > labelW {
			labelW = w
		}
		if w, _ := dc.MeasureString(ch.format(b.total())); w > valueW {
			valueW = w
		}
	}

	left := margin + labelW + 12
	right := float64(c.width) - margin - valueW - 8
	top := legendY + 28
	bottom := float64(c.height) - margin - 24

	step := niceStep(maxTotal, 5)
	niceMax := step * math.Ceil(maxTotal/step)
	scale := (right - left) / niceMax

	dc.SetLineWidth(1)
	for i := 0; ; i++ {
		v := float64(i) * step
		if v > niceMax+step/2 {
			break
		}
		x := left + v*scale
		dc.SetHexColor(colorGrid)
		dc.DrawLine(x, top, x, bottom)
		dc.Stroke()
		dc.SetHexColor(colorMuted)
		dc.DrawStringAnchored(ch.format(v), x, bottom+14, 0.5, 0.5)
	}
	dc.SetHexColor(colorAxis)
	dc.DrawLine(left, bottom, right, bottom)
	dc.Stroke()

	slot := (bottom - top) / float64(len(ch.bars))
	barH := slot * 0.62
	if barH > 36 {
		barH = 36
	}
	for i, b := range ch.bars {
		yc := top + slot*(float64(i)+0.5)

		dc.SetHexColor(colorInk)
		dc.DrawStringAnchored(truncateLabel(b.label), left-12, yc, 1, 0.5)

		x := left
		for s, v := range b.segments {
			w := v * scale
			dc.SetHexColor(ch.legend[s].color)
			dc.DrawRectangle(x, yc-barH/2, w, barH)
			dc.Fill()
			x += w
		}

		dc.SetHexColor(colorMuted)
		dc.DrawStringAnchored(ch.format(b.total()), x+6, yc, 0, 0.5)
	}

	return c.save(dc, path)
}

func (c *Charts) drawLegend(dc *gg.Context, entries []legendEntry, x, y float64) {
	for _, e := range entries {
		dc.SetHexColor(e.color)
		dc.DrawRectangle(x, y-5, 11, 11)
		dc.Fill()
		dc.SetHexColor(colorInk)
		dc.DrawStringAnchored(e.label, x+17, y, 0, 0.5)
		w, _ := dc.MeasureString(e.label)
		x += 17 + w + 22
	}
}

func (c *Charts) save(dc *gg.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := dc.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart file: %w", err)
	}
	return nil
}

// niceStep picks a 1, 2, or 5 decade step that yields about targetTicks axis
// divisions for the given maximum.
func niceStep(max float64, targetTicks int) float64 {
	if max <= 0 || targetTicks <= 0 {
		return 1
	}
	raw := max / float64(targetTicks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

// truncateLabel keeps rogue archive labels from swallowing the plot area.
// Event types are ASCII after normalization, so byte slicing is safe.
func truncateLabel(s string) string {
	if len(s) <= maxBarLabelLen {
		return s
	}
	return s[:maxBarLabelLen-3] + "..."
}

func periodLabel(r *domain.Report) string {
	switch {
	case r.FirstYear == 0:
		return "all recorded years"
	case r.FirstYear == r.LastYear:
		return fmt.Sprint(r.FirstYear)
	default:
		return fmt.Sprintf("%d-%d", r.FirstYear, r.LastYear)
	}
}
