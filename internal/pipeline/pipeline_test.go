package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
	"github.com/couchcryptid/storm-impact-report/internal/observability"
	"github.com/couchcryptid/storm-impact-report/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawRecord
	index   int
	skipped int
	err     error
}

func (m *mockExtractor) ExtractBatch(_ context.Context, _ int) ([]domain.RawRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.index >= len(m.batches) {
		return nil, io.EOF
	}
	batch := m.batches[m.index]
	m.index++
	return batch, nil
}

func (m *mockExtractor) Skipped() int { return m.skipped }

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawRecord) (domain.Observation, error) {
	if m.err != nil {
		return domain.Observation{}, m.err
	}
	return domain.Observation{EventType: raw.EventType, Fatalities: 1}, nil
}

type mockRenderer struct {
	name     string
	rendered []*domain.Report
	err      error
}

func (m *mockRenderer) Name() string { return m.name }

func (m *mockRenderer) Render(_ context.Context, report *domain.Report) error {
	if m.err != nil {
		return m.err
	}
	m.rendered = append(m.rendered, report)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{
		batches: [][]domain.RawRecord{
			{
				{EventType: "TORNADO", BeginDate: "4/18/1950 0:00:00", Fatalities: "2", Injuries: "15", PropDamage: "25.0", PropDamageExp: "K"},
				{EventType: "Flood", Fatalities: "0", Injuries: "3", PropDamage: "2.5", PropDamageExp: "M", CropDamage: "1", CropDamageExp: "K"},
			},
			{
				{EventType: "tornado", Fatalities: "1"},
			},
		},
	}
	tables := &mockRenderer{name: "tables"}
	charts := &mockRenderer{name: "charts"}
	metrics := observability.NewMetrics()

	p := pipeline.New(ext, pipeline.NewTransformer(), domain.NewAggregator(),
		[]pipeline.Renderer{tables, charts}, testLogger(), metrics, 5, 10)

	report, err := p.Run(context.Background(), "run-1", "storm.csv")
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "storm.csv", report.Source)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 0, report.RowsSkipped)
	assert.Equal(t, 2, report.EventTypes)

	require.NotEmpty(t, report.TopByFatalities)
	want := domain.Totals{
		EventType:      "TORNADO",
		Observations:   2,
		Fatalities:     3,
		Injuries:       15,
		PropertyDamage: 25_000,
	}
	if diff := cmp.Diff(want, report.TopByFatalities[0]); diff != "" {
		t.Fatalf("tornado totals mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, tables.rendered, 1)
	require.Len(t, charts.rendered, 1)
	assert.Same(t, report, tables.rendered[0])
}

func TestPipeline_Run_CountsSkippedRows(t *testing.T) {
	ext := &mockExtractor{
		skipped: 2,
		batches: [][]domain.RawRecord{
			{
				{EventType: "HAIL", Injuries: "1"},
				{EventType: "   "},
			},
		},
	}
	tables := &mockRenderer{name: "tables"}
	metrics := observability.NewMetrics()

	p := pipeline.New(ext, pipeline.NewTransformer(), domain.NewAggregator(),
		[]pipeline.Renderer{tables}, testLogger(), metrics, 5, 10)

	report, err := p.Run(context.Background(), "run-2", "storm.csv")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 3, report.RowsSkipped)

	path := filepath.Join(t.TempDir(), "report.prom")
	require.NoError(t, metrics.WriteTextfile(path, "run-2"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storm_report_transform_errors_total 1")
	assert.Contains(t, string(data), "storm_report_rows_extracted_total 2")
	assert.Contains(t, string(data), "storm_report_rows_aggregated_total 1")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawRecord{{{EventType: "HAIL"}}}}
	tables := &mockRenderer{name: "tables"}

	p := pipeline.New(ext, pipeline.NewTransformer(), domain.NewAggregator(),
		[]pipeline.Renderer{tables}, testLogger(), observability.NewMetrics(), 5, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "run-3", "storm.csv")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tables.rendered)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ext := &mockExtractor{err: errors.New("disk gone")}
	tables := &mockRenderer{name: "tables"}

	p := pipeline.New(ext, pipeline.NewTransformer(), domain.NewAggregator(),
		[]pipeline.Renderer{tables}, testLogger(), observability.NewMetrics(), 5, 10)

	_, err := p.Run(context.Background(), "run-4", "storm.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract batch")
	assert.Empty(t, tables.rendered)
}

func TestPipeline_Run_RenderError(t *testing.T) {
	ext := &mockExtractor{
		batches: [][]domain.RawRecord{{{EventType: "HAIL", Injuries: "1"}}},
	}
	tables := &mockRenderer{name: "tables", err: errors.New("broken pipe")}

	p := pipeline.New(ext, pipeline.NewTransformer(), domain.NewAggregator(),
		[]pipeline.Renderer{tables}, testLogger(), observability.NewMetrics(), 5, 10)

	_, err := p.Run(context.Background(), "run-5", "storm.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render tables")
}

func TestPipeline_Run_AllRowsRejected(t *testing.T) {
	ext := &mockExtractor{
		batches: [][]domain.RawRecord{
			{{EventType: "A"}, {EventType: "B"}},
		},
	}
	tables := &mockRenderer{name: "tables"}

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad row")}, domain.NewAggregator(),
		[]pipeline.Renderer{tables}, testLogger(), observability.NewMetrics(), 5, 10)

	report, err := p.Run(context.Background(), "run-6", "storm.csv")
	require.NoError(t, err)

	// An empty report still renders; the summary itself is the signal.
	require.Len(t, tables.rendered, 1)
	assert.Equal(t, 0, report.Rows)
	assert.Equal(t, 2, report.RowsSkipped)
	assert.Empty(t, report.TopByFatalities)
}

func TestRecordTransformer_Transform(t *testing.T) {
	tfm := pipeline.NewTransformer()

	obs, err := tfm.Transform(context.Background(), domain.RawRecord{
		EventType:     "Heavy   Rain",
		BeginDate:     "6/9/1994 0:00:00",
		Fatalities:    "1",
		PropDamage:    "2",
		PropDamageExp: "K",
	})
	require.NoError(t, err)
	assert.Equal(t, "HEAVY RAIN", obs.EventType)
	assert.Equal(t, 1994, obs.Year)
	assert.InDelta(t, 2000, obs.PropertyDamage, 1e-9)

	_, err = tfm.Transform(context.Background(), domain.RawRecord{Fatalities: "1"})
	require.ErrorIs(t, err, domain.ErrNoEventType)
}
