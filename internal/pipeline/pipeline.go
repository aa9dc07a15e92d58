package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
	"github.com/couchcryptid/storm-impact-report/internal/observability"
)

// BatchExtractor reads up to batchSize raw records from the source.
// A fully consumed source is signaled with io.EOF and ends the run.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error)
	// Skipped reports rows the source dropped before they reached the pipeline.
	Skipped() int
}

// Transformer coerces a raw record into an observation.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawRecord) (domain.Observation, error)
}

// Accumulator folds observations into per-event-type totals and assembles
// the final report.
type Accumulator interface {
	Add(obs domain.Observation)
	Report(meta domain.Meta, topN int) *domain.Report
}

// Renderer emits an assembled report to one output sink.
type Renderer interface {
	Name() string
	Render(ctx context.Context, report *domain.Report) error
}

// Pipeline orchestrates the extract-transform-aggregate-render run.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	accumulator Accumulator
	renderers   []Renderer
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	topN        int
	skipped     int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, a Accumulator, renderers []Renderer, logger *slog.Logger, metrics *observability.Metrics, batchSize, topN int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		accumulator: a,
		renderers:   renderers,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		topN:        topN,
	}
}

// Run executes the batch loop until the source is exhausted, then assembles
// the report and feeds it to every renderer in order. A cancelled context or
// a failed stage aborts the run without emitting a partial report.
func (p *Pipeline) Run(ctx context.Context, runID, source string) (*domain.Report, error) {
	p.logger.Info("pipeline started",
		"run_id", runID,
		"source", source,
		"batch_size", p.batchSize,
		"top_n", p.topN,
	)
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil, ctx.Err()
		default:
		}

		done, err := p.processBatch(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	report := p.accumulator.Report(domain.Meta{
		RunID:       runID,
		Source:      source,
		RowsSkipped: p.extractor.Skipped() + p.skipped,
	}, p.topN)
	p.metrics.EventTypes.Set(float64(report.EventTypes))
	p.logger.Info("aggregation complete",
		"rows", report.Rows,
		"rows_skipped", report.RowsSkipped,
		"event_types", report.EventTypes,
	)

	for _, r := range p.renderers {
		renderStart := time.Now()
		if err := r.Render(ctx, report); err != nil {
			return nil, fmt.Errorf("render %s: %w", r.Name(), err)
		}
		p.metrics.RenderDuration.WithLabelValues(r.Name()).Observe(time.Since(renderStart).Seconds())
	}

	p.metrics.RunDuration.Set(time.Since(start).Seconds())
	p.metrics.LastSuccess.SetToCurrentTime()
	p.logger.Info("pipeline finished", "duration", time.Since(start).Round(time.Millisecond).String())
	return report, nil
}

// processBatch runs one extract-transform-aggregate cycle. done reports that
// the source is exhausted.
func (p *Pipeline) processBatch(ctx context.Context) (done bool, err error) {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("extract batch: %w", err)
	}
	if len(rawBatch) == 0 {
		return false, nil
	}

	p.metrics.RowsExtracted.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))

	aggregated := 0
	for _, raw := range rawBatch {
		obs, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping row", "error", err, "event_type", raw.EventType)
			p.metrics.TransformErrors.Inc()
			p.skipped++
			continue
		}
		p.accumulator.Add(obs)
		aggregated++
	}

	p.metrics.RowsAggregated.Add(float64(aggregated))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return false, nil
}
