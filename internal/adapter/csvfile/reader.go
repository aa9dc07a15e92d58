package csvfile

import (
	"compress/bzip2"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
)

// requiredColumns must all be present in the header. BGN_DATE is not
// required: without it the report only loses its year-range line.
var requiredColumns = []string{
	"EVTYPE", "FATALITIES", "INJURIES",
	"PROPDMG", "PROPDMGEXP", "CROPDMG", "CROPDMGEXP",
}

// Reader streams RawRecords from a Storm Data CSV file, transparently
// decompressing bzip2, gzip, and zstd inputs by file extension.
// It implements pipeline.BatchExtractor.
type Reader struct {
	path    string
	file    *os.File
	decomp  io.Closer // set when a compression layer needs closing
	csv     *csv.Reader
	cols    map[string]int
	logger  *slog.Logger
	skipped int
	done    bool
}

// Open opens path, selects the decompression layer by extension (.bz2, .gz,
// .zst, else plain), and reads the header row.
func Open(path string, logger *slog.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	r := &Reader{path: path, file: f, logger: logger}

	var src io.Reader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bz2":
		src = bzip2.NewReader(f)
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		r.decomp = zr
		src = zr
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		rc := dec.IOReadCloser()
		r.decomp = rc
		src = rc
	default:
		src = f
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1 // the archive has ragged rows
	cr.LazyQuotes = true    // and stray quotes inside fields
	cr.ReuseRecord = true
	r.csv = cr

	if err := r.readHeader(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("input %s: missing column %s", r.path, name)
		}
	}

	r.cols = cols
	return nil
}

// ExtractBatch reads up to batchSize rows. The final batch may be short;
// once the file is exhausted it returns io.EOF.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make([]domain.RawRecord, 0, batchSize)
	for len(batch) < batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			if len(batch) == 0 {
				return nil, io.EOF
			}
			return batch, nil
		}
		if err != nil {
			// encoding/csv recovers per record, so one bad line costs one row.
			r.skipped++
			r.logger.Debug("skipping malformed csv line", "error", err)
			continue
		}

		batch = append(batch, r.record(row))
	}
	return batch, nil
}

func (r *Reader) record(row []string) domain.RawRecord {
	return domain.RawRecord{
		EventType:     r.get(row, "EVTYPE"),
		BeginDate:     r.get(row, "BGN_DATE"),
		Fatalities:    r.get(row, "FATALITIES"),
		Injuries:      r.get(row, "INJURIES"),
		PropDamage:    r.get(row, "PROPDMG"),
		PropDamageExp: r.get(row, "PROPDMGEXP"),
		CropDamage:    r.get(row, "CROPDMG"),
		CropDamageExp: r.get(row, "CROPDMGEXP"),
	}
}

// get returns the named column of row, or "" when the column is absent or
// the row is too short.
func (r *Reader) get(row []string, col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Skipped reports rows dropped by the CSV layer so far.
func (r *Reader) Skipped() int { return r.skipped }

// Close releases the decompression layer (if any) and the underlying file.
func (r *Reader) Close() error {
	var errs []error
	if r.decomp != nil {
		if err := r.decomp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close decompressor: %w", err))
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close file: %w", err))
	}
	return errors.Join(errs...)
}
