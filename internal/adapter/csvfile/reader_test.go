package csvfile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readAll(t *testing.T, r *Reader, batchSize int) []domain.RawRecord {
	t.Helper()

	var out []domain.RawRecord
	for {
		batch, err := r.ExtractBatch(context.Background(), batchSize)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, batch...)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join("testdata", "nope.csv"), testLogger())
	require.Error(t, err)
}

func TestOpenMissingColumn(t *testing.T) {
	_, err := Open(filepath.Join("testdata", "storm_missing_column.csv"), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column PROPDMGEXP")
}

func TestExtractBatch(t *testing.T) {
	r, err := Open(filepath.Join("testdata", "storm_sample.csv"), testLogger())
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()

	batch, err := r.ExtractBatch(ctx, 5)
	require.NoError(t, err)
	require.Len(t, batch, 5)

	assert.Equal(t, domain.RawRecord{
		EventType:     "TORNADO",
		BeginDate:     "4/18/1950 0:00:00",
		Fatalities:    "2",
		Injuries:      "15",
		PropDamage:    "25.0",
		PropDamageExp: "K",
		CropDamage:    "0",
		CropDamageExp: "",
	}, batch[0])

	// The quoted remarks field must not derail the row that carries it.
	assert.Equal(t, "Tstm Wind", batch[1].EventType)
	assert.Equal(t, "K", batch[1].CropDamageExp)

	batch, err = r.ExtractBatch(ctx, 5)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	_, err = r.ExtractBatch(ctx, 5)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, r.Skipped())
}

func TestExtractBatchRaggedRow(t *testing.T) {
	r, err := Open(filepath.Join("testdata", "storm_sample.csv"), testLogger())
	require.NoError(t, err)
	defer r.Close()

	records := readAll(t, r, 3)
	require.Len(t, records, 8)

	ragged := records[6]
	assert.Equal(t, "HEAT", ragged.EventType)
	assert.Equal(t, "1/1/2000 0:00:00", ragged.BeginDate)
	assert.Empty(t, ragged.Fatalities)
	assert.Empty(t, ragged.PropDamageExp)

	blank := records[5]
	assert.Empty(t, blank.EventType)
}

func TestOpenCompressed(t *testing.T) {
	for _, ext := range []string{".bz2", ".gz", ".zst"} {
		t.Run(strings.TrimPrefix(ext, "."), func(t *testing.T) {
			r, err := Open(filepath.Join("testdata", "storm_sample.csv"+ext), testLogger())
			require.NoError(t, err)

			records := readAll(t, r, 64)
			assert.Len(t, records, 8)
			assert.Equal(t, "TORNADO", records[0].EventType)
			assert.Equal(t, "heat", records[7].EventType)

			require.NoError(t, r.Close())
		})
	}
}

func TestExtractBatchCanceledContext(t *testing.T) {
	r, err := Open(filepath.Join("testdata", "storm_sample.csv"), testLogger())
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.ExtractBatch(ctx, 5)
	require.ErrorIs(t, err, context.Canceled)
}
