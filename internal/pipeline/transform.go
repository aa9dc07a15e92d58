package pipeline

import (
	"context"

	"github.com/couchcryptid/storm-impact-report/internal/domain"
)

// RecordTransformer implements Transformer using the domain coercion rules.
type RecordTransformer struct{}

// NewTransformer creates a RecordTransformer.
func NewTransformer() *RecordTransformer {
	return &RecordTransformer{}
}

func (t *RecordTransformer) Transform(_ context.Context, raw domain.RawRecord) (domain.Observation, error) {
	return domain.ParseRecord(raw)
}
