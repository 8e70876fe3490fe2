package classwork

import (
	"errors"
	"fmt"
)

// Skipped is a raw row that was dropped from a batch, with its position and cause.
type Skipped struct {
	Index int   `json:"index"`
	Raw   Raw   `json:"raw"`
	Err   error `json:"-"`
}

// Reason is the human-readable cause, for reports.
func (s Skipped) Reason() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Batch is the result of normalizing a student's classwork.
type Batch struct {
	Items   []Normalized
	Skipped []Skipped
}

// NormalizeAll normalizes rows in order. Rows with a bad due date or score are
// skipped and reported in Batch.Skipped; a catalog mismatch aborts the batch.
func (n *Normalizer) NormalizeAll(raws []Raw) (Batch, error) {
	batch := Batch{Items: make([]Normalized, 0, len(raws))}
	for i, raw := range raws {
		item, err := n.Normalize(raw)
		if err == nil {
			batch.Items = append(batch.Items, item)
			continue
		}
		if errors.Is(err, ErrCatalogMismatch) {
			return Batch{}, fmt.Errorf("record %d: %w", i, err)
		}
		batch.Skipped = append(batch.Skipped, Skipped{Index: i, Raw: raw, Err: err})
	}
	return batch, nil
}
