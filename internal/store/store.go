package store

import (
	"context"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
)

// DatasetStore is the interface any consolidated dataset backend must satisfy.
// The dataset is only ever replaced wholesale: incremental merges happen in
// memory and the result is written back as a unit.
type DatasetStore interface {
	// Load returns the full consolidated dataset in stored order, or nil when
	// no dataset has been written yet (not an error).
	Load(ctx context.Context) ([]models.Sale, error)

	// Replace atomically swaps the stored dataset for the given one. Readers
	// must never observe a half-written dataset.
	Replace(ctx context.Context, sales []models.Sale) error

	// Count returns the number of stored records, zero when no dataset exists.
	Count(ctx context.Context) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
