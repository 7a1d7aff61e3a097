package pipeline

import (
	"errors"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/state"
)

// Consolidation errors.
var (
	// ErrEmptyDataset aborts a full refresh that produced zero records. A
	// bulk download with no rows indicates an upstream problem and must not
	// wipe the prior dataset.
	ErrEmptyDataset = errors.New("full refresh produced no records")

	// ErrNoNewData is a soft signal: an incremental run found nothing to
	// merge. The dataset is returned unchanged and state still advances.
	ErrNoNewData = errors.New("no new records to merge")
)

// Consolidator merges normalized sales into the consolidated dataset. It is
// pure: persistence ordering is the caller's responsibility.
type Consolidator struct {
	chunkSize int
	log       *logger.Logger
}

// NewConsolidator creates a Consolidator that folds candidates through the
// dedup set in chunks of at most chunkSize records.
func NewConsolidator(chunkSize int, log *logger.Logger) *Consolidator {
	return &Consolidator{chunkSize: chunkSize, log: log}
}

// Consolidate merges newRecords with the existing dataset according to mode
// and returns the updated dataset plus the number of duplicates removed.
//
// Full mode ignores the existing dataset entirely and deduplicates the new
// batch against itself; an empty batch fails with ErrEmptyDataset before
// anything is touched. Incremental mode folds the existing dataset first so
// a stored record always wins over a resubmitted row with the same identity
// key; an empty batch returns the existing dataset with ErrNoNewData.
func (c *Consolidator) Consolidate(mode state.Mode, newRecords, existing []models.Sale) ([]models.Sale, int, error) {
	var candidates []models.Sale

	switch mode {
	case state.ModeFull:
		if len(newRecords) == 0 {
			return nil, 0, ErrEmptyDataset
		}
		candidates = newRecords
	default:
		if len(newRecords) == 0 {
			return existing, 0, ErrNoNewData
		}
		candidates = make([]models.Sale, 0, len(existing)+len(newRecords))
		candidates = append(candidates, existing...)
		candidates = append(candidates, newRecords...)
	}

	dataset, removed := c.fold(candidates)

	// Existing records are already unique, so every removal in incremental
	// mode is a new row colliding with a stored or sibling row.
	c.log.Info("Consolidation completed", map[string]interface{}{
		"mode":               string(mode),
		"candidates":         len(candidates),
		"total_records":      len(dataset),
		"duplicates_removed": removed,
	})
	return dataset, removed, nil
}

// fold deduplicates candidates in bounded-size chunks. Chunks are processed
// sequentially and share one identity-key set, so the result is identical to
// folding the whole input at once; chunking only bounds peak memory.
func (c *Consolidator) fold(candidates []models.Sale) ([]models.Sale, int) {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]models.Sale, 0, len(candidates))
	removed := 0

	for start := 0; start < len(candidates); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		var n int
		out, n = foldInto(seen, out, candidates[start:end])
		removed += n
	}
	return out, removed
}
