package pipeline

import (
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
)

// Deduplicate removes sales that share an identity key, keeping the first
// occurrence in input order. It returns the survivors and the number of
// duplicates discarded.
//
// First-wins ordering is the tie-break contract: callers must place the more
// authoritative records first (the existing consolidated dataset ahead of a
// newly fetched batch) so a stored sale is never silently replaced by a
// resubmitted row with the same key.
func Deduplicate(sales []models.Sale) ([]models.Sale, int) {
	seen := make(map[string]struct{}, len(sales))
	out := make([]models.Sale, 0, len(sales))
	out, removed := foldInto(seen, out, sales)
	return out, removed
}

// foldInto merges one batch into an accumulating deduplicated slice. The seen
// set carries identity keys across calls, so duplicates spanning batch or
// chunk boundaries are detected exactly like intra-batch ones.
func foldInto(seen map[string]struct{}, out []models.Sale, batch []models.Sale) ([]models.Sale, int) {
	removed := 0
	for _, sale := range batch {
		key := sale.IdentityKey()
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sale)
	}
	return out, removed
}
