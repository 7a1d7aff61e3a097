package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
)

// Mode identifies how a pipeline run sources its data.
type Mode string

const (
	// ModeFull discards the consolidated dataset and rebuilds it from the
	// complete historical archive.
	ModeFull Mode = "full"
	// ModeIncremental merges newly published monthly files into the existing
	// dataset.
	ModeIncremental Mode = "incremental"
	// ModePartial records an incremental run where some expected source files
	// could not be fetched. A partial run forces a full refresh next time.
	ModePartial Mode = "partial"
)

// State is the persisted record of what has been consolidated so far. It is
// loaded at the start of every run and replaced wholesale at the end of a
// successful one; it is never mutated mid-run.
type State struct {
	LastRunTimestamp          time.Time `json:"last_run_timestamp"`
	ModeOfLastRun             Mode      `json:"mode_of_last_run"`
	MinSaleDateCovered        time.Time `json:"min_sale_date_covered"`
	MaxSaleDateCovered        time.Time `json:"max_sale_date_covered"`
	TotalRecordCount          int       `json:"total_record_count"`
	LastDuplicateCountRemoved int       `json:"last_duplicate_count_removed"`
}

// DecideMode picks the mode for the next run. No prior state, an explicit
// force flag, or a prior partial failure all demand a full refresh.
func DecideMode(st *State, forceFull bool) Mode {
	if st == nil || forceFull || st.ModeOfLastRun == ModePartial {
		return ModeFull
	}
	return ModeIncremental
}

// Advance derives the successor state from a completed run. The caller must
// only invoke this after the dataset itself has been persisted, so state can
// never claim coverage of data that was not written.
func Advance(summary models.RunSummary) *State {
	return &State{
		LastRunTimestamp:          summary.FinishedAt,
		ModeOfLastRun:             Mode(summary.Mode),
		MinSaleDateCovered:        summary.EarliestSaleDate,
		MaxSaleDateCovered:        summary.LatestSaleDate,
		TotalRecordCount:          summary.TotalRecords,
		LastDuplicateCountRemoved: summary.DuplicatesRemoved,
	}
}

// Store persists pipeline state as a small JSON file.
type Store struct {
	path string
	log  *logger.Logger
}

// NewStore creates a state store backed by the file at path.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load reads the prior state. A missing file returns nil (no prior run, which
// forces a full refresh). A file that fails to parse is treated the same way:
// corrupt state self-heals into a full run rather than aborting the pipeline.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("No prior pipeline state found", map[string]interface{}{
				"path": s.path,
			})
			return nil, nil
		}
		return nil, fmt.Errorf("read state file %q: %w", s.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn("Pipeline state is corrupt, forcing full refresh", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return nil, nil
	}
	return &st, nil
}

// Save writes the state atomically via a temp file and rename.
func (s *Store) Save(st *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	s.log.Info("Pipeline state saved", map[string]interface{}{
		"path":          s.path,
		"mode":          string(st.ModeOfLastRun),
		"total_records": st.TotalRecordCount,
	})
	return nil
}
