package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/config"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/pipeline"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/source"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/state"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/store"
)

// ErrTooManyMalformedRows fails a run whose malformed-row ratio exceeds the
// configured tolerance. Nothing is persisted in that case.
var ErrTooManyMalformedRows = errors.New("malformed rows exceed configured tolerance")

// RecordSource supplies raw row batches from the register.
type RecordSource interface {
	// FetchFull returns batches for the complete historical archive.
	FetchFull(ctx context.Context) ([]source.Batch, error)

	// FetchMonths returns batches for the given monthly files. The bool
	// reports a partial fetch (some months failed outright).
	FetchMonths(ctx context.Context, months []source.Month) ([]source.Batch, bool, error)
}

// StateStore persists pipeline state between runs.
type StateStore interface {
	Load() (*state.State, error)
	Save(st *state.State) error
}

// PipelineService runs one consolidation cycle: decide mode, fetch, normalize,
// deduplicate, merge, persist. Runs are exclusive and synchronous; a run
// either completes the consolidate-then-persist sequence or fails before any
// persisted state changes.
type PipelineService struct {
	cfg          *config.Config
	src          RecordSource
	datasets     store.DatasetStore
	states       StateStore
	normalizer   *pipeline.Normalizer
	consolidator *pipeline.Consolidator
	log          *logger.Logger
	now          func() time.Time
}

// NewPipelineService wires a PipelineService from its collaborators.
func NewPipelineService(cfg *config.Config, src RecordSource, datasets store.DatasetStore, states StateStore, log *logger.Logger) *PipelineService {
	return &PipelineService{
		cfg:          cfg,
		src:          src,
		datasets:     datasets,
		states:       states,
		normalizer:   pipeline.NewNormalizer(log),
		consolidator: pipeline.NewConsolidator(cfg.Pipeline.ChunkSize, log),
		log:          log,
		now:          time.Now,
	}
}

// Run executes one pipeline run and returns its summary.
//
// Soft outcome: when an incremental run finds nothing new, Run returns the
// summary together with pipeline.ErrNoNewData; the dataset is untouched but
// state still advances so the run is recorded.
func (s *PipelineService) Run(ctx context.Context, forceFull bool) (models.RunSummary, error) {
	started := s.now()
	runID := uuid.New().String()
	log := s.log.WithRunID(runID)

	prior, err := s.states.Load()
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("load pipeline state: %w", err)
	}
	mode := state.DecideMode(prior, forceFull)

	log.Info("Starting pipeline run", map[string]interface{}{
		"mode":       string(mode),
		"force_full": forceFull,
	})

	existing, batches, partial, err := s.fetch(ctx, log, mode, prior)
	if err != nil {
		return models.RunSummary{}, err
	}

	newRecords, skipped, rawTotal, files := s.normalize(batches)

	if rawTotal > 0 {
		ratio := float64(skipped) / float64(rawTotal)
		if ratio > s.cfg.Pipeline.MalformedTolerance {
			return models.RunSummary{}, fmt.Errorf("%w: %d of %d rows (tolerance %.2f)",
				ErrTooManyMalformedRows, skipped, rawTotal, s.cfg.Pipeline.MalformedTolerance)
		}
	}

	dataset, removed, err := s.consolidator.Consolidate(mode, newRecords, existing)
	noNewData := errors.Is(err, pipeline.ErrNoNewData)
	if err != nil && !noNewData {
		return models.RunSummary{}, err
	}

	runMode := mode
	if partial {
		runMode = state.ModePartial
	}

	earliest, latest := models.DateRange(dataset)
	summary := models.RunSummary{
		Mode:              string(runMode),
		RecordsProcessed:  len(newRecords),
		DuplicatesRemoved: removed,
		MalformedSkipped:  skipped,
		TotalRecords:      len(dataset),
		EarliestSaleDate:  earliest,
		LatestSaleDate:    latest,
		FilesProcessed:    files,
		StartedAt:         started,
		FinishedAt:        s.now(),
	}

	// Persist the dataset before the state. A crash in between leaves state
	// stale, which the next run repairs through dedup; the reverse ordering
	// could claim coverage of data that was never written.
	if !noNewData {
		if err := s.datasets.Replace(ctx, dataset); err != nil {
			return models.RunSummary{}, fmt.Errorf("persist dataset: %w", err)
		}
	}
	if err := s.states.Save(state.Advance(summary)); err != nil {
		return models.RunSummary{}, fmt.Errorf("persist pipeline state: %w", err)
	}

	log.Info("Pipeline run completed", map[string]interface{}{
		"mode":               summary.Mode,
		"records_processed":  summary.RecordsProcessed,
		"duplicates_removed": summary.DuplicatesRemoved,
		"malformed_skipped":  summary.MalformedSkipped,
		"total_records":      summary.TotalRecords,
	})

	if noNewData {
		return summary, pipeline.ErrNoNewData
	}
	return summary, nil
}

// fetch loads the existing dataset (incremental only) and the raw batches for
// the chosen mode.
func (s *PipelineService) fetch(ctx context.Context, log *logger.Logger, mode state.Mode, prior *state.State) ([]models.Sale, []source.Batch, bool, error) {
	if mode == state.ModeFull {
		batches, err := s.src.FetchFull(ctx)
		if err != nil {
			return nil, nil, false, fmt.Errorf("fetch full archive: %w", err)
		}
		return nil, batches, false, nil
	}

	existing, err := s.datasets.Load(ctx)
	if err != nil {
		return nil, nil, false, fmt.Errorf("load consolidated dataset: %w", err)
	}

	months := source.MonthsToUpdate(prior, s.now())
	if len(months) == 0 {
		log.Info("No months pending", nil)
		return existing, nil, false, nil
	}
	log.Info("Fetching monthly files", map[string]interface{}{
		"months": len(months),
		"first":  months[0].String(),
		"last":   months[len(months)-1].String(),
	})

	batches, partial, err := s.src.FetchMonths(ctx, months)
	if err != nil {
		return nil, nil, false, fmt.Errorf("fetch monthly files: %w", err)
	}
	return existing, batches, partial, nil
}

// normalize runs every batch through the normalizer, keeping a per-run total
// of raw rows and skipped rows for the tolerance check.
func (s *PipelineService) normalize(batches []source.Batch) ([]models.Sale, int, int, []string) {
	var (
		records  []models.Sale
		skipped  int
		rawTotal int
		files    []string
	)
	for _, batch := range batches {
		sales, n := s.normalizer.NormalizeBatch(batch.Rows, batch.SourceFile)
		records = append(records, sales...)
		skipped += n
		rawTotal += len(batch.Rows)
		files = append(files, batch.SourceFile)
	}
	return records, skipped, rawTotal, files
}
