package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/config"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/database"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/pipeline"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/services"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/source"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/state"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/store"
)

func main() {
	forceFull := flag.Bool("force-full", false, "discard the consolidated dataset and rebuild from the full archive")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg.Server.Env)
	if *verbose {
		log.SetDebug()
	}
	log.Info("Starting PPR pipeline", map[string]interface{}{
		"environment": cfg.Server.Env,
		"storage":     cfg.Storage.Backend,
		"force_full":  *forceFull,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	datasets, cleanup, err := buildDatasetStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize dataset store", err, map[string]interface{}{
			"backend": cfg.Storage.Backend,
		})
	}
	defer cleanup()

	states := state.NewStore(cfg.Storage.StateFile, log)
	src := source.NewClient(cfg.Source, log)
	svc := services.NewPipelineService(cfg, src, datasets, states, log)

	summary, err := svc.Run(ctx, *forceFull)
	if err != nil && !errors.Is(err, pipeline.ErrNoNewData) {
		log.Error("Pipeline run failed", err, nil)
		os.Exit(1)
	}

	fields := map[string]interface{}{
		"mode":               summary.Mode,
		"records_processed":  summary.RecordsProcessed,
		"duplicates_removed": summary.DuplicatesRemoved,
		"malformed_skipped":  summary.MalformedSkipped,
		"total_records":      summary.TotalRecords,
		"duration":           summary.FinishedAt.Sub(summary.StartedAt).String(),
	}
	if !summary.LatestSaleDate.IsZero() {
		fields["earliest_sale_date"] = summary.EarliestSaleDate.Format("2006-01-02")
		fields["latest_sale_date"] = summary.LatestSaleDate.Format("2006-01-02")
	}
	if errors.Is(err, pipeline.ErrNoNewData) {
		log.Info("Pipeline run found no new data", fields)
	} else {
		log.Info("Pipeline run succeeded", fields)
	}
}

// buildDatasetStore constructs the configured dataset backend. The returned
// cleanup closes the database pool for the postgres backend.
func buildDatasetStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.DatasetStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		pg, err := store.NewPostgresStore(ctx, db, log)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return pg, db.Close, nil
	default:
		return store.NewCSVStore(cfg.ConsolidatedFile(), log), func() {}, nil
	}
}
