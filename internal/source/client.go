package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/config"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
)

// Client is the raw record source for the pipeline: it fetches register
// files and turns them into row batches.
type Client struct {
	downloader *Downloader
	extractDir string
	log        *logger.Logger
}

// NewClient creates a Client for the configured register site.
func NewClient(cfg config.SourceConfig, log *logger.Logger) *Client {
	return &Client{
		downloader: NewDownloader(cfg, log),
		extractDir: filepath.Join(cfg.DownloadDir, "initial"),
		log:        log,
	}
}

// FetchFull downloads the complete historical archive and returns one batch
// per CSV member. Files that cannot be parsed are skipped with a warning;
// the fetch fails only when no member yields rows.
func (c *Client) FetchFull(ctx context.Context) ([]Batch, error) {
	zipPath, err := c.downloader.DownloadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}

	files, err := ExtractArchive(zipPath, c.extractDir, c.log)
	if err != nil {
		return nil, err
	}

	var batches []Batch
	for _, file := range files {
		batch, err := ReadCSVFile(file, c.log)
		if err != nil {
			c.log.Warn("Skipping unreadable source file", map[string]interface{}{
				"file":  file,
				"error": err.Error(),
			})
			continue
		}
		batches = append(batches, batch)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("archive %q contained no readable CSV files", zipPath)
	}
	return batches, nil
}

// FetchMonths downloads the given monthly files. Months that are not yet
// published are skipped; months that fail outright mark the fetch partial so
// the next run falls back to a full refresh. The returned bool reports that
// partial outcome.
func (c *Client) FetchMonths(ctx context.Context, months []Month) ([]Batch, bool, error) {
	var batches []Batch
	partial := false

	for _, m := range months {
		path, err := c.downloader.DownloadMonth(ctx, m)
		if err != nil {
			if errors.Is(err, ErrNotAvailable) {
				c.log.Info("Monthly file not published yet", map[string]interface{}{
					"month": m.String(),
				})
				continue
			}
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			partial = true
			c.log.Warn("Monthly download failed", map[string]interface{}{
				"month": m.String(),
				"error": err.Error(),
			})
			continue
		}

		batch, err := ReadCSVFile(path, c.log)
		if err != nil {
			partial = true
			c.log.Warn("Skipping unreadable monthly file", map[string]interface{}{
				"month": m.String(),
				"error": err.Error(),
			})
			continue
		}
		batches = append(batches, batch)
	}

	return batches, partial, nil
}
