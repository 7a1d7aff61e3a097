package source

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/config"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
)

// ErrNotAvailable means the requested file is not published (yet). Monthly
// files appear with a lag, so callers treat this as a skip, not a failure.
var ErrNotAvailable = errors.New("source file not available")

const userAgent = "Mozilla/5.0 (PropertyPriceRegister pipeline)"

// Downloader fetches register files over HTTP with retries and exponential
// backoff. Partial downloads never survive a failed attempt.
type Downloader struct {
	cfg    config.SourceConfig
	client *http.Client
	log    *logger.Logger
}

// NewDownloader creates a Downloader for the configured register site.
func NewDownloader(cfg config.SourceConfig, log *logger.Logger) *Downloader {
	return &Downloader{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				// The register site serves an incomplete certificate chain.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		log: log,
	}
}

// DownloadAll fetches the complete historical archive (PPR-ALL.zip) and
// returns the local path.
func (d *Downloader) DownloadAll(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/PPR-ALL.zip/$FILE/PPR-ALL.zip", d.cfg.BaseURL)
	dest := filepath.Join(d.cfg.DownloadDir, "initial", "PPR-ALL.zip")
	if err := d.download(ctx, url, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// DownloadMonth fetches one monthly register file and returns the local path.
// Returns ErrNotAvailable when the month has not been published.
func (d *Downloader) DownloadMonth(ctx context.Context, m Month) (string, error) {
	name := fmt.Sprintf("PPR-%d-%02d.csv", m.Year, int(m.Month))
	url := fmt.Sprintf("%s/%s/$FILE/%s", d.cfg.BaseURL, name, name)
	dest := filepath.Join(d.cfg.DownloadDir, "monthly", name)
	if err := d.download(ctx, url, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// download streams the URL to a temp file, verifies a minimum size, and
// renames it into place. Retries with exponential backoff on transient
// failures; a 404 short-circuits as ErrNotAvailable.
func (d *Downloader) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	var lastErr error
	delay := d.cfg.RetryDelay

	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		d.log.Info("Downloading file", map[string]interface{}{
			"url":     url,
			"attempt": attempt,
			"of":      d.cfg.MaxRetries,
		})

		err := d.fetchOnce(ctx, url, dest)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotAvailable) || ctx.Err() != nil {
			return err
		}

		lastErr = err
		d.log.Warn("Download attempt failed", map[string]interface{}{
			"url":     url,
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < d.cfg.MaxRetries {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("download %s failed after %d attempts: %w", url, d.cfg.MaxRetries, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotAvailable
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("stream body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if written < d.cfg.MinFileSize {
		return fmt.Errorf("file too small (%d bytes), likely an error page", written)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}

	d.log.Info("Download completed", map[string]interface{}{
		"dest":  dest,
		"bytes": written,
	})
	return nil
}
