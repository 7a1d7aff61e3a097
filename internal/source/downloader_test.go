package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/config"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
)

func newTestDownloader(t *testing.T, baseURL string) *Downloader {
	t.Helper()
	return NewDownloader(config.SourceConfig{
		BaseURL:     baseURL,
		DownloadDir: t.TempDir(),
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		Timeout:     5 * time.Second,
		MinFileSize: 10,
	}, logger.New("test"))
}

func TestDownloadMonth_Success(t *testing.T) {
	body := strings.Repeat("x", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "PPR-2024-05.csv")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	path, err := d.DownloadMonth(context.Background(), Month{Year: 2024, Month: time.May})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestDownloadMonth_NotPublished(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	_, err := d.DownloadMonth(context.Background(), Month{Year: 2030, Month: time.January})

	assert.ErrorIs(t, err, ErrNotAvailable)
	// 404 means the month is not published; retrying would not help.
	assert.Equal(t, int32(1), requests.Load())
}

func TestDownload_RetriesTransientFailures(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	path, err := d.DownloadMonth(context.Background(), Month{Year: 2024, Month: time.May})
	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestDownload_GivesUpAfterMaxRetries(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	_, err := d.DownloadMonth(context.Background(), Month{Year: 2024, Month: time.May})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), requests.Load())
}

func TestDownload_RejectsTinyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Shorter than MinFileSize; the register serves HTML error pages with
		// a 200 status.
		w.Write([]byte("err"))
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	_, err := d.DownloadMonth(context.Background(), Month{Year: 2024, Month: time.May})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")
}

func TestDownload_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DownloadMonth(ctx, Month{Year: 2024, Month: time.May})
	assert.Error(t, err)
}
