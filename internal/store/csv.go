package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
)

// csvHeader is the column layout of the consolidated CSV file.
var csvHeader = []string{
	"sale_date",
	"address",
	"county",
	"eircode",
	"price_eur",
	"property_description",
	"not_full_market_price",
	"vat_exclusive",
}

// CSVStore persists the consolidated dataset as a single CSV file. Replace
// writes to a temp file in the same directory and renames it over the old
// one, so readers always see either the previous or the new dataset.
type CSVStore struct {
	path string
	log  *logger.Logger
}

// NewCSVStore creates a store backed by the CSV file at path.
func NewCSVStore(path string, log *logger.Logger) *CSVStore {
	return &CSVStore{path: path, log: log}
}

// Load reads the consolidated dataset. A missing file returns nil, nil.
func (s *CSVStore) Load(ctx context.Context) ([]models.Sale, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("No existing consolidated dataset", map[string]interface{}{
				"path": s.path,
			})
			return nil, nil
		}
		return nil, fmt.Errorf("csv store: open %q: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv store: read %q: %w", s.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sales := make([]models.Sale, 0, len(rows)-1)
	for i, row := range rows[1:] {
		sale, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv store: row %d: %w", i+2, err)
		}
		sales = append(sales, sale)
	}

	s.log.Info("Loaded consolidated dataset", map[string]interface{}{
		"path":    s.path,
		"records": len(sales),
	})
	return sales, nil
}

// Replace atomically swaps the stored dataset for the given one.
func (s *CSVStore) Replace(ctx context.Context, sales []models.Sale) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("csv store: create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ppr_consolidated-*.csv")
	if err != nil {
		return fmt.Errorf("csv store: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("csv store: write header: %w", err)
	}
	for _, sale := range sales {
		if err := w.Write(formatCSVRow(sale)); err != nil {
			tmp.Close()
			return fmt.Errorf("csv store: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("csv store: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv store: close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("csv store: replace %q: %w", s.path, err)
	}

	s.log.Info("Consolidated dataset written", map[string]interface{}{
		"path":    s.path,
		"records": len(sales),
	})
	return nil
}

// Count returns the number of stored records.
func (s *CSVStore) Count(ctx context.Context) (int, error) {
	sales, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(sales), nil
}

// Ping checks that the data directory is accessible.
func (s *CSVStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// The directory is created lazily on first write.
			return nil
		}
		return fmt.Errorf("csv store: stat %q: %w", dir, err)
	}
	return nil
}

func formatCSVRow(sale models.Sale) []string {
	return []string{
		sale.SaleDate.Format(models.SaleDateFormat),
		sale.Address,
		sale.County,
		sale.Eircode,
		strconv.FormatFloat(sale.PriceEUR, 'f', 2, 64),
		sale.PropertyDescription,
		strconv.FormatBool(sale.NotFullMarketPrice),
		strconv.FormatBool(sale.VATExclusive),
	}
}

func parseCSVRow(row []string) (models.Sale, error) {
	var sale models.Sale

	saleDate, err := time.Parse(models.SaleDateFormat, row[0])
	if err != nil {
		return sale, fmt.Errorf("invalid sale_date %q: %w", row[0], err)
	}
	price, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return sale, fmt.Errorf("invalid price_eur %q: %w", row[4], err)
	}
	notFullMarket, err := strconv.ParseBool(row[6])
	if err != nil {
		return sale, fmt.Errorf("invalid not_full_market_price %q: %w", row[6], err)
	}
	vatExclusive, err := strconv.ParseBool(row[7])
	if err != nil {
		return sale, fmt.Errorf("invalid vat_exclusive %q: %w", row[7], err)
	}

	return models.Sale{
		SaleDate:            saleDate,
		Address:             row[1],
		County:              row[2],
		Eircode:             row[3],
		PriceEUR:            price,
		PropertyDescription: row[5],
		NotFullMarketPrice:  notFullMarket,
		VATExclusive:        vatExclusive,
	}, nil
}
