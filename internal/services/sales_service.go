package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/store"
)

// Listing limits for the sales query endpoint.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Service-level errors
var (
	ErrNoDataset    = errors.New("no consolidated dataset available")
	ErrInvalidLimit = fmt.Errorf("limit must be between 1 and %d", MaxListLimit)
)

// DatasetSummary holds aggregate statistics over the consolidated dataset.
type DatasetSummary struct {
	TotalRecords       int       `json:"total_records"`
	EarliestSaleDate   time.Time `json:"earliest_sale_date"`
	LatestSaleDate     time.Time `json:"latest_sale_date"`
	TotalValueEUR      float64   `json:"total_value_eur"`
	AveragePriceEUR    float64   `json:"average_price_eur"`
	Counties           int       `json:"counties"`
	NotFullMarketCount int       `json:"not_full_market_price_count"`
	VATExclusiveCount  int       `json:"vat_exclusive_count"`
}

// SalesFilter narrows a sales listing. Zero values mean "no constraint".
type SalesFilter struct {
	County   string
	Year     int
	MinPrice float64
	MaxPrice float64
	Limit    int
}

// SalesService defines read-only queries over the consolidated dataset.
type SalesService interface {
	// GetSummary computes aggregate statistics.
	// Returns ErrNoDataset when no pipeline run has produced data yet.
	GetSummary(ctx context.Context) (*DatasetSummary, error)

	// ListSales returns sales matching the filter, in consolidation order,
	// capped at the filter's limit (DefaultListLimit when unset).
	ListSales(ctx context.Context, filter SalesFilter) ([]models.Sale, error)
}

// salesService is the concrete implementation of SalesService.
type salesService struct {
	datasets store.DatasetStore
	log      *logger.Logger
}

// NewSalesService creates a new instance of SalesService.
func NewSalesService(datasets store.DatasetStore, log *logger.Logger) SalesService {
	return &salesService{datasets: datasets, log: log}
}

func (s *salesService) GetSummary(ctx context.Context) (*DatasetSummary, error) {
	sales, err := s.datasets.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load dataset for summary", err, nil)
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if len(sales) == 0 {
		return nil, ErrNoDataset
	}

	earliest, latest := models.DateRange(sales)
	counties := make(map[string]struct{})
	summary := &DatasetSummary{
		TotalRecords:     len(sales),
		EarliestSaleDate: earliest,
		LatestSaleDate:   latest,
	}
	for _, sale := range sales {
		summary.TotalValueEUR += sale.PriceEUR
		counties[strings.ToUpper(sale.County)] = struct{}{}
		if sale.NotFullMarketPrice {
			summary.NotFullMarketCount++
		}
		if sale.VATExclusive {
			summary.VATExclusiveCount++
		}
	}
	summary.AveragePriceEUR = summary.TotalValueEUR / float64(len(sales))
	summary.Counties = len(counties)

	s.log.Info("Dataset summary computed", map[string]interface{}{
		"total_records": summary.TotalRecords,
		"counties":      summary.Counties,
	})
	return summary, nil
}

func (s *salesService) ListSales(ctx context.Context, filter SalesFilter) ([]models.Sale, error) {
	if filter.Limit < 0 || filter.Limit > MaxListLimit {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, filter.Limit)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	sales, err := s.datasets.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load dataset for listing", err, nil)
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if len(sales) == 0 {
		return nil, ErrNoDataset
	}

	matched := make([]models.Sale, 0, limit)
	for _, sale := range sales {
		if !matches(sale, filter) {
			continue
		}
		matched = append(matched, sale)
		if len(matched) == limit {
			break
		}
	}

	s.log.Info("Sales listed", map[string]interface{}{
		"county":  filter.County,
		"year":    filter.Year,
		"matched": len(matched),
	})
	return matched, nil
}

func matches(sale models.Sale, filter SalesFilter) bool {
	if filter.County != "" && !strings.EqualFold(sale.County, filter.County) {
		return false
	}
	if filter.Year != 0 && sale.SaleDate.Year() != filter.Year {
		return false
	}
	if filter.MinPrice > 0 && sale.PriceEUR < filter.MinPrice {
		return false
	}
	if filter.MaxPrice > 0 && sale.PriceEUR > filter.MaxPrice {
		return false
	}
	return true
}
