package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
)

func datasetFixture() []models.Sale {
	return []models.Sale{
		{
			SaleDate:           time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
			Address:            "1 Main St, Douglas",
			County:             "Cork",
			PriceEUR:           200000,
			NotFullMarketPrice: true,
		},
		{
			SaleDate:     time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC),
			Address:      "2 Elm Ave",
			County:       "Dublin",
			PriceEUR:     450000,
			VATExclusive: true,
		},
		{
			SaleDate: time.Date(2022, 11, 30, 0, 0, 0, 0, time.UTC),
			Address:  "3 Oak Rd",
			County:   "cork", // casing varies in the register
			PriceEUR: 310000,
		},
	}
}

func TestGetSummary_Success(t *testing.T) {
	// Arrange
	mockDatasets := new(MockDatasetStore)
	service := NewSalesService(mockDatasets, logger.New("test"))

	ctx := context.Background()
	mockDatasets.On("Load", ctx).Return(datasetFixture(), nil)

	// Act
	summary, err := service.GetSummary(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRecords)
	assert.Equal(t, time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), summary.EarliestSaleDate)
	assert.Equal(t, time.Date(2022, 11, 30, 0, 0, 0, 0, time.UTC), summary.LatestSaleDate)
	assert.Equal(t, 960000.0, summary.TotalValueEUR)
	assert.Equal(t, 320000.0, summary.AveragePriceEUR)
	assert.Equal(t, 2, summary.Counties, "county counting is case-insensitive")
	assert.Equal(t, 1, summary.NotFullMarketCount)
	assert.Equal(t, 1, summary.VATExclusiveCount)
	mockDatasets.AssertExpectations(t)
}

func TestGetSummary_NoDataset(t *testing.T) {
	// Arrange
	mockDatasets := new(MockDatasetStore)
	service := NewSalesService(mockDatasets, logger.New("test"))

	ctx := context.Background()
	mockDatasets.On("Load", ctx).Return(nil, nil)

	// Act
	summary, err := service.GetSummary(ctx)

	// Assert
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.Nil(t, summary)
}

func TestGetSummary_StoreError(t *testing.T) {
	// Arrange
	mockDatasets := new(MockDatasetStore)
	service := NewSalesService(mockDatasets, logger.New("test"))

	ctx := context.Background()
	storeErr := errors.New("connection refused")
	mockDatasets.On("Load", ctx).Return(nil, storeErr)

	// Act
	summary, err := service.GetSummary(ctx)

	// Assert
	assert.ErrorIs(t, err, storeErr)
	assert.Nil(t, summary)
}

func TestListSales_Filters(t *testing.T) {
	testCases := []struct {
		name          string
		filter        SalesFilter
		wantAddresses []string
	}{
		{
			name:          "no filter returns everything in order",
			filter:        SalesFilter{},
			wantAddresses: []string{"1 Main St, Douglas", "2 Elm Ave", "3 Oak Rd"},
		},
		{
			name:          "county is case-insensitive",
			filter:        SalesFilter{County: "CORK"},
			wantAddresses: []string{"1 Main St, Douglas", "3 Oak Rd"},
		},
		{
			name:          "year filter",
			filter:        SalesFilter{Year: 2022},
			wantAddresses: []string{"2 Elm Ave", "3 Oak Rd"},
		},
		{
			name:          "price range",
			filter:        SalesFilter{MinPrice: 250000, MaxPrice: 400000},
			wantAddresses: []string{"3 Oak Rd"},
		},
		{
			name:          "combined filters",
			filter:        SalesFilter{County: "Dublin", Year: 2022},
			wantAddresses: []string{"2 Elm Ave"},
		},
		{
			name:          "limit caps the result",
			filter:        SalesFilter{Limit: 2},
			wantAddresses: []string{"1 Main St, Douglas", "2 Elm Ave"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockDatasets := new(MockDatasetStore)
			service := NewSalesService(mockDatasets, logger.New("test"))

			ctx := context.Background()
			mockDatasets.On("Load", ctx).Return(datasetFixture(), nil)

			// Act
			sales, err := service.ListSales(ctx, tc.filter)

			// Assert
			require.NoError(t, err)
			got := make([]string, 0, len(sales))
			for _, sale := range sales {
				got = append(got, sale.Address)
			}
			assert.Equal(t, tc.wantAddresses, got)
		})
	}
}

func TestListSales_InvalidLimit(t *testing.T) {
	// Arrange
	mockDatasets := new(MockDatasetStore)
	service := NewSalesService(mockDatasets, logger.New("test"))

	// Act
	sales, err := service.ListSales(context.Background(), SalesFilter{Limit: MaxListLimit + 1})

	// Assert
	assert.ErrorIs(t, err, ErrInvalidLimit)
	assert.Nil(t, sales)
	mockDatasets.AssertNotCalled(t, "Load")
}

func TestListSales_NoDataset(t *testing.T) {
	// Arrange
	mockDatasets := new(MockDatasetStore)
	service := NewSalesService(mockDatasets, logger.New("test"))

	ctx := context.Background()
	mockDatasets.On("Load", ctx).Return(nil, nil)

	// Act
	sales, err := service.ListSales(ctx, SalesFilter{})

	// Assert
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.Nil(t, sales)
}
