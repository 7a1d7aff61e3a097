package models

import (
	"strconv"
	"strings"
	"time"
)

// UnknownValue is the sentinel stored in place of empty text fields so that
// identity-key comparisons stay well-defined.
const UnknownValue = "unknown"

// SaleDateFormat is the wire format used for sale dates everywhere a date is
// serialized (identity keys, CSV storage, API responses).
const SaleDateFormat = "2006-01-02"

// Sale represents one property sale from the Irish Property Price Register.
// Once a Sale is accepted into the consolidated dataset it is immutable; later
// runs may only remove it as part of a full-refresh replace.
type Sale struct {
	SaleDate            time.Time `json:"sale_date"`
	Address             string    `json:"address"`
	County              string    `json:"county"`
	Eircode             string    `json:"eircode,omitempty"`
	PriceEUR            float64   `json:"price_eur"`
	PropertyDescription string    `json:"property_description"`
	NotFullMarketPrice  bool      `json:"not_full_market_price"`
	VATExclusive        bool      `json:"vat_exclusive"`
}

// IdentityKey derives the deduplication key for a sale. The register publishes
// no stable row ID, so two rows with the same sale date, address and price are
// treated as the same sale. Address comparison is case-insensitive and the
// price is fixed to two decimals so that "200,000.00" and "200000" collide.
//
// This is the single definition of record identity; every component that needs
// to compare sales must go through it.
func (s Sale) IdentityKey() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(s.Address)))
	b.WriteByte('|')
	b.WriteString(s.SaleDate.Format(SaleDateFormat))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(s.PriceEUR, 'f', 2, 64))
	return b.String()
}

// RunSummary describes the outcome of one pipeline run. It is what the CLI
// prints and what state advancement is derived from.
type RunSummary struct {
	Mode              string    `json:"mode"`
	RecordsProcessed  int       `json:"records_processed"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	MalformedSkipped  int       `json:"malformed_skipped"`
	TotalRecords      int       `json:"total_records"`
	EarliestSaleDate  time.Time `json:"earliest_sale_date"`
	LatestSaleDate    time.Time `json:"latest_sale_date"`
	FilesProcessed    []string  `json:"files_processed,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// DateRange scans a dataset for its earliest and latest sale dates. Zero times
// are returned for an empty dataset.
func DateRange(sales []Sale) (earliest, latest time.Time) {
	for _, s := range sales {
		if earliest.IsZero() || s.SaleDate.Before(earliest) {
			earliest = s.SaleDate
		}
		if latest.IsZero() || s.SaleDate.After(latest) {
			latest = s.SaleDate
		}
	}
	return earliest, latest
}
