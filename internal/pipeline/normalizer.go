package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
)

// Column names as published in the Property Price Register CSV files.
const (
	ColSaleDate           = "Date of Sale (dd/mm/yyyy)"
	ColAddress            = "Address"
	ColCounty             = "County"
	ColEircode            = "Eircode"
	ColPrice              = "Price (€)"
	ColNotFullMarketPrice = "Not Full Market Price"
	ColVATExclusive       = "VAT Exclusive"
	ColDescription        = "Description of Property"
	ColSizeDescription    = "Property Size Description"
)

// ExpectedColumns lists every column a PPR file must carry to be accepted.
var ExpectedColumns = []string{
	ColSaleDate,
	ColAddress,
	ColCounty,
	ColEircode,
	ColPrice,
	ColNotFullMarketPrice,
	ColVATExclusive,
	ColDescription,
	ColSizeDescription,
}

// rawDateFormat is the day/month/year layout used by the register.
const rawDateFormat = "02/01/2006"

// MalformedRowError reports a raw row that could not be normalized, naming
// the offending field.
type MalformedRowError struct {
	Field string
	Value string
	Cause string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row: field %q value %q: %s", e.Field, e.Value, e.Cause)
}

// Normalizer converts raw PPR rows into typed Sale records.
type Normalizer struct {
	log *logger.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// NormalizeRow converts one raw field-value mapping into a Sale.
// It returns a *MalformedRowError when a field cannot be parsed.
func (n *Normalizer) NormalizeRow(row map[string]string) (models.Sale, error) {
	var sale models.Sale

	rawDate := strings.TrimSpace(row[ColSaleDate])
	saleDate, err := time.Parse(rawDateFormat, rawDate)
	if err != nil {
		return sale, &MalformedRowError{Field: ColSaleDate, Value: rawDate, Cause: "not a dd/mm/yyyy date"}
	}

	price, err := parsePrice(row[ColPrice])
	if err != nil {
		return sale, &MalformedRowError{Field: ColPrice, Value: row[ColPrice], Cause: err.Error()}
	}

	notFullMarket, err := parseYesNo(row[ColNotFullMarketPrice])
	if err != nil {
		return sale, &MalformedRowError{Field: ColNotFullMarketPrice, Value: row[ColNotFullMarketPrice], Cause: err.Error()}
	}

	vatExclusive, err := parseYesNo(row[ColVATExclusive])
	if err != nil {
		return sale, &MalformedRowError{Field: ColVATExclusive, Value: row[ColVATExclusive], Cause: err.Error()}
	}

	sale = models.Sale{
		SaleDate:            saleDate,
		Address:             normalizeText(row[ColAddress]),
		County:              normalizeText(row[ColCounty]),
		Eircode:             strings.TrimSpace(row[ColEircode]),
		PriceEUR:            price,
		PropertyDescription: normalizeText(row[ColDescription]),
		NotFullMarketPrice:  notFullMarket,
		VATExclusive:        vatExclusive,
	}
	return sale, nil
}

// NormalizeBatch processes raw rows one by one. Malformed rows are logged and
// skipped rather than aborting the batch; the register is known to contain
// the occasional broken row. Returns the normalized sales and the skip count.
func (n *Normalizer) NormalizeBatch(rows []map[string]string, sourceFile string) ([]models.Sale, int) {
	sales := make([]models.Sale, 0, len(rows))
	skipped := 0

	for i, row := range rows {
		sale, err := n.NormalizeRow(row)
		if err != nil {
			skipped++
			n.log.Warn("Skipping malformed row", map[string]interface{}{
				"source_file": sourceFile,
				"row":         i + 1,
				"error":       err.Error(),
			})
			continue
		}
		sales = append(sales, sale)
	}

	n.log.Info("Normalized batch", map[string]interface{}{
		"source_file": sourceFile,
		"rows":        len(rows),
		"normalized":  len(sales),
		"skipped":     skipped,
	})
	return sales, skipped
}

// parsePrice strips the euro symbol, thousands separators and surrounding
// whitespace, then parses a non-negative amount.
func parsePrice(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '€' || r == ',':
			return -1
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, raw)

	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price")
	}
	return price, nil
}

// parseYesNo maps the register's Yes/No flags to booleans. Any other text is
// malformed.
func parseYesNo(raw string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "YES":
		return true, nil
	case "NO":
		return false, nil
	default:
		return false, fmt.Errorf("expected Yes or No")
	}
}

// normalizeText trims surrounding whitespace, collapses internal runs of
// whitespace, and replaces empty values with the unknown sentinel so that
// identity-key comparisons stay well-defined.
func normalizeText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	if len(fields) == 0 {
		return models.UnknownValue
	}
	return strings.Join(fields, " ")
}
