package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/database"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
)

// salesSchema keeps a bigserial position column so Load returns records in
// the order they were consolidated, matching the file backend.
const salesSchema = `
	CREATE TABLE IF NOT EXISTS property_sales (
		id                    BIGSERIAL PRIMARY KEY,
		sale_date             DATE NOT NULL,
		address               TEXT NOT NULL,
		county                TEXT NOT NULL,
		eircode               TEXT NOT NULL DEFAULT '',
		price_eur             DOUBLE PRECISION NOT NULL,
		property_description  TEXT NOT NULL,
		not_full_market_price BOOLEAN NOT NULL,
		vat_exclusive         BOOLEAN NOT NULL
	)
`

// PostgresStore persists the consolidated dataset in a PostgreSQL table.
// Replace runs inside one transaction (truncate + bulk copy), so readers see
// either the previous or the new dataset, never a mix.
type PostgresStore struct {
	db  *database.Database
	log *logger.Logger
}

// NewPostgresStore ensures the sales table exists and returns the store.
func NewPostgresStore(ctx context.Context, db *database.Database, log *logger.Logger) (*PostgresStore, error) {
	if _, err := db.Pool.Exec(ctx, salesSchema); err != nil {
		return nil, fmt.Errorf("postgres store: ensure schema: %w", err)
	}
	return &PostgresStore{db: db, log: log}, nil
}

// Load reads the full consolidated dataset in consolidation order.
// Returns nil when the table is empty (no prior dataset).
func (s *PostgresStore) Load(ctx context.Context) ([]models.Sale, error) {
	query := `
		SELECT
			sale_date,
			address,
			county,
			eircode,
			price_eur,
			property_description,
			not_full_market_price,
			vat_exclusive
		FROM property_sales
		ORDER BY id
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query sales: %w", err)
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		var sale models.Sale
		err := rows.Scan(
			&sale.SaleDate,
			&sale.Address,
			&sale.County,
			&sale.Eircode,
			&sale.PriceEUR,
			&sale.PropertyDescription,
			&sale.NotFullMarketPrice,
			&sale.VATExclusive,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres store: scan sale row: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate sale rows: %w", err)
	}

	s.log.Info("Loaded consolidated dataset", map[string]interface{}{
		"backend": "postgres",
		"records": len(sales),
	})
	return sales, nil
}

// Replace swaps the stored dataset for the given one in a single transaction.
func (s *PostgresStore) Replace(ctx context.Context, sales []models.Sale) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE property_sales RESTART IDENTITY`); err != nil {
		return fmt.Errorf("postgres store: truncate sales: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"property_sales"},
		[]string{
			"sale_date",
			"address",
			"county",
			"eircode",
			"price_eur",
			"property_description",
			"not_full_market_price",
			"vat_exclusive",
		},
		pgx.CopyFromSlice(len(sales), func(i int) ([]interface{}, error) {
			sale := sales[i]
			return []interface{}{
				sale.SaleDate,
				sale.Address,
				sale.County,
				sale.Eircode,
				sale.PriceEUR,
				sale.PropertyDescription,
				sale.NotFullMarketPrice,
				sale.VATExclusive,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres store: copy sales: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit replace: %w", err)
	}

	s.log.Info("Consolidated dataset written", map[string]interface{}{
		"backend": "postgres",
		"records": len(sales),
	})
	return nil
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM property_sales`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres store: count sales: %w", err)
	}
	return count, nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
