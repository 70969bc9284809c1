package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
)

const (
	getCatalogItemSQL = `SELECT id, name, category, unit_price, description
		FROM catalog_items WHERE id = $1 AND active = TRUE`

	getCatalogItemsSQL = `SELECT id, name, category, unit_price, description
		FROM catalog_items WHERE id = ANY($1) AND active = TRUE`

	getSurchargeRateSQL = `SELECT amount FROM surcharge_rates WHERE kind = $1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetByID returns a single active catalog item by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getCatalogItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting catalog item %q: %w", id, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanCatalogItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting catalog item %q: %w", id, err)
	}
	return &item, nil
}

// GetByIDs returns the active catalog items matching any of the given IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getCatalogItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting catalog items by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanCatalogItem)
}

// GetSurchargeRate returns the flat surcharge for the given request kind.
func (r *CatalogRepository) GetSurchargeRate(ctx context.Context, kind string) (decimal.Decimal, error) {
	var amount decimal.Decimal
	if err := r.pool.QueryRow(ctx, getSurchargeRateSQL, kind).Scan(&amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("getting surcharge rate for %q: %w", kind, err)
	}
	return amount, nil
}

func scanCatalogItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		item     catalog.Item
		category string
		price    decimal.Decimal
	)
	err := row.Scan(&item.ID, &item.Name, &category, &price, &item.Description)
	item.Category = catalog.Category(category)
	item.UnitPrice = price
	return item, err
}
