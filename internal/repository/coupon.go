package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/coupon"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/optimistic"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, min_amount, max_discount,
		usage_limit, used_count, categories, expires_at, version
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	saveCouponSQL = `UPDATE coupons
		SET used_count = $2, version = version + 1
		WHERE code = $1 AND version = $3`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByCode looks up an active coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no matching active coupon exists.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// SaveWithVersion writes the coupon's usage counter under a compare-and-set
// guard on the version column. Returns optimistic.ErrConflict when the
// stored version moved.
func (r *CouponRepository) SaveWithVersion(ctx context.Context, c *coupon.Coupon, expectedVersion int64) error {
	tag, err := r.pool.Exec(ctx, saveCouponSQL, c.Code, c.UsedCount, expectedVersion)
	if err != nil {
		return fmt.Errorf("saving coupon %q: %w", c.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return optimistic.ErrConflict
	}
	c.Version = expectedVersion + 1
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		value        decimal.Decimal
		minAmount    decimal.Decimal
		maxDiscount  decimal.Decimal
		usageLimit   int32
		usedCount    int32
		categories   []string
		expiresAt    time.Time
	)
	err := row.Scan(
		&c.Code, &discountType, &value, &minAmount, &maxDiscount,
		&usageLimit, &usedCount, &categories, &expiresAt, &c.Version,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.Value = value
	c.MinAmount = minAmount
	c.MaxDiscount = maxDiscount
	c.UsageLimit = int(usageLimit)
	c.UsedCount = int(usedCount)
	c.Categories = make([]catalog.Category, len(categories))
	for i, cat := range categories {
		c.Categories[i] = catalog.Category(cat)
	}
	c.ExpiresAt = expiresAt
	return c, err
}
