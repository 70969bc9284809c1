package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the eligible
	// subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the eligible
	// subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Validation failures. These are expected business outcomes, surfaced to the
// user rather than logged as failures.
var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon is past its expiry time.
	ErrExpired = errors.New("coupon expired")
	// ErrExhausted is returned when a coupon has no uses left.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrNotApplicable is returned when none of the request's charge
	// categories fall under the coupon.
	ErrNotApplicable = errors.New("coupon not applicable to these items")
	// ErrBelowMinimum is returned when the eligible subtotal is below the
	// coupon's minimum amount.
	ErrBelowMinimum = errors.New("amount below coupon minimum")
)

// Coupon is a discount code with eligibility rules and a consumption limit.
// Version backs the compare-and-set write used for consumption.
type Coupon struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	// MinAmount is the minimum eligible subtotal required to apply the coupon.
	MinAmount decimal.Decimal
	// MaxDiscount caps the computed discount. Zero means uncapped.
	MaxDiscount decimal.Decimal
	UsageLimit  int
	UsedCount   int
	// Categories restricts which charge categories the discount applies to.
	// A set containing catalog.CategoryAll matches everything.
	Categories []catalog.Category
	ExpiresAt  time.Time
	Version    int64
}

// AppliesTo reports whether the coupon covers the given charge category.
func (c *Coupon) AppliesTo(cat catalog.Category) bool {
	for _, allowed := range c.Categories {
		if allowed == catalog.CategoryAll || allowed == cat {
			return true
		}
	}
	return false
}

// Remaining returns the number of uses left.
func (c *Coupon) Remaining() int {
	if left := c.UsageLimit - c.UsedCount; left > 0 {
		return left
	}
	return 0
}

// Item is a single charge of a request for discount calculation purposes.
// Surcharges are represented as an Item with quantity 1 and the surcharge
// category (delivery_charges or mechanic_charge).
type Item struct {
	Category catalog.Category
	Price    decimal.Decimal
	Quantity int
}

// Discount holds the computed discount for a validated coupon.
type Discount struct {
	Code   string
	Amount decimal.Decimal
}

// Repository provides lookup and guarded mutation of coupons. Lookup by code
// is case-insensitive. SaveWithVersion returns optimistic.ErrConflict when
// the stored version differs from expectedVersion; on success it bumps
// c.Version to the new stored version.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	SaveWithVersion(ctx context.Context, c *Coupon, expectedVersion int64) error
}
