// Package pricing computes request totals: gross amount from catalog line
// items plus the kind's surcharge, with at most one coupon applied.
package pricing

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/coupon"
)

// Line is a priced request line item.
type Line struct {
	ItemID      string
	Description string
	Category    catalog.Category
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Quote is the result of a pricing computation. Net = Gross - Discount holds
// exactly, with Discount >= 0 and Net >= 0.
type Quote struct {
	Gross    decimal.Decimal
	Discount decimal.Decimal
	Net      decimal.Decimal
	// AppliedCoupon is the normalized code of the applied coupon, empty when
	// no coupon was used.
	AppliedCoupon string
}

// InvalidCouponError indicates the requested coupon could not be applied.
// The engine never drops a failing coupon silently: the caller decides
// whether to reject the submission or retry without the code. Reason is one
// of the coupon validation sentinels.
type InvalidCouponError struct {
	Code   string
	Reason error
}

func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("coupon %s: %v", e.Code, e.Reason)
}

func (e *InvalidCouponError) Unwrap() error { return e.Reason }

// Engine computes totals. It holds no mutable state and performs no side
// effects: coupon consumption happens at commitment, not at quote time.
type Engine struct {
	coupons coupon.Validator
}

// NewEngine creates an Engine using the given coupon validator.
func NewEngine(coupons coupon.Validator) *Engine {
	return &Engine{coupons: coupons}
}

// Quote computes gross, discount, and net amounts for the given lines and
// surcharge. surchargeCategory names the surcharge's charge category
// (mechanic_charge for repair, delivery_charges for rental) so coupons can
// target or exclude it.
func (e *Engine) Quote(
	ctx context.Context,
	lines []Line,
	surcharge decimal.Decimal,
	surchargeCategory catalog.Category,
	couponCode string,
) (*Quote, error) {
	gross := decimal.Zero
	items := make([]coupon.Item, 0, len(lines)+1)
	for _, l := range lines {
		gross = gross.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		items = append(items, coupon.Item{
			Category: l.Category,
			Price:    l.UnitPrice,
			Quantity: l.Quantity,
		})
	}
	if surcharge.IsPositive() {
		gross = gross.Add(surcharge)
		items = append(items, coupon.Item{
			Category: surchargeCategory,
			Price:    surcharge,
			Quantity: 1,
		})
	}
	gross = gross.Round(2)

	discount := decimal.Zero
	applied := ""
	if couponCode != "" {
		d, err := e.coupons.Validate(ctx, couponCode, items)
		if err != nil {
			if isValidationFailure(err) {
				return nil, &InvalidCouponError{Code: couponCode, Reason: err}
			}
			return nil, errors.Wrap(err, "validate coupon")
		}
		discount = d.Amount
		applied = d.Code
	}

	net := gross.Sub(discount)
	if net.IsNegative() {
		net = decimal.Zero
	}

	return &Quote{
		Gross:         gross,
		Discount:      discount.Round(2),
		Net:           net.Round(2),
		AppliedCoupon: applied,
	}, nil
}

// isValidationFailure reports whether err is an expected coupon eligibility
// failure rather than an infrastructure error.
func isValidationFailure(err error) bool {
	return errors.Is(err, coupon.ErrNotFound) ||
		errors.Is(err, coupon.ErrExpired) ||
		errors.Is(err, coupon.ErrExhausted) ||
		errors.Is(err, coupon.ErrNotApplicable) ||
		errors.Is(err, coupon.ErrBelowMinimum)
}
