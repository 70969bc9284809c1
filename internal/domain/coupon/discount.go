package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
)

var hundred = decimal.NewFromInt(100)

// EligibleSubtotal returns the sum of price * quantity over the items whose
// category the coupon covers.
func EligibleSubtotal(c *Coupon, items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		if !c.AppliesTo(item.Category) {
			continue
		}
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// presentCategories returns the distinct charge categories in the items.
func presentCategories(items []Item) []catalog.Category {
	seen := make(map[catalog.Category]struct{}, len(items))
	cats := make([]catalog.Category, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		cats = append(cats, item.Category)
	}
	return cats
}

// computeDiscount calculates the raw discount on the eligible subtotal and
// applies the caps: MaxDiscount (when non-zero), then the eligible subtotal
// itself, so a discount can never exceed what it discounts.
func computeDiscount(c *Coupon, eligible decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = eligible.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		amount = c.Value
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}

	if c.MaxDiscount.IsPositive() {
		amount = decimal.Min(amount, c.MaxDiscount)
	}
	amount = decimal.Min(amount, eligible)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2), nil
}
