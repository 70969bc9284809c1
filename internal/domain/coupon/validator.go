package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator validates a coupon code against the charges of a request and
// returns the computed discount. Validation never mutates the coupon: the
// usage counter is only touched by a Consumer at commitment time, so quotes
// are free of side effects and can be repeated.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
}

// StoreValidator implements Validator against a coupon Repository.
type StoreValidator struct {
	repo Repository
	now  func() time.Time
}

// NewStoreValidator creates a StoreValidator backed by the given Repository.
func NewStoreValidator(repo Repository) *StoreValidator {
	return &StoreValidator{repo: repo, now: time.Now}
}

// Validate runs the eligibility checks in order, short-circuiting on the
// first failure: existence, expiry, usage limit, category applicability,
// minimum amount. On success it returns the discount computed on the
// eligible subtotal with the MaxDiscount and subtotal caps applied.
func (v *StoreValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	c, err := v.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !v.now().Before(c.ExpiresAt) {
		return nil, ErrExpired
	}
	if c.UsedCount >= c.UsageLimit {
		return nil, ErrExhausted
	}

	applicable := false
	for _, cat := range presentCategories(items) {
		if c.AppliesTo(cat) {
			applicable = true
			break
		}
	}
	if !applicable {
		return nil, ErrNotApplicable
	}

	eligible := EligibleSubtotal(c, items)
	if eligible.LessThan(c.MinAmount) {
		return nil, ErrBelowMinimum
	}

	amount, err := computeDiscount(c, eligible)
	if err != nil {
		return nil, err
	}

	return &Discount{Code: c.Code, Amount: amount}, nil
}
