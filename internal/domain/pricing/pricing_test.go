package pricing

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/coupon"
)

// stubValidator returns a canned discount or error, recording the items it saw.
type stubValidator struct {
	discount *coupon.Discount
	err      error
	items    []coupon.Item
}

func (s *stubValidator) Validate(_ context.Context, _ string, items []coupon.Item) (*coupon.Discount, error) {
	s.items = items
	if s.err != nil {
		return nil, s.err
	}
	return s.discount, nil
}

func repairLines() []Line {
	return []Line{
		{ItemID: "svc-1", Category: catalog.CategoryRepairServices, UnitPrice: decimal.NewFromInt(300), Quantity: 1},
		{ItemID: "svc-2", Category: catalog.CategoryRepairServices, UnitPrice: decimal.NewFromInt(75), Quantity: 2},
	}
}

func TestEngine_QuoteWithoutCoupon(t *testing.T) {
	e := NewEngine(&stubValidator{})

	q, err := e.Quote(context.Background(), repairLines(),
		decimal.NewFromInt(200), catalog.CategoryMechanicCharge, "")

	require.NoError(t, err)
	// 300 + 150 + 200 surcharge
	assert.True(t, decimal.NewFromInt(650).Equal(q.Gross), "got %s", q.Gross)
	assert.True(t, q.Discount.IsZero())
	assert.True(t, decimal.NewFromInt(650).Equal(q.Net))
	assert.Empty(t, q.AppliedCoupon)
}

func TestEngine_QuoteSurchargeIsDiscountable(t *testing.T) {
	v := &stubValidator{discount: &coupon.Discount{Code: "ANY", Amount: decimal.NewFromInt(10)}}
	e := NewEngine(v)

	_, err := e.Quote(context.Background(), repairLines(),
		decimal.NewFromInt(200), catalog.CategoryMechanicCharge, "ANY")

	require.NoError(t, err)
	require.Len(t, v.items, 3, "the surcharge is passed as a discountable charge")
	last := v.items[2]
	assert.Equal(t, catalog.CategoryMechanicCharge, last.Category)
	assert.True(t, decimal.NewFromInt(200).Equal(last.Price))
	assert.Equal(t, 1, last.Quantity)
}

func TestEngine_QuoteZeroSurchargeOmitted(t *testing.T) {
	v := &stubValidator{discount: &coupon.Discount{Code: "ANY", Amount: decimal.NewFromInt(10)}}
	e := NewEngine(v)

	q, err := e.Quote(context.Background(), repairLines(),
		decimal.Zero, catalog.CategoryMechanicCharge, "ANY")

	require.NoError(t, err)
	assert.Len(t, v.items, 2)
	assert.True(t, decimal.NewFromInt(450).Equal(q.Gross))
}

func TestEngine_QuoteAppliesDiscount(t *testing.T) {
	v := &stubValidator{discount: &coupon.Discount{Code: "SAVE65", Amount: decimal.NewFromInt(65)}}
	e := NewEngine(v)

	q, err := e.Quote(context.Background(), repairLines(),
		decimal.NewFromInt(200), catalog.CategoryMechanicCharge, "save65")

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(65).Equal(q.Discount))
	assert.True(t, decimal.NewFromInt(585).Equal(q.Net))
	assert.Equal(t, "SAVE65", q.AppliedCoupon, "the applied code is the validator's normalized one")
	assert.True(t, q.Gross.Equal(q.Net.Add(q.Discount)))
}

func TestEngine_QuoteNetNeverNegative(t *testing.T) {
	v := &stubValidator{discount: &coupon.Discount{Code: "TOOMUCH", Amount: decimal.NewFromInt(9999)}}
	e := NewEngine(v)

	q, err := e.Quote(context.Background(), repairLines(),
		decimal.Zero, catalog.CategoryMechanicCharge, "TOOMUCH")

	require.NoError(t, err)
	assert.False(t, q.Net.IsNegative())
	assert.True(t, q.Net.IsZero())
}

func TestEngine_QuoteCouponValidationFailure(t *testing.T) {
	for _, sentinel := range []error{
		coupon.ErrNotFound,
		coupon.ErrExpired,
		coupon.ErrExhausted,
		coupon.ErrNotApplicable,
		coupon.ErrBelowMinimum,
	} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			e := NewEngine(&stubValidator{err: sentinel})

			_, err := e.Quote(context.Background(), repairLines(),
				decimal.Zero, catalog.CategoryMechanicCharge, "CODE")

			var ice *InvalidCouponError
			require.ErrorAs(t, err, &ice)
			assert.Equal(t, "CODE", ice.Code)
			assert.ErrorIs(t, err, sentinel)
		})
	}
}

func TestEngine_QuoteInfrastructureFailureIsNotInvalidCoupon(t *testing.T) {
	e := NewEngine(&stubValidator{err: errors.New("pg: connection refused")})

	_, err := e.Quote(context.Background(), repairLines(),
		decimal.Zero, catalog.CategoryMechanicCharge, "CODE")

	require.Error(t, err)
	var ice *InvalidCouponError
	assert.False(t, errors.As(err, &ice),
		"a storage failure must not be presented as a bad coupon")
}
