package request

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/coupon"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/payment"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/pricing"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/optimistic"
)

// saveAttempts bounds the CAS retry loop of a single transition.
const saveAttempts = 3

// Input validation failures for submissions and quotes.
var (
	ErrEmptyItems  = errors.New("line items required")
	ErrInvalidKind = errors.New("kind must be repair or rental")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.ItemID)
}

// ItemInput is a requested catalog item with quantity.
type ItemInput struct {
	ItemID   string
	Quantity int
}

// QuoteInput holds the input for a side-effect-free price quote.
type QuoteInput struct {
	Kind       Kind
	Items      []ItemInput
	CouponCode string
}

// SubmitInput holds the input for creating a request.
type SubmitInput struct {
	Kind          Kind
	UserID        string
	Items         []ItemInput
	CouponCode    string
	PaymentMethod PaymentMethod
}

// Service coordinates requests from creation through payment, fulfillment,
// and closure. Every mutation goes through the state machine and a guarded
// compare-and-set write with bounded retries, so concurrent callers (and the
// expiry sweeper) resolve deterministically.
type Service struct {
	catalog    catalog.Repository
	requests   Repository
	pricer     *pricing.Engine
	consumer   coupon.Consumer
	reconciler *payment.Reconciler
	holdWindow time.Duration
	now        func() time.Time
}

// NewService creates a request Service with the required collaborators.
// holdWindow bounds how long a request may sit in pending or waiting_payment
// before it becomes expirable.
func NewService(
	cat catalog.Repository,
	requests Repository,
	pricer *pricing.Engine,
	consumer coupon.Consumer,
	reconciler *payment.Reconciler,
	holdWindow time.Duration,
) *Service {
	return &Service{
		catalog:    cat,
		requests:   requests,
		pricer:     pricer,
		consumer:   consumer,
		reconciler: reconciler,
		holdWindow: holdWindow,
		now:        time.Now,
	}
}

// resolveLines validates the item inputs and prices them from the catalog,
// returning the pricing lines and the kind's surcharge rate.
func (s *Service) resolveLines(ctx context.Context, kind Kind, items []ItemInput) ([]pricing.Line, decimal.Decimal, error) {
	if !kind.Valid() {
		return nil, decimal.Zero, ErrInvalidKind
	}
	if len(items) == 0 {
		return nil, decimal.Zero, ErrEmptyItems
	}

	ids := make([]string, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, &InvalidQuantityError{ItemID: item.ItemID}
		}
		ids[i] = item.ItemID
	}

	fetched, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get catalog items")
	}
	byID := make(map[string]catalog.Item, len(fetched))
	for _, it := range fetched {
		byID[it.ID] = it
	}

	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		it, ok := byID[item.ItemID]
		if !ok {
			return nil, decimal.Zero, errors.Wrapf(catalog.ErrNotFound, "item %s", item.ItemID)
		}
		lines[i] = pricing.Line{
			ItemID:      it.ID,
			Description: it.Name,
			Category:    it.Category,
			UnitPrice:   it.UnitPrice,
			Quantity:    item.Quantity,
		}
	}

	surcharge, err := s.catalog.GetSurchargeRate(ctx, string(kind))
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get surcharge rate")
	}
	return lines, surcharge, nil
}

// QuotePrice computes totals for the given items and optional coupon without
// creating anything. Quoting is idempotent: the coupon is validated but not
// consumed.
func (s *Service) QuotePrice(ctx context.Context, in QuoteInput) (*pricing.Quote, error) {
	lines, surcharge, err := s.resolveLines(ctx, in.Kind, in.Items)
	if err != nil {
		return nil, err
	}
	return s.pricer.Quote(ctx, lines, surcharge, surchargeCategory(in.Kind), in.CouponCode)
}

// SubmitRequest prices the submission and creates the request in pending
// with the hold window started. A failing coupon rejects the whole
// submission; the caller may resubmit without the code.
func (s *Service) SubmitRequest(ctx context.Context, in SubmitInput) (*Request, error) {
	if in.PaymentMethod != PaymentOnline && in.PaymentMethod != PaymentCash {
		return nil, errors.Errorf("unknown payment method: %q", in.PaymentMethod)
	}

	lines, surcharge, err := s.resolveLines(ctx, in.Kind, in.Items)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricer.Quote(ctx, lines, surcharge, surchargeCategory(in.Kind), in.CouponCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.holdWindow)

	lineItems := make([]LineItem, len(lines))
	for i, l := range lines {
		lineItems[i] = LineItem{
			ItemID:      l.ItemID,
			Description: l.Description,
			Category:    l.Category,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
		}
	}

	r := &Request{
		ID:             uuid.New().String(),
		Kind:           in.Kind,
		UserID:         in.UserID,
		LineItems:      lineItems,
		Surcharge:      surcharge,
		CouponCode:     quote.AppliedCoupon,
		GrossAmount:    quote.Gross,
		DiscountAmount: quote.Discount,
		NetAmount:      quote.Net,
		Status:         StatusPending,
		PaymentMethod:  in.PaymentMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      &expires,
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return r, nil
}

// GetByID returns a request by its identifier.
func (s *Service) GetByID(ctx context.Context, id string) (*Request, error) {
	return s.requests.GetByID(ctx, id)
}

// transition loads the request, applies ev, and writes it back under a
// compare-and-set guard. On a version conflict the whole read-apply-write is
// retried, so a loser of a race observes the new state and reports the
// resulting IllegalTransitionError instead of double-applying.
func (s *Service) transition(ctx context.Context, id string, ev Event) (*Request, error) {
	var out *Request
	err := optimistic.Retry(ctx, saveAttempts, func(ctx context.Context) error {
		r, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := Transition(r, ev, s.now()); err != nil {
			return err
		}
		if err := s.requests.SaveWithVersion(ctx, r, r.Version); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Approve accepts a pending request. Online requests move to
// waiting_payment; cash requests move straight to the kind's work state,
// which is their commitment point, so an applied coupon is consumed here.
func (s *Service) Approve(ctx context.Context, id string) (*Request, error) {
	r, err := s.transition(ctx, id, Approve())
	if err != nil {
		return nil, err
	}
	if r.PaymentMethod == PaymentCash && r.CouponCode != "" {
		if err := s.consumer.Consume(ctx, r.CouponCode); err != nil {
			return nil, errors.Wrapf(err, "consume coupon %s", r.CouponCode)
		}
	}
	return r, nil
}

// Reject declines a pending request. The note is mandatory.
func (s *Service) Reject(ctx context.Context, id, note string) (*Request, error) {
	return s.transition(ctx, id, Reject(note))
}

// Advance moves a rental from arranging_delivery to active_rental.
func (s *Service) Advance(ctx context.Context, id string) (*Request, error) {
	return s.transition(ctx, id, Advance())
}

// Complete finishes a request in its active work state.
func (s *Service) Complete(ctx context.Context, id string) (*Request, error) {
	return s.transition(ctx, id, Complete())
}

// CreatePaymentOrder opens a gateway order for a request awaiting payment
// and records the gateway order id on the request.
func (s *Service) CreatePaymentOrder(ctx context.Context, id string) (*payment.Order, error) {
	var out *payment.Order
	err := optimistic.Retry(ctx, saveAttempts, func(ctx context.Context) error {
		r, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusWaitingPayment {
			return ErrNotAwaitingPayment
		}

		order, err := s.reconciler.CreateOrder(ctx, r.ID, r.NetAmount)
		if err != nil {
			return err
		}

		r.PaymentReference = order.GatewayOrderID
		r.UpdatedAt = s.now()
		if err := s.requests.SaveWithVersion(ctx, r, r.Version); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmPayment verifies the gateway callback signature. A tampered or
// mismatched payload returns (false, nil) and mutates nothing, so the caller
// can ask the user to retry. On success the request advances past
// waiting_payment and an applied coupon is consumed.
func (s *Service) ConfirmPayment(ctx context.Context, id string, cb payment.Callback) (bool, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !s.reconciler.VerifySignature(cb) {
		return false, nil
	}
	if r.PaymentReference == "" || cb.OrderID != r.PaymentReference {
		// A valid signature only proves the payment happened, not that it was
		// for this request: the callback must name the order we opened. With
		// no order opened there is nothing a callback can legitimately match.
		return false, nil
	}

	updated, err := s.transition(ctx, id, PaymentConfirmed())
	if err != nil {
		return false, err
	}

	if err := s.recordPaymentID(ctx, updated, cb.PaymentID); err != nil {
		return true, err
	}

	if updated.CouponCode != "" {
		if err := s.consumer.Consume(ctx, updated.CouponCode); err != nil {
			return true, errors.Wrapf(err, "consume coupon %s", updated.CouponCode)
		}
	}
	return true, nil
}

// recordPaymentID stores the gateway payment id on an already-transitioned
// request. The transition is the authoritative effect; this is bookkeeping.
func (s *Service) recordPaymentID(ctx context.Context, r *Request, paymentID string) error {
	r.PaymentReference = paymentID
	if err := s.requests.SaveWithVersion(ctx, r, r.Version); err != nil {
		return errors.Wrap(err, "record payment id")
	}
	return nil
}

// RunExpirySweep expires every pending or waiting_payment request whose hold
// deadline has passed. Sweeps are idempotent: a request that lost the race
// and is no longer expirable is skipped, not an error. It returns the number
// of requests expired and the ids it skipped.
func (s *Service) RunExpirySweep(ctx context.Context) (expired int, skipped []string, err error) {
	due, err := s.requests.ListExpirable(ctx, s.now())
	if err != nil {
		return 0, nil, errors.Wrap(err, "list expirable requests")
	}

	for i := range due {
		id := due[i].ID
		if _, err := s.transition(ctx, id, Expire()); err != nil {
			var ite *IllegalTransitionError
			if errors.As(err, &ite) || errors.Is(err, ErrNotYetExpirable) || errors.Is(err, ErrNotFound) {
				skipped = append(skipped, id)
				continue
			}
			return expired, skipped, errors.Wrapf(err, "expire request %s", id)
		}
		expired++
	}
	return expired, skipped, nil
}
