// Package request models customer service requests (bicycle repair and
// rental) and the state machine that governs their lifecycle.
package request

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
)

// ErrNotFound is returned when a request does not exist.
var ErrNotFound = errors.New("request not found")

// Kind discriminates the two request variants. The kind decides the
// surcharge category and the work states the request moves through.
type Kind string

const (
	KindRepair Kind = "repair"
	KindRental Kind = "rental"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindRepair || k == KindRental
}

// Status is the closed set of request lifecycle states.
type Status string

const (
	StatusPending           Status = "pending"
	StatusWaitingPayment    Status = "waiting_payment"
	StatusArrangingDelivery Status = "arranging_delivery"
	StatusActive            Status = "active"
	StatusActiveRental      Status = "active_rental"
	StatusCompleted         Status = "completed"
	StatusRejected          Status = "rejected"
	StatusExpired           Status = "expired"
)

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusExpired
}

// PaymentMethod enumerates how a request is paid.
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCash   PaymentMethod = "cash"
)

// LineItem is a priced catalog line on a request.
type LineItem struct {
	ItemID      string           `json:"item_id"`
	Description string           `json:"description"`
	Category    catalog.Category `json:"category"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Quantity    int              `json:"quantity"`
}

// Request is a customer submission for repair or rental service. Amounts
// satisfy Net = Gross - Discount with Discount >= 0 and Net >= 0. Version
// backs the compare-and-set write used for every mutation.
type Request struct {
	ID        string
	Kind      Kind
	UserID    string
	LineItems []LineItem
	// Surcharge is the non-catalog charge for the kind: the mechanic visit
	// fee for repair, the delivery fee for rental.
	Surcharge      decimal.Decimal
	CouponCode     string
	GrossAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	NetAmount      decimal.Decimal
	Status         Status
	PaymentMethod  PaymentMethod
	// PaymentReference holds the gateway order id once a payment order is
	// created, then the gateway payment id once payment is confirmed.
	PaymentReference string
	// RejectionNote is required and non-empty when Status is rejected.
	RejectionNote string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	// ExpiresAt bounds the hold while Status is pending or waiting_payment.
	// It is cleared when the request permanently leaves those states, except
	// on rejection and expiry where it is kept for audit.
	ExpiresAt *time.Time
	Version   int64
}

// surchargeCategory returns the charge category of the kind's surcharge.
func surchargeCategory(k Kind) catalog.Category {
	if k == KindRepair {
		return catalog.CategoryMechanicCharge
	}
	return catalog.CategoryDeliveryCharge
}

// SurchargeCategory returns the charge category of the request's surcharge.
func (r *Request) SurchargeCategory() catalog.Category {
	return surchargeCategory(r.Kind)
}

// workStartStatus is the state a request enters when work begins: repair
// requests go straight to active, rentals first arrange delivery.
func workStartStatus(k Kind) Status {
	if k == KindRepair {
		return StatusActive
	}
	return StatusArrangingDelivery
}

// activeStatus is the kind's in-progress work state, from which the request
// can complete.
func activeStatus(k Kind) Status {
	if k == KindRepair {
		return StatusActive
	}
	return StatusActiveRental
}

// Repository defines persistence for requests. SaveWithVersion returns
// optimistic.ErrConflict when the stored version differs from
// expectedVersion; on success it bumps r.Version to the new stored version.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	SaveWithVersion(ctx context.Context, r *Request, expectedVersion int64) error
	// ListExpirable returns requests in pending or waiting_payment whose
	// hold deadline is at or before now.
	ListExpirable(ctx context.Context, now time.Time) ([]Request, error)
}
