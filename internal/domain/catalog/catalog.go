// Package catalog exposes read-only access to the service and bicycle
// catalog. The engine consumes catalog prices but never mutates them.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog item does not exist.
var ErrNotFound = errors.New("catalog item not found")

// Category classifies what part of a request a charge belongs to. Coupons
// restrict their discount to a set of categories.
type Category string

const (
	CategoryRepairServices Category = "repair_services"
	CategoryRentalBicycles Category = "rental_bicycles"
	CategoryDeliveryCharge Category = "delivery_charges"
	CategoryMechanicCharge Category = "mechanic_charge"
	// CategoryAll is a coupon-side wildcard matching every category.
	CategoryAll Category = "all"
)

// Item is a priced catalog entry: a repair service or a rentable bicycle.
type Item struct {
	ID          string
	Name        string
	Category    Category
	UnitPrice   decimal.Decimal
	Description string
}

// Repository defines read operations for the catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	// GetSurchargeRate returns the flat non-catalog charge for the given
	// request kind: the mechanic visit fee for "repair", the delivery fee
	// for "rental".
	GetSurchargeRate(ctx context.Context, kind string) (decimal.Decimal, error)
}
