package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/request"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/optimistic"
)

const (
	createRequestSQL = `INSERT INTO requests (id, kind, user_id, line_items, surcharge,
		coupon_code, gross_amount, discount_amount, net_amount, status, payment_method,
		payment_reference, rejection_note, created_at, updated_at, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)`

	getRequestSQL = `SELECT id, kind, user_id, line_items, surcharge, coupon_code,
		gross_amount, discount_amount, net_amount, status, payment_method,
		payment_reference, rejection_note, created_at, updated_at, expires_at, version
		FROM requests WHERE id = $1`

	saveRequestSQL = `UPDATE requests
		SET status = $2, coupon_code = $3, payment_reference = $4, rejection_note = $5,
			updated_at = $6, expires_at = $7, version = version + 1
		WHERE id = $1 AND version = $8`

	listExpirableSQL = `SELECT id, kind, user_id, line_items, surcharge, coupon_code,
		gross_amount, discount_amount, net_amount, status, payment_method,
		payment_reference, rejection_note, created_at, updated_at, expires_at, version
		FROM requests
		WHERE status IN ('pending', 'waiting_payment') AND expires_at <= $1
		ORDER BY expires_at`
)

var _ request.Repository = (*RequestRepository)(nil)

// RequestRepository implements request.Repository backed by PostgreSQL.
type RequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository returns a RequestRepository that uses the given pool.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create persists a new request. Line items are serialized to JSON for
// storage in the JSONB column.
func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	itemsJSON, err := json.Marshal(req.LineItems)
	if err != nil {
		return fmt.Errorf("marshaling line items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createRequestSQL,
		req.ID, string(req.Kind), req.UserID, itemsJSON, req.Surcharge,
		req.CouponCode, req.GrossAmount, req.DiscountAmount, req.NetAmount,
		string(req.Status), string(req.PaymentMethod),
		req.PaymentReference, req.RejectionNote,
		req.CreatedAt, req.UpdatedAt, req.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("creating request %q: %w", req.ID, err)
	}
	req.Version = 1
	return nil
}

// GetByID returns a request by its identifier, or request.ErrNotFound.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*request.Request, error) {
	rows, err := r.pool.Query(ctx, getRequestSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting request %q: %w", id, err)
	}

	req, err := pgx.CollectExactlyOneRow(rows, scanRequest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrNotFound
		}
		return nil, fmt.Errorf("getting request %q: %w", id, err)
	}
	return &req, nil
}

// SaveWithVersion writes the request's mutable fields under a compare-and-set
// guard on the version column. Returns optimistic.ErrConflict when the
// stored version moved.
func (r *RequestRepository) SaveWithVersion(ctx context.Context, req *request.Request, expectedVersion int64) error {
	tag, err := r.pool.Exec(ctx, saveRequestSQL,
		req.ID, string(req.Status), req.CouponCode, req.PaymentReference,
		req.RejectionNote, req.UpdatedAt, req.ExpiresAt, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("saving request %q: %w", req.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return optimistic.ErrConflict
	}
	req.Version = expectedVersion + 1
	return nil
}

// ListExpirable returns held requests whose deadline is at or before now.
func (r *RequestRepository) ListExpirable(ctx context.Context, now time.Time) ([]request.Request, error) {
	rows, err := r.pool.Query(ctx, listExpirableSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing expirable requests: %w", err)
	}
	return pgx.CollectRows(rows, scanRequest)
}

func scanRequest(row pgx.CollectableRow) (request.Request, error) {
	var (
		req           request.Request
		kind          string
		status        string
		paymentMethod string
		itemsJSON     []byte
		surcharge     decimal.Decimal
		gross         decimal.Decimal
		discount      decimal.Decimal
		net           decimal.Decimal
		expiresAt     *time.Time
	)
	err := row.Scan(
		&req.ID, &kind, &req.UserID, &itemsJSON, &surcharge, &req.CouponCode,
		&gross, &discount, &net, &status, &paymentMethod,
		&req.PaymentReference, &req.RejectionNote,
		&req.CreatedAt, &req.UpdatedAt, &expiresAt, &req.Version,
	)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(itemsJSON, &req.LineItems); err != nil {
		return req, fmt.Errorf("unmarshaling line items for request %q: %w", req.ID, err)
	}
	req.Kind = request.Kind(kind)
	req.Status = request.Status(status)
	req.PaymentMethod = request.PaymentMethod(paymentMethod)
	req.Surcharge = surcharge
	req.GrossAmount = gross
	req.DiscountAmount = discount
	req.NetAmount = net
	req.ExpiresAt = expiresAt
	return req, nil
}
