// Package payment reconciles requests with the external payment gateway:
// it creates gateway orders for net amounts and verifies payment signatures.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when a gateway order is requested for a
	// non-positive net amount. Zero-total requests take the cash/no-payment
	// path and must never reach the gateway. Not retryable.
	ErrInvalidAmount = errors.New("net amount must be positive")
	// ErrGatewayUnavailable wraps transport failures talking to the gateway.
	// Retry policy belongs to the caller, not the engine.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Gateway abstracts the external payment provider. Amounts are in minor
// currency units (paise for INR).
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (orderID string, err error)
}

// Order is a created gateway order, in minor currency units.
type Order struct {
	GatewayOrderID string
	Amount         int64
	Currency       string
}

// Callback is the gateway's payment confirmation payload.
type Callback struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Config holds the reconciler's gateway parameters. Secret is the signature
// verification secret, sourced from configuration at startup.
type Config struct {
	Secret   string
	Currency string
	Timeout  time.Duration
}

// Reconciler creates gateway orders and verifies payment signatures.
type Reconciler struct {
	gateway  Gateway
	secret   []byte
	currency string
	timeout  time.Duration
}

// NewReconciler creates a Reconciler for the given gateway.
func NewReconciler(gateway Gateway, cfg Config) *Reconciler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Reconciler{
		gateway:  gateway,
		secret:   []byte(cfg.Secret),
		currency: currency,
		timeout:  timeout,
	}
}

// CreateOrder opens a gateway order for the request's net amount. The call
// carries a bounded timeout; a caller-level cancellation aborts it without
// leaving partial state on our side.
func (r *Reconciler) CreateOrder(ctx context.Context, requestID string, net decimal.Decimal) (*Order, error) {
	if !net.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amountMinor := net.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	orderID, err := r.gateway.CreateOrder(ctx, amountMinor, r.currency, requestID, map[string]string{
		"request_id": requestID,
	})
	if err != nil {
		return nil, errors.Wrap(ErrGatewayUnavailable, err.Error())
	}

	return &Order{
		GatewayOrderID: orderID,
		Amount:         amountMinor,
		Currency:       r.currency,
	}, nil
}

// VerifySignature recomputes the gateway's HMAC-SHA256 signature over
// "orderID|paymentID" and compares it in constant time. A mismatch is a
// boolean false, never an error: signature probing is expected traffic.
func (r *Reconciler) VerifySignature(cb Callback) bool {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(cb.OrderID + "|" + cb.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(cb.Signature))
}
