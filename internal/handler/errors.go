package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/coupon"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/payment"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/pricing"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/request"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/optimistic"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeError maps engine errors to HTTP responses per the error taxonomy:
// validation failures are plain 4xx outcomes, state errors are 409s logged
// at warning level, infrastructure failures are logged at error level with
// the request id for correlation.
func writeError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	lg := zctx.From(r.Context())

	var (
		iqErr *request.InvalidQuantityError
		icErr *pricing.InvalidCouponError
		itErr *request.IllegalTransitionError
	)

	switch {
	// Validation errors: expected business outcomes, user-facing.
	case errors.Is(err, request.ErrEmptyItems),
		errors.Is(err, request.ErrInvalidKind):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: err.Error()})

	case errors.As(err, &iqErr),
		errors.As(err, &icErr),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, request.ErrMissingRejectionReason),
		errors.Is(err, payment.ErrInvalidAmount),
		// Coupon sentinels can also surface bare from the consume path when a
		// usage-limit race is lost at commitment.
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrExhausted),
		errors.Is(err, coupon.ErrNotApplicable),
		errors.Is(err, coupon.ErrBelowMinimum):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: 422, Message: err.Error()})

	case errors.Is(err, request.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: 404, Message: err.Error()})

	// State errors: caller misuse or a lost race.
	case errors.As(err, &itErr),
		errors.Is(err, request.ErrNotYetExpirable),
		errors.Is(err, request.ErrNotAwaitingPayment):
		lg.Warn("state conflict", zap.String("request_id", requestID), zap.Error(err))
		writeJSON(w, http.StatusConflict, errorResponse{Code: 409, Message: err.Error()})

	case errors.Is(err, optimistic.ErrConcurrentModification):
		lg.Error("retries exhausted", zap.String("request_id", requestID), zap.Error(err))
		writeJSON(w, http.StatusConflict, errorResponse{Code: 409, Message: err.Error()})

	case errors.Is(err, payment.ErrGatewayUnavailable):
		lg.Error("payment gateway unavailable", zap.String("request_id", requestID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: 502, Message: "payment gateway unavailable"})

	default:
		lg.Error("internal error", zap.String("request_id", requestID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: 500, Message: "internal server error"})
	}
}
