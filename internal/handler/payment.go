package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/payment"
)

type paymentOrderRespJSON struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type confirmReqJSON struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type confirmRespJSON struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status,omitempty"`
}

func (h *Handler) createPaymentOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.svc.CreatePaymentOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentOrderRespJSON{
		GatewayOrderID: order.GatewayOrderID,
		Amount:         order.Amount,
		Currency:       order.Currency,
	})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body confirmReqJSON
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: "invalid request body"})
		return
	}

	verified, err := h.svc.ConfirmPayment(r.Context(), id, payment.Callback{
		OrderID:   body.OrderID,
		PaymentID: body.PaymentID,
		Signature: body.Signature,
	})
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	if !verified {
		// A failed verification is a result, not an error: the user retries.
		writeJSON(w, http.StatusOK, confirmRespJSON{Verified: false})
		return
	}

	req, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmRespJSON{Verified: true, Status: string(req.Status)})
}
