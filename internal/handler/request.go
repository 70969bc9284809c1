package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/request"
)

type itemInputJSON struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type quoteReqJSON struct {
	Kind       string          `json:"kind"`
	Items      []itemInputJSON `json:"items"`
	CouponCode string          `json:"coupon_code,omitempty"`
}

type quoteRespJSON struct {
	GrossAmount    float64 `json:"gross_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	NetAmount      float64 `json:"net_amount"`
	AppliedCoupon  string  `json:"applied_coupon,omitempty"`
}

type submitReqJSON struct {
	Kind          string          `json:"kind"`
	UserID        string          `json:"user_id"`
	Items         []itemInputJSON `json:"items"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	PaymentMethod string          `json:"payment_method"`
}

type rejectReqJSON struct {
	Note string `json:"note"`
}

type lineItemJSON struct {
	ItemID      string  `json:"item_id"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

type requestRespJSON struct {
	ID               string         `json:"id"`
	Kind             string         `json:"kind"`
	UserID           string         `json:"user_id"`
	LineItems        []lineItemJSON `json:"line_items"`
	Surcharge        float64        `json:"surcharge"`
	CouponCode       string         `json:"coupon_code,omitempty"`
	GrossAmount      float64        `json:"gross_amount"`
	DiscountAmount   float64        `json:"discount_amount"`
	NetAmount        float64        `json:"net_amount"`
	Status           string         `json:"status"`
	PaymentMethod    string         `json:"payment_method"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	RejectionNote    string         `json:"rejection_note,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
}

func toRequestJSON(r *request.Request) requestRespJSON {
	items := make([]lineItemJSON, len(r.LineItems))
	for i, li := range r.LineItems {
		items[i] = lineItemJSON{
			ItemID:      li.ItemID,
			Description: li.Description,
			Category:    string(li.Category),
			UnitPrice:   li.UnitPrice.InexactFloat64(),
			Quantity:    li.Quantity,
		}
	}
	return requestRespJSON{
		ID:               r.ID,
		Kind:             string(r.Kind),
		UserID:           r.UserID,
		LineItems:        items,
		Surcharge:        r.Surcharge.InexactFloat64(),
		CouponCode:       r.CouponCode,
		GrossAmount:      r.GrossAmount.InexactFloat64(),
		DiscountAmount:   r.DiscountAmount.InexactFloat64(),
		NetAmount:        r.NetAmount.InexactFloat64(),
		Status:           string(r.Status),
		PaymentMethod:    string(r.PaymentMethod),
		PaymentReference: r.PaymentReference,
		RejectionNote:    r.RejectionNote,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ExpiresAt:        r.ExpiresAt,
	}
}

func toItemInputs(items []itemInputJSON) []request.ItemInput {
	out := make([]request.ItemInput, len(items))
	for i, item := range items {
		out[i] = request.ItemInput{ItemID: item.ItemID, Quantity: item.Quantity}
	}
	return out
}

func (h *Handler) quotePrice(w http.ResponseWriter, r *http.Request) {
	var body quoteReqJSON
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: "invalid request body"})
		return
	}

	quote, err := h.svc.QuotePrice(r.Context(), request.QuoteInput{
		Kind:       request.Kind(body.Kind),
		Items:      toItemInputs(body.Items),
		CouponCode: body.CouponCode,
	})
	if err != nil {
		writeError(w, r, "", err)
		return
	}

	writeJSON(w, http.StatusOK, quoteRespJSON{
		GrossAmount:    quote.Gross.InexactFloat64(),
		DiscountAmount: quote.Discount.InexactFloat64(),
		NetAmount:      quote.Net.InexactFloat64(),
		AppliedCoupon:  quote.AppliedCoupon,
	})
}

func (h *Handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitReqJSON
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: "invalid request body"})
		return
	}

	req, err := h.svc.SubmitRequest(r.Context(), request.SubmitInput{
		Kind:          request.Kind(body.Kind),
		UserID:        body.UserID,
		Items:         toItemInputs(body.Items),
		CouponCode:    body.CouponCode,
		PaymentMethod: request.PaymentMethod(body.PaymentMethod),
	})
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestJSON(req))
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestJSON(req))
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.svc.Approve(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestJSON(req))
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body rejectReqJSON
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: "invalid request body"})
		return
	}

	req, err := h.svc.Reject(r.Context(), id, body.Note)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestJSON(req))
}

func (h *Handler) advanceRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.svc.Advance(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestJSON(req))
}

func (h *Handler) completeRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.svc.Complete(r.Context(), id)
	if err != nil {
		writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestJSON(req))
}
