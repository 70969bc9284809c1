// Package handler exposes the engine over HTTP with JSON bodies.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/request"
)

// Handler routes the engine's operations. All business logic lives in the
// request service; the handler only decodes, delegates, and maps errors.
type Handler struct {
	svc *request.Service
}

// New constructs a Handler around the request service.
func New(svc *request.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/quotes", h.quotePrice)
	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.submitRequest)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getRequest)
			r.Post("/approve", h.approveRequest)
			r.Post("/reject", h.rejectRequest)
			r.Post("/advance", h.advanceRequest)
			r.Post("/complete", h.completeRequest)
			r.Post("/payment/order", h.createPaymentOrder)
			r.Post("/payment/confirm", h.confirmPayment)
		})
	})
	return r
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
