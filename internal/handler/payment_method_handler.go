package handler

import (
	"net/http"

	"food-kart/internal/model"
	"food-kart/internal/service"

	"github.com/rs/zerolog"
)

// PaymentMethodHandler handles the caller's stored payment methods.
type PaymentMethodHandler struct {
	service service.PaymentMethodService
	logger  zerolog.Logger
}

// NewPaymentMethodHandler creates a new payment method handler.
func NewPaymentMethodHandler(service service.PaymentMethodService, logger zerolog.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment_method").Logger(),
	}
}

// List handles GET /api/payment-methods.
func (h *PaymentMethodHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}

	methods, err := h.service.List(r.Context(), identity)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, methods)
}

// Create handles POST /api/payment-methods.
func (h *PaymentMethodHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}

	var req model.PaymentMethodRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body: "+err.Error(), h.logger)
		return
	}

	pm, err := h.service.Create(r.Context(), identity, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, pm)
}

// Get handles GET /api/payment-methods/{id}.
func (h *PaymentMethodHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	pm, err := h.service.Get(r.Context(), identity, id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, pm)
}

// Update handles PUT /api/payment-methods/{id}.
func (h *PaymentMethodHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var patch model.PaymentMethodPatch
	if err := decodeJSON(r, &patch, true); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body: "+err.Error(), h.logger)
		return
	}

	pm, err := h.service.Update(r.Context(), identity, id, patch)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, pm)
}

// Delete handles DELETE /api/payment-methods/{id}.
func (h *PaymentMethodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
