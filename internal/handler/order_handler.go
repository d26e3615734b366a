package handler

import (
	"fmt"
	"net/http"

	"food-kart/internal/model"
	"food-kart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}

	var req model.OrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body: "+err.Error(), h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), identity, &req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders. ?user_id=, ?business_id= and ?driver_id=
// narrow the listing; the service pins non-admins to their own scope.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidRequest, err.Error(), h.logger)
		return
	}

	var filter model.OrderFilter
	for _, f := range []struct {
		param string
		dst   **uuid.UUID
	}{
		{"user_id", &filter.UserID},
		{"business_id", &filter.BusinessID},
		{"driver_id", &filter.DriverID},
	} {
		param, dst := f.param, f.dst
		s := r.URL.Query().Get(param)
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			writeBadRequest(w, r, model.ErrCodeInvalidRequest, fmt.Sprintf("invalid %s parameter", param), h.logger)
			return
		}
		*dst = &id
	}

	orders, err := h.service.ListOrders(r.Context(), identity, filter, limit, offset)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Update handles PUT /api/orders/{id}. Only status, payment_status,
// delivery_time and notes are accepted; any other field, including the
// financial ones, is rejected.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var patch model.OrderPatch
	if err := decodeJSON(r, &patch, true); err != nil {
		writeBadRequest(w, r, model.ErrCodeFrozenField, "invalid order update: "+err.Error(), h.logger)
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), identity, orderID, patch)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
