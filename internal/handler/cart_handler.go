package handler

import (
	"net/http"

	"food-kart/internal/model"
	"food-kart/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart HTTP requests. Every response carries the cart
// with freshly computed totals.
type CartHandler struct {
	carts  service.CartService
	orders service.OrderService
	logger zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts service.CartService, orders service.OrderService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		orders: orders,
		logger: logger.With().Str("handler", "cart").Logger(),
	}
}

// List handles GET /api/carts.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}

	carts, err := h.carts.ListCarts(r.Context(), identity)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, carts)
}

// Get handles GET /api/carts/{business_id}.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	businessID, ok := pathUUID(w, r, "business_id", h.logger)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateCart(r.Context(), identity, businessID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// Clear handles DELETE /api/carts/{business_id}.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	businessID, ok := pathUUID(w, r, "business_id", h.logger)
	if !ok {
		return
	}

	cart, err := h.carts.ClearCart(r.Context(), identity, businessID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// Checkout handles POST /api/carts/{business_id}/checkout.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	businessID, ok := pathUUID(w, r, "business_id", h.logger)
	if !ok {
		return
	}

	var req model.CheckoutRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body: "+err.Error(), h.logger)
		return
	}

	order, err := h.orders.Checkout(r.Context(), identity, businessID, &req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}

	var req model.AddCartItemRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body: "+err.Error(), h.logger)
		return
	}

	cart, err := h.carts.AddOrIncrementItem(r.Context(), identity, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// UpdateItem handles PUT /api/cart/items/{item_id}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "item_id", h.logger)
	if !ok {
		return
	}

	var req model.UpdateCartItemRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body: "+err.Error(), h.logger)
		return
	}

	cart, err := h.carts.SetItemQuantity(r.Context(), identity, itemID, req.Quantity)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{item_id}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r, h.logger)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "item_id", h.logger)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), identity, itemID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}
