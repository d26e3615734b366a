package router

import (
	"net/http"

	"food-kart/internal/handler"
	"food-kart/internal/metrics"
	"food-kart/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Health         *handler.HealthHandler
	Products       *handler.ProductHandler
	Carts          *handler.CartHandler
	Orders         *handler.OrderHandler
	PaymentMethods *handler.PaymentMethodHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, verifier middleware.TokenVerifier, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> Logging -> Metrics -> CORS -> RequestID -> Auth
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS)
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(verifier, logger))

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.Products.GetAll)
		r.Get("/products/{id}", h.Products.GetByID)

		r.Get("/carts", h.Carts.List)
		r.Get("/carts/{business_id}", h.Carts.Get)
		r.Delete("/carts/{business_id}", h.Carts.Clear)
		r.Post("/carts/{business_id}/checkout", h.Carts.Checkout)

		r.Post("/cart/items", h.Carts.AddItem)
		r.Put("/cart/items/{item_id}", h.Carts.UpdateItem)
		r.Delete("/cart/items/{item_id}", h.Carts.RemoveItem)

		r.Get("/orders", h.Orders.List)
		r.Post("/orders", h.Orders.Create)
		r.Get("/orders/{id}", h.Orders.GetByID)
		r.Put("/orders/{id}", h.Orders.Update)

		r.Get("/payment-methods", h.PaymentMethods.List)
		r.Post("/payment-methods", h.PaymentMethods.Create)
		r.Get("/payment-methods/{id}", h.PaymentMethods.Get)
		r.Put("/payment-methods/{id}", h.PaymentMethods.Update)
		r.Delete("/payment-methods/{id}", h.PaymentMethods.Delete)
	})

	return r
}
