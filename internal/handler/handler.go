// Package handler exposes the HTTP API. It is a thin layer: request
// decoding, identity checks, and error mapping; all business rules live in
// the domain packages.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ovenlight/pizzatrack/internal/domain/inventory"
	"github.com/ovenlight/pizzatrack/internal/domain/order"
	"github.com/ovenlight/pizzatrack/internal/storage/redis"
)

// Handler holds the HTTP endpoint dependencies.
type Handler struct {
	orders    *order.Service
	inventory inventory.Repository
	quoter    order.PriceQuoter
	tracking  *redis.TrackingCache
}

// NewHandler constructs a Handler. tracking may be nil, in which case the
// public tracking endpoint always reads from the repository.
func NewHandler(
	orders *order.Service,
	inv inventory.Repository,
	quoter order.PriceQuoter,
	tracking *redis.TrackingCache,
) *Handler {
	return &Handler{
		orders:    orders,
		inventory: inv,
		quoter:    quoter,
		tracking:  tracking,
	}
}

// Router builds the chi route tree. Customer routes require any valid API
// key; staff routes additionally require the staff role; tracking is public.
func (h *Handler) Router(sec *Security) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		// Public, unauthenticated tracking surface.
		r.Get("/track/{orderNumber}", h.TrackOrder)

		r.Group(func(r chi.Router) {
			r.Use(sec.Authenticate)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.ListOwnOrders)
			r.Get("/orders/{orderID}", h.GetOrder)
			r.Put("/orders/{orderID}/cancel", h.CancelOrder)
			r.Post("/orders/{orderID}/review", h.SubmitReview)
			r.Post("/orders/{orderID}/payment/confirm", h.ConfirmPayment)
			r.Post("/orders/{orderID}/payment/fail", h.FailPayment)

			r.Get("/inventory", h.ListInventory)
			r.Get("/inventory/{itemType}", h.ListInventoryByType)
			r.Post("/pricing/quote", h.QuotePrice)

			r.Route("/staff", func(r chi.Router) {
				r.Use(sec.RequireStaff)

				r.Get("/orders", h.ListAllOrders)
				r.Put("/orders/{orderID}/status", h.UpdateOrderStatus)
				r.Put("/inventory/{itemID}", h.UpdateInventory)
				r.Get("/stats", h.Stats)
			})
		})
	})

	return r
}
