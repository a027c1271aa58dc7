package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/pizzatrack/internal/domain/auth"
	"github.com/ovenlight/pizzatrack/internal/domain/order"
)

type placeOrderRequest struct {
	Config              order.Configuration `json:"config"`
	DeliveryAddress     order.Address       `json:"delivery_address"`
	PaymentMethod       order.PaymentMethod `json:"payment_method"`
	ExternalOrderID     string              `json:"external_order_id"`
	SpecialInstructions string              `json:"special_instructions"`
}

type orderResponse struct {
	ID                  string              `json:"id"`
	Number              string              `json:"order_number"`
	Status              order.Status        `json:"status"`
	Progress            int                 `json:"progress"`
	IsInProgress        bool                `json:"is_in_progress"`
	Config              order.Configuration `json:"config"`
	Pricing             order.Pricing       `json:"pricing"`
	Address             order.Address       `json:"delivery_address"`
	Payment             order.Payment       `json:"payment"`
	History             []order.StatusEvent `json:"status_history"`
	EstimatedDelivery   *time.Time          `json:"estimated_delivery,omitempty"`
	ActualDelivery      *time.Time          `json:"actual_delivery,omitempty"`
	CookingMinutes      int                 `json:"cooking_minutes"`
	DeliveryMinutes     int                 `json:"delivery_minutes"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
	Rating              *order.Rating       `json:"rating,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:                  o.ID,
		Number:              o.Number,
		Status:              o.Status,
		Progress:            o.Progress(),
		IsInProgress:        o.InProgress(),
		Config:              o.Config,
		Pricing:             o.Pricing,
		Address:             o.Address,
		Payment:             o.Payment,
		History:             o.History,
		EstimatedDelivery:   o.EstimatedDeliveryAt,
		ActualDelivery:      o.ActualDeliveryAt,
		CookingMinutes:      o.CookingMinutes,
		DeliveryMinutes:     o.DeliveryMinutes,
		SpecialInstructions: o.SpecialInstructions,
		Rating:              o.Rating,
		CreatedAt:           o.CreatedAt,
	}
}

type pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	Pagination pagination      `json:"pagination"`
}

// PlaceOrder creates a new order for the authenticated customer.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		OwnerID:             identity.ID,
		Config:              req.Config,
		Address:             req.DeliveryAddress,
		PaymentMethod:       req.PaymentMethod,
		ExternalOrderID:     req.ExternalOrderID,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOwnOrders returns the caller's orders, newest first, with pagination.
func (h *Handler) ListOwnOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	filter, page := listFilterFromQuery(r)

	orders, total, err := h.orders.ListOwn(r.Context(), identity.ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(orders, total, page, filter.Limit))
}

// GetOrder returns the full order detail. Customers can only read their own
// orders; staff can read any.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"), identity.ID, identity.Role == auth.RoleStaff)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// CancelOrder cancels the caller's own order while it is still cancellable.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "orderID"), identity.ID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidateTracking(r, o.Number)
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// SubmitReview records the caller's one-time review of a delivered order.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		Score  int    `json:"score"`
		Review string `json:"review"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.SubmitReview(r.Context(), chi.URLParam(r, "orderID"), identity.ID, req.Score, req.Review)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ConfirmPayment records a verified gateway payment and confirms the order.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		ExternalPaymentID string `json:"external_payment_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.ConfirmPayment(r.Context(), chi.URLParam(r, "orderID"), identity.ID, req.ExternalPaymentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidateTracking(r, o.Number)
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// FailPayment records a failed gateway payment attempt.
func (h *Handler) FailPayment(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	o, err := h.orders.FailPayment(r.Context(), chi.URLParam(r, "orderID"), identity.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListAllOrders returns all orders for staff, with status filter and
// pagination.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	filter, page := listFilterFromQuery(r)

	orders, total, err := h.orders.ListAll(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(orders, total, page, filter.Limit))
}

// UpdateOrderStatus applies a staff-driven status transition.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		Status order.Status `json:"status"`
		Notes  string       `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status, identity.ID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidateTracking(r, o.Number)
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Stats returns the staff dashboard aggregates.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	byStatus := make(map[order.Status]int, len(stats.ByStatus))
	for _, c := range stats.ByStatus {
		byStatus[c.Status] = c.Count
	}
	writeJSON(w, http.StatusOK, struct {
		TotalOrders      int                  `json:"total_orders"`
		ByStatus         map[order.Status]int `json:"by_status"`
		CompletedRevenue decimal.Decimal      `json:"completed_revenue"`
	}{
		TotalOrders:      stats.Total,
		ByStatus:         byStatus,
		CompletedRevenue: stats.CompletedRevenue,
	})
}

func listFilterFromQuery(r *http.Request) (order.ListFilter, int) {
	q := r.URL.Query()

	limit := intQuery(q.Get("limit"), 10)
	page := intQuery(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}

	status := q.Get("status")
	if status == "all" {
		status = ""
	}

	return order.ListFilter{
		Status: order.Status(status),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, page
}

func listResponse(orders []order.Order, total, page, limit int) orderListResponse {
	views := make([]orderResponse, len(orders))
	for i := range orders {
		views[i] = toOrderResponse(&orders[i])
	}
	if limit <= 0 {
		limit = 10
	}
	totalPages := (total + limit - 1) / limit
	return orderListResponse{
		Orders: views,
		Pagination: pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			Total:       total,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}
}

func intQuery(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
