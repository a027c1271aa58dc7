package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ovenlight/pizzatrack/internal/domain/inventory"
	"github.com/ovenlight/pizzatrack/internal/domain/order"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto the HTTP error taxonomy:
// validation 400, not found 404, ownership 403, state-machine guards 422,
// concurrent update races 409 (retryable), everything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		transitionErr *order.InvalidTransitionError
		paymentErr    *order.InvalidPaymentStateError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: validationErr.Error()})
	case errors.Is(err, order.ErrNotFound), errors.Is(err, inventory.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: 404, Message: err.Error()})
	case errors.Is(err, order.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, errorResponse{Code: 403, Message: "access denied"})
	case errors.Is(err, order.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Code: 409, Message: "order was modified concurrently, retry"})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: 422, Message: transitionErr.Error()})
	case errors.As(err, &paymentErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: 422, Message: paymentErr.Error()})
	case errors.Is(err, order.ErrNotDelivered), errors.Is(err, order.ErrAlreadyReviewed):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: 422, Message: err.Error()})
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: 500, Message: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: "invalid request body"})
		return false
	}
	return true
}
