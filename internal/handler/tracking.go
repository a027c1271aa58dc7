package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// TrackOrder serves the public tracking view by order number. No
// authentication is required and the payload is redacted: no address, no
// payment details, no actor identities. Hits are served from the redis
// cache when one is configured; cache failures fall through to the
// repository and are only logged.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderNumber")

	if h.tracking != nil {
		cached, err := h.tracking.Get(r.Context(), number)
		if err != nil {
			zctx.From(r.Context()).Warn("tracking cache read failed", zap.Error(err))
		} else if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	info, err := h.orders.Track(r.Context(), number)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if h.tracking != nil {
		if err := h.tracking.Set(r.Context(), info); err != nil {
			zctx.From(r.Context()).Warn("tracking cache write failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, info)
}

// invalidateTracking drops the cached tracking payload after a state
// change. Failures are logged and ignored; the cache TTL bounds staleness.
func (h *Handler) invalidateTracking(r *http.Request, number string) {
	if h.tracking == nil {
		return
	}
	if err := h.tracking.Invalidate(r.Context(), number); err != nil {
		zctx.From(r.Context()).Warn("tracking cache invalidation failed", zap.Error(err))
	}
}
