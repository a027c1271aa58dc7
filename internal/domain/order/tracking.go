package order

import "time"

// TrackingEvent is a redacted history entry for the public tracking view.
// It deliberately omits who performed the transition.
type TrackingEvent struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// TrackingSummary is the minimal order description exposed publicly.
type TrackingSummary struct {
	Base     string `json:"base"`
	Size     Size   `json:"size"`
	Quantity int    `json:"quantity"`
}

// TrackingInfo is the unauthenticated tracking payload. It never carries
// the delivery address, payment details, or actor identities.
type TrackingInfo struct {
	OrderNumber       string          `json:"order_number"`
	CurrentStatus     Status          `json:"current_status"`
	Progress          int             `json:"progress"`
	IsInProgress      bool            `json:"is_in_progress"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time      `json:"actual_delivery,omitempty"`
	OrderDate         time.Time       `json:"order_date"`
	StatusHistory     []TrackingEvent `json:"status_history"`
	OrderSummary      TrackingSummary `json:"order_summary"`
}

// NewTrackingInfo projects an order onto its public tracking view.
func NewTrackingInfo(o *Order) *TrackingInfo {
	history := make([]TrackingEvent, len(o.History))
	for i, ev := range o.History {
		history[i] = TrackingEvent{
			Status:    ev.Status,
			Timestamp: ev.Timestamp,
			Notes:     ev.Notes,
		}
	}
	return &TrackingInfo{
		OrderNumber:       o.Number,
		CurrentStatus:     o.Status,
		Progress:          o.Progress(),
		IsInProgress:      o.InProgress(),
		EstimatedDelivery: o.EstimatedDeliveryAt,
		ActualDelivery:    o.ActualDeliveryAt,
		OrderDate:         o.CreatedAt,
		StatusHistory:     history,
		OrderSummary: TrackingSummary{
			Base:     o.Config.Base,
			Size:     o.Config.Size,
			Quantity: o.Config.Quantity,
		},
	}
}
