package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Size is a pizza size. The size drives both the price multiplier and the
// cooking-time surcharge.
type Size string

const (
	SizeSmall      Size = "small"
	SizeMedium     Size = "medium"
	SizeLarge      Size = "large"
	SizeExtraLarge Size = "extra-large"
)

// Valid reports whether s is a recognized size.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge:
		return true
	}
	return false
}

// Configuration is the customer's pizza selection. It is frozen onto the
// order at placement and never edited afterwards.
type Configuration struct {
	Base       string   `json:"base"`
	Sauce      string   `json:"sauce"`
	Cheese     string   `json:"cheese"`
	Vegetables []string `json:"vegetables"`
	Meats      []string `json:"meats"`
	Size       Size     `json:"size"`
	Quantity   int      `json:"quantity"`
}

// Toppings returns the total topping count (vegetables plus meats,
// duplicates included).
func (c Configuration) Toppings() int {
	return len(c.Vegetables) + len(c.Meats)
}

// Pricing is the price snapshot computed at placement. Later edits to the
// inventory catalog never retroactively change an order's price.
type Pricing struct {
	BasePrice      decimal.Decimal `json:"base_price"`
	SizeMultiplier decimal.Decimal `json:"size_multiplier"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}

// Address is the delivery destination. The core treats it as opaque text.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
	Phone   string `json:"phone"`
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentGateway        PaymentMethod = "gateway"
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
)

// PaymentStatus tracks the payment lifecycle independently of the order
// status machine.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment holds the gateway linkage for an order.
type Payment struct {
	Method            PaymentMethod `json:"method"`
	ExternalOrderID   string        `json:"external_order_id,omitempty"`
	ExternalPaymentID string        `json:"external_payment_id,omitempty"`
	Status            PaymentStatus `json:"status"`
}

// StatusEvent is one immutable entry in the order's audit history.
// An empty ActorID means the transition was system-generated.
type StatusEvent struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Rating is a one-time customer review, settable only after delivery.
type Rating struct {
	Score      int       `json:"score"`
	Review     string    `json:"review"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Order is the aggregate root. All mutation goes through Transition,
// SubmitReview, and the payment methods; everything else is frozen at
// placement.
type Order struct {
	ID                  string
	OwnerID             string
	Number              string
	Config              Configuration
	Pricing             Pricing
	Address             Address
	Payment             Payment
	Status              Status
	History             []StatusEvent
	EstimatedDeliveryAt *time.Time
	ActualDeliveryAt    *time.Time
	CookingMinutes      int
	DeliveryMinutes     int
	SpecialInstructions string
	Rating              *Rating
	Active              bool
	Version             int64
	CreatedAt           time.Time
}

// defaultDeliveryMinutes is the flat courier estimate added to the cooking
// time when computing the estimated delivery timestamp.
const defaultDeliveryMinutes = 15

// CookingTime computes the kitchen estimate in minutes for a configuration:
// 15 minutes base, a per-size surcharge, 2 minutes per topping, and 5
// minutes per extra unit, capped at 45.
func CookingTime(c Configuration) int {
	minutes := 15
	switch c.Size {
	case SizeMedium:
		minutes += 3
	case SizeLarge:
		minutes += 5
	case SizeExtraLarge:
		minutes += 8
	}
	minutes += 2 * c.Toppings()
	if c.Quantity > 1 {
		minutes += 5 * (c.Quantity - 1)
	}
	if minutes > 45 {
		minutes = 45
	}
	return minutes
}

// New assembles an order in its initial placed state. The repository assigns
// the ID on create; the number comes from the number generator and is never
// regenerated afterwards.
func New(ownerID, number string, cfg Configuration, pricing Pricing, addr Address, payment Payment, instructions string, now time.Time) *Order {
	return &Order{
		OwnerID:             ownerID,
		Number:              number,
		Config:              cfg,
		Pricing:             pricing,
		Address:             addr,
		Payment:             payment,
		Status:              StatusPlaced,
		History:             []StatusEvent{{Status: StatusPlaced, Timestamp: now}},
		CookingMinutes:      CookingTime(cfg),
		DeliveryMinutes:     defaultDeliveryMinutes,
		SpecialInstructions: instructions,
		Active:              true,
		Version:             1,
		CreatedAt:           now,
	}
}

// Transition moves the order to next and appends an audit event. Transitions
// out of a terminal status are rejected. Within the forward sequence only
// strictly forward moves are accepted; multi-step jumps are allowed so staff
// can skip stages, but moving backwards is not. Cancellation is only
// accepted from placed or confirmed.
func (o *Order) Transition(next Status, actorID, notes string, now time.Time) error {
	if !next.Valid() {
		return &InvalidTransitionError{From: o.Status, To: next, Reason: "unknown status"}
	}
	if o.Status.Terminal() {
		return &InvalidTransitionError{From: o.Status, To: next, Reason: "order is in a terminal state"}
	}
	if next == StatusCancelled {
		if !o.Status.Cancellable() {
			return &InvalidTransitionError{From: o.Status, To: next, Reason: "order can no longer be cancelled"}
		}
	} else if next.rank() <= o.Status.rank() {
		return &InvalidTransitionError{From: o.Status, To: next, Reason: "status can only move forward"}
	}

	o.Status = next
	o.History = append(o.History, StatusEvent{
		Status:    next,
		Timestamp: now,
		ActorID:   actorID,
		Notes:     notes,
	})

	switch next {
	case StatusConfirmed:
		// Each confirmation recomputes and overwrites the estimate.
		eta := now.Add(time.Duration(o.CookingMinutes+o.DeliveryMinutes) * time.Minute)
		o.EstimatedDeliveryAt = &eta
	case StatusDelivered:
		t := now
		o.ActualDeliveryAt = &t
	}

	return nil
}

// Progress is the order's completion percentage derived from its status.
func (o *Order) Progress() int {
	return o.Status.Progress()
}

// InProgress reports whether the order has not yet reached a terminal state.
func (o *Order) InProgress() bool {
	return !o.Status.Terminal()
}

// SubmitReview records the customer's one-time rating. Only delivered orders
// may be reviewed, and only once.
func (o *Order) SubmitReview(score int, review string, now time.Time) error {
	if o.Status != StatusDelivered {
		return ErrNotDelivered
	}
	if o.Rating != nil {
		return ErrAlreadyReviewed
	}
	if score < 1 || score > 5 {
		return &ValidationError{Field: "score", Reason: "must be between 1 and 5"}
	}
	o.Rating = &Rating{Score: score, Review: review, ReviewedAt: now}
	return nil
}

// CompletePayment marks a pending payment as completed and records the
// gateway payment identifier.
func (o *Order) CompletePayment(externalPaymentID string) error {
	if o.Payment.Status != PaymentPending {
		return &InvalidPaymentStateError{From: o.Payment.Status, To: PaymentCompleted}
	}
	o.Payment.Status = PaymentCompleted
	o.Payment.ExternalPaymentID = externalPaymentID
	return nil
}

// FailPayment marks a pending payment as failed.
func (o *Order) FailPayment() error {
	if o.Payment.Status != PaymentPending {
		return &InvalidPaymentStateError{From: o.Payment.Status, To: PaymentFailed}
	}
	o.Payment.Status = PaymentFailed
	return nil
}

// ListFilter narrows and pages order listings. A zero Status means no
// status filter; Limit of 0 falls back to the repository default.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// StatusCount is one bucket of the per-status order distribution.
type StatusCount struct {
	Status Status
	Count  int
}

// Repository defines persistence operations for orders. Update must apply
// an optimistic version check and return ErrVersionConflict on a stale
// write so concurrent transitions cannot interleave history entries.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, f ListFilter) ([]Order, int, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	Update(ctx context.Context, o *Order) error
	StatusCounts(ctx context.Context) ([]StatusCount, error)
	CompletedRevenue(ctx context.Context) (decimal.Decimal, error)
}

// Notifier receives lifecycle events for best-effort delivery. Implementations
// must never block the calling operation or surface delivery failures;
// the order service treats every call as fire-and-forget.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
	StatusChanged(ctx context.Context, o *Order, previous Status, notes string)
	StaffAlert(ctx context.Context, o *Order, event string)
}
