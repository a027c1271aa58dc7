package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/pizzatrack/internal/domain/pricing"
)

// PriceQuoter computes the price snapshot for a pizza selection.
type PriceQuoter interface {
	Quote(ctx context.Context, sel pricing.Selection) (*pricing.Quote, error)
}

// NumberSource produces unique order tracking codes.
type NumberSource interface {
	Next(ctx context.Context) (string, error)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	OwnerID             string
	Config              Configuration
	Address             Address
	PaymentMethod       PaymentMethod
	ExternalOrderID     string
	SpecialInstructions string
}

// Service implements the order lifecycle operations. All collaborators are
// injected; the service holds no ambient global state.
type Service struct {
	orders   Repository
	quoter   PriceQuoter
	numbers  NumberSource
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(orders Repository, quoter PriceQuoter, numbers NumberSource, notifier Notifier) *Service {
	return &Service{
		orders:   orders,
		quoter:   quoter,
		numbers:  numbers,
		notifier: notifier,
		now:      time.Now,
	}
}

// PlaceOrder validates the request, prices the configuration, assigns a
// unique order number, persists the order in its initial placed state, and
// fires creation notifications. Notification failures never fail the order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	quote, err := s.quoter.Quote(ctx, pricing.Selection{
		Base:       req.Config.Base,
		Sauce:      req.Config.Sauce,
		Cheese:     req.Config.Cheese,
		Vegetables: req.Config.Vegetables,
		Meats:      req.Config.Meats,
		Size:       string(req.Config.Size),
		Quantity:   req.Config.Quantity,
	})
	if err != nil {
		var unknown *pricing.UnknownIngredientError
		if errors.As(err, &unknown) {
			return nil, &ValidationError{Field: string(unknown.Type), Reason: unknown.Error()}
		}
		return nil, errors.Wrap(err, "price order")
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "assign order number")
	}

	method := req.PaymentMethod
	if method == "" {
		method = PaymentGateway
	}
	o := New(req.OwnerID, number, req.Config, Pricing{
		BasePrice:      quote.BasePrice,
		SizeMultiplier: quote.Multiplier,
		TotalPrice:     quote.TotalPrice,
	}, req.Address, Payment{
		Method:          method,
		ExternalOrderID: req.ExternalOrderID,
		Status:          PaymentPending,
	}, req.SpecialInstructions, s.now())

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.notifier.OrderCreated(ctx, o)
	s.notifier.StaffAlert(ctx, o, "order placed")
	return o, nil
}

// GetOrder returns the order with full detail. Non-staff callers may only
// read their own orders.
func (s *Service) GetOrder(ctx context.Context, id, callerID string, staff bool) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff && o.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// ListOwn returns the caller's orders, newest first.
func (s *Service) ListOwn(ctx context.Context, ownerID string, f ListFilter) ([]Order, int, error) {
	return s.orders.ListByOwner(ctx, ownerID, f)
}

// ListAll returns all orders for staff views.
func (s *Service) ListAll(ctx context.Context, f ListFilter) ([]Order, int, error) {
	return s.orders.List(ctx, f)
}

// UpdateStatus applies a status transition, persists it with an optimistic
// version check, and notifies the owner. A concurrent update surfaces as
// ErrVersionConflict and leaves no partial history entry.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status, actorID, notes string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := o.Status
	if err := o.Transition(next, actorID, notes, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	s.notifier.StatusChanged(ctx, o, previous, notes)
	return o, nil
}

// Cancel cancels the caller's own order. Orders that have entered the
// kitchen (preparing or later) can no longer be cancelled.
func (s *Service) Cancel(ctx context.Context, id, callerID, reason string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if reason == "" {
		reason = "no reason provided"
	}
	return s.UpdateStatus(ctx, id, StatusCancelled, callerID, "customer cancellation: "+reason)
}

// SubmitReview records the caller's one-time rating of a delivered order.
func (s *Service) SubmitReview(ctx context.Context, id, callerID string, score int, review string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if err := o.SubmitReview(score, review, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ConfirmPayment marks the payment completed after the gateway verified it
// and moves the order to confirmed in the same operation. The cryptographic
// signature handshake happens upstream; this only records the outcome.
func (s *Service) ConfirmPayment(ctx context.Context, id, callerID, externalPaymentID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if err := o.CompletePayment(externalPaymentID); err != nil {
		return nil, err
	}
	previous := o.Status
	if err := o.Transition(StatusConfirmed, "", "payment verified", s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	s.notifier.StatusChanged(ctx, o, previous, "payment verified")
	return o, nil
}

// FailPayment records a failed gateway payment. The order itself stays
// placed; the customer can retry or cancel.
func (s *Service) FailPayment(ctx context.Context, id, callerID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if err := o.FailPayment(); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Track returns the public, unauthenticated tracking view of an order by
// its tracking code. The payload is redacted: no actor IDs, no address, no
// payment details.
func (s *Service) Track(ctx context.Context, number string) (*TrackingInfo, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return NewTrackingInfo(o), nil
}

// Stats is the aggregate sales snapshot for staff dashboards.
type Stats struct {
	Total            int
	ByStatus         []StatusCount
	CompletedRevenue decimal.Decimal
}

// Stats returns the per-status order distribution and the revenue from
// completed payments.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.orders.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orders.CompletedRevenue(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return &Stats{Total: total, ByStatus: counts, CompletedRevenue: revenue}, nil
}

func validatePlaceOrder(req PlaceOrderRequest) error {
	switch {
	case req.OwnerID == "":
		return &ValidationError{Field: "owner", Reason: "required"}
	case req.Config.Base == "":
		return &ValidationError{Field: "base", Reason: "required"}
	case req.Config.Sauce == "":
		return &ValidationError{Field: "sauce", Reason: "required"}
	case req.Config.Cheese == "":
		return &ValidationError{Field: "cheese", Reason: "required"}
	case !req.Config.Size.Valid():
		return &ValidationError{Field: "size", Reason: "must be one of small, medium, large, extra-large"}
	case req.Config.Quantity < 1:
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	case req.Address.Street == "":
		return &ValidationError{Field: "street", Reason: "required"}
	case req.Address.City == "":
		return &ValidationError{Field: "city", Reason: "required"}
	case req.Address.ZipCode == "":
		return &ValidationError{Field: "zip_code", Reason: "required"}
	case req.Address.Phone == "":
		return &ValidationError{Field: "phone", Reason: "required"}
	}
	return nil
}
