package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenlight/pizzatrack/internal/domain/pricing"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID      map[string]*Order
	byNumber  map[string]*Order
	createErr error
	updateErr error

	creates int
	updates int
	// existing numbers reported by NumberExists, consumed in order
	existsQueue []bool
	existsErr   error
	existsCalls int

	counts  []StatusCount
	revenue decimal.Decimal
}

func newMockOrderRepo(orders ...*Order) *mockOrderRepo {
	r := &mockOrderRepo{
		byID:     make(map[string]*Order),
		byNumber: make(map[string]*Order),
	}
	for _, o := range orders {
		r.byID[o.ID] = o
		r.byNumber[o.Number] = o
	}
	return r
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if o.ID == "" {
		o.ID = "order-1"
	}
	m.byID[o.ID] = o
	m.byNumber[o.Number] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*Order, error) {
	o, ok := m.byNumber[number]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) NumberExists(_ context.Context, _ string) (bool, error) {
	m.existsCalls++
	if m.existsErr != nil {
		return false, m.existsErr
	}
	if len(m.existsQueue) == 0 {
		return false, nil
	}
	exists := m.existsQueue[0]
	m.existsQueue = m.existsQueue[1:]
	return exists, nil
}

func (m *mockOrderRepo) ListByOwner(_ context.Context, ownerID string, _ ListFilter) ([]Order, int, error) {
	var out []Order
	for _, o := range m.byID {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) List(_ context.Context, _ ListFilter) ([]Order, int, error) {
	var out []Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.byID[o.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != o.Version {
		return ErrVersionConflict
	}
	o.Version++
	cp := *o
	m.byID[o.ID] = &cp
	m.byNumber[o.Number] = &cp
	return nil
}

func (m *mockOrderRepo) StatusCounts(_ context.Context) ([]StatusCount, error) {
	return m.counts, nil
}

func (m *mockOrderRepo) CompletedRevenue(_ context.Context) (decimal.Decimal, error) {
	return m.revenue, nil
}

type mockQuoter struct {
	quote *pricing.Quote
	err   error
}

func (m *mockQuoter) Quote(_ context.Context, _ pricing.Selection) (*pricing.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.quote != nil {
		return m.quote, nil
	}
	return &pricing.Quote{
		BasePrice:  decimal.NewFromInt(365),
		Multiplier: decimal.RequireFromString("1.3"),
		TotalPrice: decimal.NewFromInt(475),
	}, nil
}

type mockNumbers struct {
	number string
	err    error
}

func (m *mockNumbers) Next(_ context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.number, nil
}

type notifierCall struct {
	kind     string
	previous Status
	event    string
}

type mockNotifier struct {
	calls []notifierCall
}

func (m *mockNotifier) OrderCreated(_ context.Context, _ *Order) {
	m.calls = append(m.calls, notifierCall{kind: "created"})
}

func (m *mockNotifier) StatusChanged(_ context.Context, _ *Order, previous Status, _ string) {
	m.calls = append(m.calls, notifierCall{kind: "status", previous: previous})
}

func (m *mockNotifier) StaffAlert(_ context.Context, _ *Order, event string) {
	m.calls = append(m.calls, notifierCall{kind: "staff", event: event})
}

// --- Helpers ---

func newTestService(repo *mockOrderRepo) (*Service, *mockNotifier) {
	notifier := &mockNotifier{}
	svc := NewService(repo, &mockQuoter{}, &mockNumbers{number: "PZ1700000000000123"}, notifier)
	svc.now = func() time.Time { return testTime }
	return svc, notifier
}

func newPlaceRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		OwnerID: "cust-1",
		Config:  newTestConfig(),
		Address: Address{
			Street:  "12 Oven St",
			City:    "Naples",
			ZipCode: "80100",
			Phone:   "555-0101",
		},
		PaymentMethod: PaymentGateway,
	}
}

func placedOrder(id string) *Order {
	o := newTestOrder()
	o.ID = id
	return o
}

// --- Tests ---

func TestPlaceOrder(t *testing.T) {
	repo := newMockOrderRepo()
	svc, notifier := newTestService(repo)

	o, err := svc.PlaceOrder(context.Background(), newPlaceRequest())

	require.NoError(t, err)
	assert.Equal(t, "PZ1700000000000123", o.Number)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, PaymentPending, o.Payment.Status)
	assert.True(t, decimal.NewFromInt(475).Equal(o.Pricing.TotalPrice))
	assert.Equal(t, 1, repo.creates)

	require.Len(t, notifier.calls, 2)
	assert.Equal(t, "created", notifier.calls[0].kind)
	assert.Equal(t, "staff", notifier.calls[1].kind)
	assert.Equal(t, "order placed", notifier.calls[1].event)
}

func TestPlaceOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaceOrderRequest)
		field  string
	}{
		{"missing owner", func(r *PlaceOrderRequest) { r.OwnerID = "" }, "owner"},
		{"missing base", func(r *PlaceOrderRequest) { r.Config.Base = "" }, "base"},
		{"missing sauce", func(r *PlaceOrderRequest) { r.Config.Sauce = "" }, "sauce"},
		{"missing cheese", func(r *PlaceOrderRequest) { r.Config.Cheese = "" }, "cheese"},
		{"bad size", func(r *PlaceOrderRequest) { r.Config.Size = "gigantic" }, "size"},
		{"zero quantity", func(r *PlaceOrderRequest) { r.Config.Quantity = 0 }, "quantity"},
		{"missing street", func(r *PlaceOrderRequest) { r.Address.Street = "" }, "street"},
		{"missing city", func(r *PlaceOrderRequest) { r.Address.City = "" }, "city"},
		{"missing zip", func(r *PlaceOrderRequest) { r.Address.ZipCode = "" }, "zip_code"},
		{"missing phone", func(r *PlaceOrderRequest) { r.Address.Phone = "" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockOrderRepo()
			svc, _ := newTestService(repo)

			req := newPlaceRequest()
			tt.mutate(&req)

			_, err := svc.PlaceOrder(context.Background(), req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Zero(t, repo.creates)
		})
	}
}

func TestPlaceOrder_UnknownIngredient(t *testing.T) {
	repo := newMockOrderRepo()
	notifier := &mockNotifier{}
	quoter := &mockQuoter{err: &pricing.UnknownIngredientError{Type: "meat", Name: "Unicorn"}}
	svc := NewService(repo, quoter, &mockNumbers{number: "PZ1"}, notifier)

	_, err := svc.PlaceOrder(context.Background(), newPlaceRequest())

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "meat", vErr.Field)
	assert.Zero(t, repo.creates)
	assert.Empty(t, notifier.calls)
}

func TestPlaceOrder_DefaultsToGatewayPayment(t *testing.T) {
	repo := newMockOrderRepo()
	svc, _ := newTestService(repo)

	req := newPlaceRequest()
	req.PaymentMethod = ""

	o, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, PaymentGateway, o.Payment.Method)
}

func TestPlaceOrder_CreateError(t *testing.T) {
	repo := newMockOrderRepo()
	repo.createErr = errors.New("db write failed")
	svc, notifier := newTestService(repo)

	_, err := svc.PlaceOrder(context.Background(), newPlaceRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, notifier.calls)
}

func TestGetOrder_Ownership(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, _ := newTestService(repo)

	_, err := svc.GetOrder(context.Background(), "order-1", "cust-2", false)
	require.ErrorIs(t, err, ErrNotOwner)

	o, err := svc.GetOrder(context.Background(), "order-1", "cust-1", false)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", o.OwnerID)

	// Staff bypasses ownership.
	o, err = svc.GetOrder(context.Background(), "order-1", "staff-1", true)
	require.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)
}

func TestUpdateStatus(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, notifier := newTestService(repo)

	o, err := svc.UpdateStatus(context.Background(), "order-1", StatusConfirmed, "staff-1", "verified by phone")

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.EqualValues(t, 2, o.Version)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "status", notifier.calls[0].kind)
	assert.Equal(t, StatusPlaced, notifier.calls[0].previous)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, notifier := newTestService(repo)

	_, err := svc.UpdateStatus(context.Background(), "order-1", StatusPlaced, "staff-1", "")

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Zero(t, repo.updates)
	assert.Empty(t, notifier.calls)
}

func TestUpdateStatus_VersionConflict(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	repo.updateErr = ErrVersionConflict
	svc, notifier := newTestService(repo)

	_, err := svc.UpdateStatus(context.Background(), "order-1", StatusConfirmed, "staff-1", "")

	require.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, notifier.calls)

	// The stored order is untouched.
	stored, getErr := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, getErr)
	assert.Equal(t, StatusPlaced, stored.Status)
}

func TestCancel(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, notifier := newTestService(repo)

	o, err := svc.Cancel(context.Background(), "order-1", "cust-1", "ordered twice")

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	last := o.History[len(o.History)-1]
	assert.Equal(t, "cust-1", last.ActorID)
	assert.Equal(t, "customer cancellation: ordered twice", last.Notes)
	require.Len(t, notifier.calls, 1)
}

func TestCancel_DefaultReason(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, _ := newTestService(repo)

	o, err := svc.Cancel(context.Background(), "order-1", "cust-1", "")

	require.NoError(t, err)
	last := o.History[len(o.History)-1]
	assert.Equal(t, "customer cancellation: no reason provided", last.Notes)
}

func TestCancel_NotOwner(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, _ := newTestService(repo)

	_, err := svc.Cancel(context.Background(), "order-1", "cust-2", "")
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestCancel_AfterKitchenStart(t *testing.T) {
	stored := placedOrder("order-1")
	require.NoError(t, stored.Transition(StatusPreparing, "staff-1", "", testTime))
	repo := newMockOrderRepo(stored)
	svc, _ := newTestService(repo)

	_, err := svc.Cancel(context.Background(), "order-1", "cust-1", "too late")

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
}

func TestSubmitReview_Service(t *testing.T) {
	stored := placedOrder("order-1")
	require.NoError(t, stored.Transition(StatusDelivered, "staff-1", "", testTime))
	repo := newMockOrderRepo(stored)
	svc, _ := newTestService(repo)

	_, err := svc.SubmitReview(context.Background(), "order-1", "cust-2", 5, "")
	require.ErrorIs(t, err, ErrNotOwner)

	o, err := svc.SubmitReview(context.Background(), "order-1", "cust-1", 5, "perfect")
	require.NoError(t, err)
	require.NotNil(t, o.Rating)
	assert.Equal(t, 5, o.Rating.Score)

	_, err = svc.SubmitReview(context.Background(), "order-1", "cust-1", 3, "changed my mind")
	require.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestConfirmPayment(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, notifier := newTestService(repo)

	o, err := svc.ConfirmPayment(context.Background(), "order-1", "cust-1", "pay_abc")

	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, o.Payment.Status)
	assert.Equal(t, "pay_abc", o.Payment.ExternalPaymentID)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.NotNil(t, o.EstimatedDeliveryAt)
	assert.Equal(t, 1, repo.updates)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, StatusPlaced, notifier.calls[0].previous)
}

func TestConfirmPayment_AlreadyCompleted(t *testing.T) {
	stored := placedOrder("order-1")
	require.NoError(t, stored.CompletePayment("pay_1"))
	repo := newMockOrderRepo(stored)
	svc, _ := newTestService(repo)

	_, err := svc.ConfirmPayment(context.Background(), "order-1", "cust-1", "pay_2")

	var pErr *InvalidPaymentStateError
	require.ErrorAs(t, err, &pErr)
	assert.Zero(t, repo.updates)
}

func TestFailPayment_Service(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, _ := newTestService(repo)

	o, err := svc.FailPayment(context.Background(), "order-1", "cust-1")

	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, o.Payment.Status)
	assert.Equal(t, StatusPlaced, o.Status)
}

func TestTrack(t *testing.T) {
	repo := newMockOrderRepo(placedOrder("order-1"))
	svc, _ := newTestService(repo)

	info, err := svc.Track(context.Background(), "PZ1700000000000123")

	require.NoError(t, err)
	assert.Equal(t, "PZ1700000000000123", info.OrderNumber)
	assert.Equal(t, StatusPlaced, info.CurrentStatus)
	assert.Equal(t, 14, info.Progress)

	_, err = svc.Track(context.Background(), "PZ0000000000000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	repo := newMockOrderRepo()
	repo.counts = []StatusCount{
		{Status: StatusPlaced, Count: 3},
		{Status: StatusDelivered, Count: 7},
	}
	repo.revenue = decimal.NewFromInt(3325)
	svc, _ := newTestService(repo)

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.True(t, decimal.NewFromInt(3325).Equal(stats.CompletedRevenue))
	assert.Len(t, stats.ByStatus, 2)
}
