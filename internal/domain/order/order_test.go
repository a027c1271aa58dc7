package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

func newTestConfig() Configuration {
	return Configuration{
		Base:       "Thin Crust",
		Sauce:      "Tomato Sauce",
		Cheese:     "Mozzarella",
		Vegetables: []string{"Mushrooms", "Bell Peppers"},
		Meats:      []string{"Pepperoni"},
		Size:       SizeMedium,
		Quantity:   1,
	}
}

func newTestOrder() *Order {
	return New("cust-1", "PZ1700000000000123", newTestConfig(), Pricing{}, Address{
		Street:  "12 Oven St",
		City:    "Naples",
		ZipCode: "80100",
		Phone:   "555-0101",
	}, Payment{Method: PaymentGateway, Status: PaymentPending}, "", testTime)
}

func TestCookingTime(t *testing.T) {
	tests := []struct {
		name string
		cfg  Configuration
		want int
	}{
		{
			name: "small plain single",
			cfg:  Configuration{Size: SizeSmall, Quantity: 1},
			want: 15,
		},
		{
			name: "medium three toppings",
			cfg: Configuration{
				Size:       SizeMedium,
				Vegetables: []string{"Mushrooms", "Bell Peppers"},
				Meats:      []string{"Pepperoni"},
				Quantity:   1,
			},
			want: 24, // 15 + 3 + 2*3
		},
		{
			name: "large two units",
			cfg: Configuration{
				Size:     SizeLarge,
				Quantity: 2,
			},
			want: 25, // 15 + 5 + 5
		},
		{
			name: "extra large loaded capped at 45",
			cfg: Configuration{
				Size:       SizeExtraLarge,
				Vegetables: []string{"Mushrooms", "Bell Peppers", "Onions", "Olives", "Jalapenos"},
				Meats:      []string{"Pepperoni", "Chicken", "Bacon", "Italian Sausage", "Ham"},
				Quantity:   3,
			},
			want: 45, // 15 + 8 + 20 + 10 = 53 exceeds cap
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CookingTime(tt.cfg))
		})
	}
}

func TestNew_InitialState(t *testing.T) {
	o := newTestOrder()

	assert.Equal(t, StatusPlaced, o.Status)
	assert.True(t, o.Active)
	assert.EqualValues(t, 1, o.Version)
	assert.Equal(t, 15, o.DeliveryMinutes)
	assert.Equal(t, 24, o.CookingMinutes)
	assert.Nil(t, o.EstimatedDeliveryAt)
	assert.Nil(t, o.ActualDeliveryAt)
	require.Len(t, o.History, 1)
	assert.Equal(t, StatusPlaced, o.History[0].Status)
	assert.Equal(t, testTime, o.History[0].Timestamp)
}

func TestTransition_HappyPath(t *testing.T) {
	o := newTestOrder()
	steps := []Status{
		StatusConfirmed,
		StatusPreparing,
		StatusBaking,
		StatusReady,
		StatusOutForDelivery,
		StatusDelivered,
	}

	now := testTime
	for _, next := range steps {
		now = now.Add(5 * time.Minute)
		require.NoError(t, o.Transition(next, "staff-1", "", now))
		assert.Equal(t, next, o.Status)
	}

	require.Len(t, o.History, 7)
	for i, ev := range o.History {
		assert.Equal(t, forwardSequence[i], ev.Status)
	}
	require.NotNil(t, o.ActualDeliveryAt)
	assert.Equal(t, now, *o.ActualDeliveryAt)
	assert.False(t, o.InProgress())
	assert.Equal(t, 100, o.Progress())
}

func TestTransition_ConfirmedSetsEstimate(t *testing.T) {
	o := newTestOrder()

	confirmedAt := testTime.Add(2 * time.Minute)
	require.NoError(t, o.Transition(StatusConfirmed, "", "payment verified", confirmedAt))

	require.NotNil(t, o.EstimatedDeliveryAt)
	// 24 minutes cooking + 15 minutes delivery.
	assert.Equal(t, confirmedAt.Add(39*time.Minute), *o.EstimatedDeliveryAt)

	// A slower kitchen estimate shifts the ETA accordingly.
	o2 := newTestOrder()
	o2.CookingMinutes = 25
	require.NoError(t, o2.Transition(StatusConfirmed, "", "", confirmedAt))
	assert.Equal(t, confirmedAt.Add(40*time.Minute), *o2.EstimatedDeliveryAt)
}

func TestTransition_ForwardJumpAllowed(t *testing.T) {
	o := newTestOrder()

	require.NoError(t, o.Transition(StatusBaking, "staff-1", "rush order", testTime))
	assert.Equal(t, StatusBaking, o.Status)
	assert.Len(t, o.History, 2)
}

func TestTransition_BackwardRejected(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Transition(StatusBaking, "staff-1", "", testTime))

	err := o.Transition(StatusConfirmed, "staff-1", "", testTime)
	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusBaking, itErr.From)
	assert.Equal(t, StatusConfirmed, itErr.To)
	assert.Len(t, o.History, 2)
}

func TestTransition_SameStatusRejected(t *testing.T) {
	o := newTestOrder()

	err := o.Transition(StatusPlaced, "", "", testTime)
	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
}

func TestTransition_UnknownStatusRejected(t *testing.T) {
	o := newTestOrder()

	err := o.Transition(Status("frozen"), "", "", testTime)
	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
}

func TestTransition_TerminalRejected(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Transition(StatusCancelled, "cust-1", "changed my mind", testTime))

	err := o.Transition(StatusConfirmed, "staff-1", "", testTime)
	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusCancelled, itErr.From)
}

func TestTransition_CancellationWindow(t *testing.T) {
	tests := []struct {
		from Status
		ok   bool
	}{
		{StatusPlaced, true},
		{StatusConfirmed, true},
		{StatusPreparing, false},
		{StatusBaking, false},
		{StatusReady, false},
		{StatusOutForDelivery, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			o := newTestOrder()
			if tt.from != StatusPlaced {
				require.NoError(t, o.Transition(tt.from, "staff-1", "", testTime))
			}

			err := o.Transition(StatusCancelled, "cust-1", "", testTime)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, StatusCancelled, o.Status)
				assert.Equal(t, 0, o.Progress())
			} else {
				var itErr *InvalidTransitionError
				require.ErrorAs(t, err, &itErr)
			}
		})
	}
}

func TestTransition_HistoryRecordsActorAndNotes(t *testing.T) {
	o := newTestOrder()

	require.NoError(t, o.Transition(StatusCancelled, "cust-1", "customer cancellation: wrong size", testTime))

	last := o.History[len(o.History)-1]
	assert.Equal(t, "cust-1", last.ActorID)
	assert.Equal(t, "customer cancellation: wrong size", last.Notes)
}

func TestSubmitReview(t *testing.T) {
	o := newTestOrder()

	err := o.SubmitReview(5, "great", testTime)
	require.ErrorIs(t, err, ErrNotDelivered)

	require.NoError(t, o.Transition(StatusDelivered, "staff-1", "", testTime))

	err = o.SubmitReview(0, "meh", testTime)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "score", vErr.Field)

	err = o.SubmitReview(6, "too good", testTime)
	require.ErrorAs(t, err, &vErr)

	require.NoError(t, o.SubmitReview(4, "crispy crust", testTime))
	require.NotNil(t, o.Rating)
	assert.Equal(t, 4, o.Rating.Score)

	err = o.SubmitReview(5, "even better", testTime)
	require.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.Equal(t, 4, o.Rating.Score)
}

func TestPaymentLifecycle(t *testing.T) {
	o := newTestOrder()

	require.NoError(t, o.CompletePayment("pay_123"))
	assert.Equal(t, PaymentCompleted, o.Payment.Status)
	assert.Equal(t, "pay_123", o.Payment.ExternalPaymentID)

	err := o.CompletePayment("pay_456")
	var pErr *InvalidPaymentStateError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "pay_123", o.Payment.ExternalPaymentID)

	require.ErrorAs(t, o.FailPayment(), &pErr)
}

func TestFailPayment(t *testing.T) {
	o := newTestOrder()

	require.NoError(t, o.FailPayment())
	assert.Equal(t, PaymentFailed, o.Payment.Status)
	assert.Equal(t, StatusPlaced, o.Status)
}

func TestNewTrackingInfo_Redaction(t *testing.T) {
	o := newTestOrder()
	require.NoError(t, o.Transition(StatusConfirmed, "staff-7", "payment verified", testTime.Add(time.Minute)))

	info := NewTrackingInfo(o)

	assert.Equal(t, o.Number, info.OrderNumber)
	assert.Equal(t, StatusConfirmed, info.CurrentStatus)
	assert.Equal(t, 29, info.Progress)
	assert.True(t, info.IsInProgress)
	assert.Equal(t, o.EstimatedDeliveryAt, info.EstimatedDelivery)
	require.Len(t, info.StatusHistory, 2)
	assert.Equal(t, "payment verified", info.StatusHistory[1].Notes)
	assert.Equal(t, TrackingSummary{Base: "Thin Crust", Size: SizeMedium, Quantity: 1}, info.OrderSummary)
}
