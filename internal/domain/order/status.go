package order

import "math"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPlaced         Status = "placed"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusBaking         Status = "baking"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// forwardSequence is the canonical happy-path progression. Cancelled sits
// outside the sequence as an alternate terminal branch.
var forwardSequence = []Status{
	StatusPlaced,
	StatusConfirmed,
	StatusPreparing,
	StatusBaking,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
}

// cancellableFrom lists the only statuses an order may be cancelled from.
// Once the kitchen starts preparing, cancellation requires support staff
// and is not available through the API.
var cancellableFrom = map[Status]bool{
	StatusPlaced:    true,
	StatusConfirmed: true,
}

// Valid reports whether s is a member of the status enum.
func (s Status) Valid() bool {
	return s == StatusCancelled || s.rank() >= 0
}

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s Status) Cancellable() bool {
	return cancellableFrom[s]
}

// rank returns the position of s in the forward sequence, or -1 when s is
// cancelled or unknown.
func (s Status) rank() int {
	for i, st := range forwardSequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Progress converts s into a completion percentage over the seven-step
// forward sequence. Cancelled and unknown statuses report 0.
func (s Status) Progress() int {
	idx := s.rank()
	if idx < 0 {
		return 0
	}
	return int(math.Round(float64(idx+1) / float64(len(forwardSequence)) * 100))
}
