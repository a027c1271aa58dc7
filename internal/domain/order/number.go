package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// ErrNumberExhausted is returned when the generator cannot find a free
// order number within its retry budget. In practice this only happens when
// the repository check keeps failing.
var ErrNumberExhausted = errors.New("could not generate a unique order number")

const numberAttempts = 10

// NumberGenerator produces human-facing tracking codes of the form
// PZ<epoch-millis><3 random digits>. The millisecond timestamp plus a
// three-digit suffix leaves a realistic collision window under concurrent
// load, so every candidate is verified against the repository before being
// handed out. A bloom filter of numbers seen by this process screens out
// locally known duplicates without a round trip; a bloom hit only forces a
// regeneration, never a false acceptance.
type NumberGenerator struct {
	orders Repository
	now    func() time.Time

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// NewNumberGenerator creates a generator backed by the given repository.
func NewNumberGenerator(orders Repository) *NumberGenerator {
	return &NumberGenerator{
		orders: orders,
		now:    time.Now,
		// Sized for ~1M numbers per process lifetime at 1% false positives.
		seen: bloom.NewWithEstimates(1_000_000, 0.01),
	}
}

// Next returns a tracking code that does not collide with any existing
// order number, retrying generation on collision.
func (g *NumberGenerator) Next(ctx context.Context) (string, error) {
	for range numberAttempts {
		candidate := fmt.Sprintf("PZ%d%03d", g.now().UnixMilli(), rand.IntN(1000))

		g.mu.Lock()
		dup := g.seen.TestString(candidate)
		g.mu.Unlock()
		if dup {
			continue
		}

		exists, err := g.orders.NumberExists(ctx, candidate)
		if err != nil {
			return "", errors.Wrap(err, "check order number")
		}
		g.mu.Lock()
		g.seen.AddString(candidate)
		g.mu.Unlock()
		if exists {
			continue
		}
		return candidate, nil
	}
	return "", ErrNumberExhausted
}
