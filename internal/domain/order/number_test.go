package order

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var numberPattern = regexp.MustCompile(`^PZ\d{13}\d{3}$`)

func newTestNumberGenerator(repo *mockOrderRepo) *NumberGenerator {
	g := NewNumberGenerator(repo)
	g.now = func() time.Time { return testTime }
	return g
}

func TestNumberGenerator_Format(t *testing.T) {
	g := newTestNumberGenerator(newMockOrderRepo())

	number, err := g.Next(context.Background())

	require.NoError(t, err)
	assert.Regexp(t, numberPattern, number)
	assert.Contains(t, number, "PZ1741953600000") // millis of the frozen clock
}

func TestNumberGenerator_RetriesOnCollision(t *testing.T) {
	repo := newMockOrderRepo()
	repo.existsQueue = []bool{true, true, false}
	g := newTestNumberGenerator(repo)

	number, err := g.Next(context.Background())

	require.NoError(t, err)
	assert.Regexp(t, numberPattern, number)
	assert.Equal(t, 3, repo.existsCalls)
}

func TestNumberGenerator_SkipsLocallySeen(t *testing.T) {
	repo := newMockOrderRepo()
	g := newTestNumberGenerator(repo)

	first, err := g.Next(context.Background())
	require.NoError(t, err)

	// Every number handed out is remembered, so a second call never
	// re-checks the first one against the repository.
	second, err := g.Next(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestNumberGenerator_RepositoryError(t *testing.T) {
	repo := newMockOrderRepo()
	repo.existsErr = errors.New("db down")
	g := newTestNumberGenerator(repo)

	_, err := g.Next(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "check order number")
}

func TestNumberGenerator_Exhaustion(t *testing.T) {
	repo := newMockOrderRepo()
	repo.existsQueue = []bool{true, true, true, true, true, true, true, true, true, true}
	g := newTestNumberGenerator(repo)

	_, err := g.Next(context.Background())

	require.ErrorIs(t, err, ErrNumberExhausted)
	assert.LessOrEqual(t, repo.existsCalls, numberAttempts)
}
