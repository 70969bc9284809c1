package coupon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/catalog"
	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/optimistic"
)

// casCouponRepo is an in-memory Repository with real compare-and-set
// semantics, safe for concurrent use.
type casCouponRepo struct {
	mu     sync.Mutex
	coupon Coupon
}

func (r *casCouponRepo) GetByCode(_ context.Context, code string) (*Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coupon.Code != code {
		return nil, ErrNotFound
	}
	cp := r.coupon
	return &cp, nil
}

func (r *casCouponRepo) SaveWithVersion(_ context.Context, c *Coupon, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coupon.Version != expectedVersion {
		return optimistic.ErrConflict
	}
	r.coupon = *c
	r.coupon.Version = expectedVersion + 1
	c.Version = r.coupon.Version
	return nil
}

func newCASRepo(limit, used int) *casCouponRepo {
	return &casCouponRepo{coupon: Coupon{
		Code:         "RACE",
		DiscountType: DiscountFixed,
		Value:        decimal.NewFromInt(50),
		UsageLimit:   limit,
		UsedCount:    used,
		Categories:   []catalog.Category{catalog.CategoryAll},
		ExpiresAt:    time.Now().Add(time.Hour),
		Version:      1,
	}}
}

func TestStoreConsumer_Consume(t *testing.T) {
	repo := newCASRepo(3, 0)
	consumer := NewStoreConsumer(repo)

	require.NoError(t, consumer.Consume(context.Background(), "RACE"))
	require.NoError(t, consumer.Consume(context.Background(), "RACE"))
	require.NoError(t, consumer.Consume(context.Background(), "RACE"))

	err := consumer.Consume(context.Background(), "RACE")
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, repo.coupon.UsedCount)
}

func TestStoreConsumer_ConsumeUnknownCode(t *testing.T) {
	consumer := NewStoreConsumer(newCASRepo(1, 0))

	err := consumer.Consume(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreConsumer_ConcurrentConsumeNeverOversells(t *testing.T) {
	const (
		limit   = 10
		callers = 50
	)
	repo := newCASRepo(limit, 0)
	consumer := NewStoreConsumer(repo)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Consume(context.Background(), "RACE"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, repo.coupon.UsedCount, limit,
		"usage counter must never pass the limit")
	assert.Equal(t, repo.coupon.UsedCount, succeeded,
		"every successful Consume must account for exactly one use")
}

// conflictingRepo always rejects the save so the retry budget runs out.
type conflictingRepo struct {
	*casCouponRepo
	saves int
}

func (r *conflictingRepo) SaveWithVersion(_ context.Context, _ *Coupon, _ int64) error {
	r.saves++
	return optimistic.ErrConflict
}

func TestStoreConsumer_RetryBudgetExhausted(t *testing.T) {
	repo := &conflictingRepo{casCouponRepo: newCASRepo(5, 0)}
	consumer := NewStoreConsumer(repo)

	err := consumer.Consume(context.Background(), "RACE")

	require.ErrorIs(t, err, optimistic.ErrConcurrentModification)
	assert.Equal(t, consumeAttempts, repo.saves)
}
