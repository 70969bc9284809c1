package coupon

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/pkg/optimistic"
)

// consumeAttempts bounds the CAS retry loop of a single Consume call.
const consumeAttempts = 3

// Consumer records coupon usage at the moment a request is irrevocably
// committed (payment confirmed, or a cash request approved). The counter is
// never decremented.
type Consumer interface {
	Consume(ctx context.Context, code string) error
}

// StoreConsumer implements Consumer with guarded compare-and-set writes
// against a Repository.
type StoreConsumer struct {
	repo Repository
}

// NewStoreConsumer creates a StoreConsumer backed by the given Repository.
func NewStoreConsumer(repo Repository) *StoreConsumer {
	return &StoreConsumer{repo: repo}
}

// Consume increments the coupon's usage counter exactly once. The limit is
// re-checked inside the compare-and-set loop so concurrent commits cannot
// push UsedCount past UsageLimit: a loser of the race re-reads the fresh
// counter and either retries or fails ErrExhausted. After the retry budget
// it returns optimistic.ErrConcurrentModification.
func (c *StoreConsumer) Consume(ctx context.Context, code string) error {
	return optimistic.Retry(ctx, consumeAttempts, func(ctx context.Context) error {
		cpn, err := c.repo.GetByCode(ctx, code)
		if err != nil {
			return errors.Wrap(err, "lookup coupon")
		}
		if cpn.UsedCount >= cpn.UsageLimit {
			return ErrExhausted
		}

		cpn.UsedCount++
		return c.repo.SaveWithVersion(ctx, cpn, cpn.Version)
	})
}
