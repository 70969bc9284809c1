// Package optimistic provides helpers for optimistic (compare-and-set)
// concurrency control over versioned records.
package optimistic

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrConflict is returned by a versioned save when the stored version no
	// longer matches the expected one. Callers should re-read and retry.
	ErrConflict = errors.New("version conflict")
	// ErrConcurrentModification is returned when an operation still conflicts
	// after exhausting its retry budget.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Retry runs fn up to attempts times, retrying only on ErrConflict. Any other
// error (or success) is returned as-is. When every attempt conflicts, it
// returns ErrConcurrentModification.
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	for range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return ErrConcurrentModification
}
