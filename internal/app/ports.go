// Package app defines the application layer "ports" (interfaces) and the
// use-case service for the tracerd core. It follows a hexagonal (ports &
// adapters) design: this package declares what the core needs, while adapter
// packages (bucketed file storage, HTTP layer, janitor) provide concrete
// implementations. No I/O, logging, or network concerns belong here.
package app

import (
	"context"
	"time"

	"github.com/covtrace/tracerd/internal/domain"
)

// Clock abstracts time to enable deterministic testing of bucket-window logic.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// CodeStore is the storage port for submitted contact codes. Implementations
// must provide durability for Add and the within-process ordering guarantee:
// an Add observed as accepted is visible to every subsequent FetchSince,
// Active, or Add on any goroutine.
type CodeStore interface {
	// Add persists code in the current hour bucket. It returns false without
	// writing when the code was already submitted within the recency horizon
	// (silent de-duplication, not an error).
	Add(ctx context.Context, code domain.ContactCode) (bool, error)

	// FetchSince returns the union of all codes in buckets from ts up to the
	// current bucket. A future ts yields an empty result; a span beyond the
	// protocol maximum fails with ErrRangeTooLarge.
	FetchSince(ctx context.Context, ts time.Time) ([]domain.ContactCode, error)

	// Active returns the codes eligible for match expansion: the union of
	// all buckets within the recency horizon, current bucket included.
	Active(ctx context.Context) ([]domain.ContactCode, error)
}
