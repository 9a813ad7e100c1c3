package usage

import (
	"context"

	"github.com/matlukowski/readTube-sub000/internal/models"
)

// Store persists per-caller ledgers. Increments must be atomic so concurrent
// commits for one caller never lose an update.
type Store interface {
	// Get returns the ledger; found is false when the caller has no row yet
	Get(ctx context.Context, callerID string) (ledger *models.UsageLedger, found bool, err error)

	// AddUsed atomically adds minutes to minutes_used, creating the row with
	// defaultGranted minutes when missing
	AddUsed(ctx context.Context, callerID string, minutes, defaultGranted int64) error

	// AddGranted atomically adds minutes to minutes_granted, creating the row
	// with defaultGranted minutes when missing
	AddGranted(ctx context.Context, callerID string, minutes, defaultGranted int64) error
}

// Guard is what the acquisition flow needs from the ledger
type Guard interface {
	CheckQuota(ctx context.Context, callerID string, requiredMinutes int64) (*Decision, error)
	Commit(ctx context.Context, callerID string, minutes int64) error
}
