package storage

import (
	"context"
	"errors"
	"time"

	"kosoku-tracker/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Repository is the persistence surface the tracker coordinates through.
// Implementations must be safe for concurrent use: each subscription worker
// reads and writes only its own tracking-state row.
type Repository interface {
	// ActiveSubscriptions returns every enabled subscription.
	ActiveSubscriptions(ctx context.Context) ([]*models.Subscription, error)

	// TrackingState returns the subscription's change-detection baseline,
	// or ErrNotFound before the first persisted cycle.
	TrackingState(ctx context.Context, subscriptionID int64) (*models.TrackingState, error)

	// SaveTrackingState upserts the full baseline after a cycle.
	SaveTrackingState(ctx context.Context, state *models.TrackingState) error

	// RecordCheck bumps the check counter and timestamp without touching the
	// stored fingerprint; used when a cycle found no seats at all.
	RecordCheck(ctx context.Context, subscriptionID int64, at time.Time) error

	// StationName resolves a station id to its display name, or ErrNotFound.
	StationName(ctx context.Context, stationID string) (string, error)

	Close() error
}
