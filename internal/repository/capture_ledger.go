package repository

import (
	"context"
	"time"
)

// CaptureLedger defines the interface for deduplication and retry accounting
// of captured cities.
type CaptureLedger interface {
	// MarkCaptured marks a city as captured with a specific expiry time.
	MarkCaptured(ctx context.Context, cityID string, expiry time.Duration) error
	// IsCaptured checks whether a city has been captured recently.
	IsCaptured(ctx context.Context, cityID string) (bool, error)
	// Remove drops a city from the captured set, used for forced re-capture.
	Remove(ctx context.Context, cityID string) error
	// IncrementRetry increments the failed-capture counter for a city.
	IncrementRetry(ctx context.Context, cityID string) (int64, error)
	// ClearRetry resets the failed-capture counter after a success.
	ClearRetry(ctx context.Context, cityID string) error
}
