package repository

import (
	"context"

	"github.com/user/metroverse-pipeline/internal/entity"
)

// CaptureDriver defines the contract for the browser-based capture mechanism.
type CaptureDriver interface {
	// Capture loads a city page and returns everything gathered during the
	// visit: intercepted JSON responses and page-embedded state.
	Capture(ctx context.Context, cityID string) (*entity.CaptureFile, error)
}
