package repository

import (
	"context"

	"github.com/user/metroverse-pipeline/internal/entity"
)

// CaptureStore defines the interface for persisting and reading per-city
// capture files.
type CaptureStore interface {
	// Save writes a capture file, superseding any previous capture for the
	// same city, and returns the path written.
	Save(ctx context.Context, capture *entity.CaptureFile) (string, error)
	// Load reads one capture file from a path.
	Load(ctx context.Context, path string) (*entity.CaptureFile, error)
	// Path returns the stable path a city's capture is stored at.
	Path(cityID string) string
	// List returns the paths of every capture file in the store.
	List(ctx context.Context) ([]string, error)
	// Exists reports whether a capture exists for a city.
	Exists(ctx context.Context, cityID string) (bool, error)
}
