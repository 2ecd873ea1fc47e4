package repository

import (
	"context"

	"github.com/user/metroverse-pipeline/internal/entity"
)

// RowSink defines an optional secondary destination for normalized rows,
// alongside the primary CSV output.
type RowSink interface {
	// SaveRows stores a batch of normalized rows. Rows sharing a city, kind
	// and natural key replace earlier versions.
	SaveRows(ctx context.Context, rows []*entity.NormalizedRow) error
}
