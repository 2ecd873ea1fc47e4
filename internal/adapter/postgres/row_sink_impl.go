package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/metroverse-pipeline/internal/entity"
	"github.com/user/metroverse-pipeline/pkg/utils"
)

// RowSinkImpl provides a concrete implementation of the RowSink interface
// using PostgreSQL. It mirrors the `normalized_rows` table schema.
type RowSinkImpl struct {
	db *pgxpool.Pool
}

// NewRowSink creates a new instance of RowSinkImpl.
func NewRowSink(db *pgxpool.Pool) *RowSinkImpl {
	return &RowSinkImpl{db: db}
}

// SaveRows stores a batch of normalized rows. Rows sharing a city, kind and
// record key are upserted; rows without a natural key get a payload hash as
// their record key, so identical duplicates collapse and distinct rows stay.
func (r *RowSinkImpl) SaveRows(ctx context.Context, rows []*entity.NormalizedRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO normalized_rows (city_id, table_kind, record_key, payload, processed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (city_id, table_kind, record_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			processed_at = EXCLUDED.processed_at;
	`

	now := time.Now()
	batch := &pgx.Batch{}
	for _, row := range rows {
		payload, err := json.Marshal(row.Values)
		if err != nil {
			return err
		}
		key, ok := row.NaturalKey()
		if !ok {
			key = "hash:" + utils.HashKey(string(payload))
		}
		batch.Queue(query, row.CityID, string(row.Kind), key, payload, now)
	}

	return r.db.SendBatch(ctx, batch).Close()
}
