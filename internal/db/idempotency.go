package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// ClaimIdempotencyKey резервирует клиентский ключ за операцией; повтор того
// же ключа — ErrDuplicateIdempotencyKey, чтобы ретраи не дублировали записи.
func ClaimIdempotencyKey(ctx context.Context, database *sql.DB, key uuid.UUID, op string) error {
	res, err := database.ExecContext(ctx, `
INSERT INTO idempotency_keys (key, op) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`, key, op)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrDuplicateIdempotencyKey
	}
	return nil
}
