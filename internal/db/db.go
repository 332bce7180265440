package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Querier — общий срез *sql.DB и *sql.Tx, чтобы читающие функции работали
// и внутри транзакции, и вне её.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// int64Array — значение для ANY($1); pq.Array как driver.Valuer работает
// и под lib/pq в тестах, и под pgx-драйвером в проде.
func int64Array(ids []int64) any { return pq.Array(ids) }

// InTx выполняет fn в одной транзакции; при ошибке — откат.
func InTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
