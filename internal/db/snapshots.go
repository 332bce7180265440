package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/empjr/jrpoints/internal/models"
)

// SnapshotPeriod замораживает текущие бегущие итоги в счета указанного
// периода и обнуляет итоги. Всё — одной транзакцией: частичного переката
// (кто-то обнулён, кто-то нет) снаружи видно быть не должно.
// Снапшот write-once: если по организации он уже снят — ErrSnapshotExists.
func SnapshotPeriod(ctx context.Context, database *sql.DB, periodID int64) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx, `
SELECT EXISTS(
    SELECT 1 FROM period_scores
    WHERE period_id = $1 AND subject_kind = $2
)`, periodID, models.SubjectOrg).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrSnapshotExists
		}

		rows, err := tx.QueryContext(ctx, `
SELECT id, subject_kind, member_id, value FROM running_totals ORDER BY id FOR UPDATE`)
		if err != nil {
			return err
		}
		totals, err := collectTotals(rows)
		_ = rows.Close()
		if err != nil {
			return err
		}

		for _, t := range totals {
			_, err := tx.ExecContext(ctx, `
INSERT INTO period_scores (subject_kind, member_id, period_id, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT period_scores_subject_uniq
DO UPDATE SET value = EXCLUDED.value`,
				t.Subject.Kind, t.Subject.MemberIDPtr(), periodID, t.Value)
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", t.Subject, err)
			}
		}
		// Организация получает строку даже при нулевом итоге: её наличие —
		// маркер «за период уже перекатывались».
		if !hasOrg(totals) {
			_, err := tx.ExecContext(ctx, `
INSERT INTO period_scores (subject_kind, member_id, period_id, value)
VALUES ($1, NULL, $2, 0)
ON CONFLICT ON CONSTRAINT period_scores_subject_uniq
DO UPDATE SET value = EXCLUDED.value`, models.SubjectOrg, periodID)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE running_totals SET value = 0`)
		return err
	})
}

func hasOrg(totals []models.RunningTotal) bool {
	for _, t := range totals {
		if t.Subject.IsOrg() {
			return true
		}
	}
	return false
}

// DeletePeriodSnapshots убирает все счета, привязанные к периоду.
// Обнулённые перекатом бегущие итоги назад не восстанавливаются.
func DeletePeriodSnapshots(ctx context.Context, database *sql.DB, periodID int64) (int64, error) {
	res, err := database.ExecContext(ctx, `DELETE FROM period_scores WHERE period_id = $1`, periodID)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
