package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/empjr/jrpoints/internal/models"
)

const entryColumns = `id, description, value, performed_on, rule_id, category, assigner_id, subject_kind, member_id, period_score_id, rule_version_id, is_from_appeal, created_at`

func scanEntry(row interface{ Scan(...any) error }) (models.Entry, error) {
	var (
		e        models.Entry
		kind     string
		memberID *int64
	)
	err := row.Scan(&e.ID, &e.Description, &e.Value, &e.PerformedOn, &e.RuleID, &e.Category,
		&e.AssignerID, &kind, &memberID, &e.PeriodScoreID, &e.RuleVersionID, &e.IsFromAppeal, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.Subject, err = models.SubjectFromRow(kind, memberID)
	return e, err
}

// upsertPeriodScoreTx создаёт строку счёта субъекта за период при первом
// начислении и прибавляет delta; возвращает id строки.
func upsertPeriodScoreTx(ctx context.Context, tx *sql.Tx, subject models.Subject, periodID, delta int64) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
INSERT INTO period_scores (subject_kind, member_id, period_id, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT period_scores_subject_uniq
DO UPDATE SET value = period_scores.value + EXCLUDED.value
RETURNING id`, subject.Kind, subject.MemberIDPtr(), periodID, delta).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert period score %s: %w", subject, err)
	}
	return id, nil
}

func bumpRunningTotalTx(ctx context.Context, tx *sql.Tx, subject models.Subject, delta int64) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO running_totals (subject_kind, member_id, value)
VALUES ($1, $2, $3)
ON CONFLICT ON CONSTRAINT running_totals_subject_uniq
DO UPDATE SET value = running_totals.value + EXCLUDED.value`,
		subject.Kind, subject.MemberIDPtr(), delta)
	if err != nil {
		return fmt.Errorf("bump running total %s: %w", subject, err)
	}
	return nil
}

// bumpAggregatesTx двигает обе кэшированные суммы субъекта на delta: бегущий
// итог и уже существующую строку счёта за период.
func bumpAggregatesTx(ctx context.Context, tx *sql.Tx, subject models.Subject, periodScoreID, delta int64) error {
	if err := bumpRunningTotalTx(ctx, tx, subject, delta); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE period_scores SET value = value + $1 WHERE id = $2`, delta, periodScoreID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return fmt.Errorf("period score %d: %w", periodScoreID, ErrAggregateMissing)
	}
	return nil
}

// RecordEntry — единственный путь появления записи в леджере. Три записи
// (счёт периода, бегущий итог, сама запись) уходят одной транзакцией.
func RecordEntry(ctx context.Context, database *sql.DB, e models.Entry, periodID int64) (models.Entry, error) {
	err := InTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		if e, err = RecordEntryTx(ctx, tx, e, periodID); err != nil {
			return err
		}
		return nil
	})
	return e, err
}

func RecordEntryTx(ctx context.Context, tx *sql.Tx, e models.Entry, periodID int64) (models.Entry, error) {
	psID, err := upsertPeriodScoreTx(ctx, tx, e.Subject, periodID, int64(e.Value))
	if err != nil {
		return e, err
	}
	if err := bumpRunningTotalTx(ctx, tx, e.Subject, int64(e.Value)); err != nil {
		return e, err
	}
	e.PeriodScoreID = psID
	err = tx.QueryRowContext(ctx, `
INSERT INTO entries (description, value, performed_on, rule_id, category, assigner_id, subject_kind, member_id, period_score_id, rule_version_id, is_from_appeal)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at`,
		e.Description, e.Value, e.PerformedOn, e.RuleID, e.Category, e.AssignerID,
		e.Subject.Kind, e.Subject.MemberIDPtr(), psID, e.RuleVersionID, e.IsFromAppeal).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return e, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

// ReverseEntry откатывает запись из обоих агрегатов и удаляет её саму.
func ReverseEntry(ctx context.Context, database *sql.DB, entryID int64) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		e, err := getEntryForUpdateTx(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if err := bumpAggregatesTx(ctx, tx, e.Subject, e.PeriodScoreID, -int64(e.Value)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, e.ID)
		return err
	})
}

// reverseLiveEntriesTx откатывает и удаляет записи активного периода,
// отобранные по условию col = id: каждая снимается с обоих агрегатов.
// Записи закрытых периодов не трогаем: их вклад ушёл из бегущих итогов
// при перекате, а счета периода заморожены.
func reverseLiveEntriesTx(ctx context.Context, tx *sql.Tx, col string, id int64) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
SELECT e.id, e.value, e.subject_kind, e.member_id, e.period_score_id
FROM entries e
JOIN period_scores ps ON ps.id = e.period_score_id
JOIN periods p ON p.id = ps.period_id
WHERE %s = $1 AND p.is_active
ORDER BY e.id
FOR UPDATE OF e`, col), id)
	if err != nil {
		return err
	}
	type entryRef struct {
		id            int64
		value         int
		subject       models.Subject
		periodScoreID int64
	}
	var refs []entryRef
	for rows.Next() {
		var (
			e        entryRef
			kind     string
			memberID *int64
		)
		if err := rows.Scan(&e.id, &e.value, &kind, &memberID, &e.periodScoreID); err != nil {
			_ = rows.Close()
			return err
		}
		if e.subject, err = models.SubjectFromRow(kind, memberID); err != nil {
			_ = rows.Close()
			return err
		}
		refs = append(refs, e)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range refs {
		if err := bumpAggregatesTx(ctx, tx, e.subject, e.periodScoreID, -int64(e.value)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, e.id); err != nil {
			return err
		}
	}
	return nil
}

func getEntryForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (models.Entry, error) {
	e, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("запись %d не найдена", id)
	}
	return e, err
}

func GetEntryByID(ctx context.Context, q Querier, id int64) (*models.Entry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// GetLastEntryForSubjectRule — самая свежая запись пары (субъект, правило):
// от неё калькулятор серий считает эскалацию.
func GetLastEntryForSubjectRule(ctx context.Context, q Querier, subject models.Subject, ruleID int64) (*models.Entry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, `
SELECT `+entryColumns+` FROM entries
WHERE subject_kind = $1 AND member_id IS NOT DISTINCT FROM $2 AND rule_id = $3
ORDER BY performed_on DESC, id DESC
LIMIT 1`, subject.Kind, subject.MemberIDPtr(), ruleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func ListEntriesBySubject(ctx context.Context, database *sql.DB, subject models.Subject) ([]models.Entry, error) {
	rows, err := database.QueryContext(ctx, `
SELECT `+entryColumns+` FROM entries
WHERE subject_kind = $1 AND member_id IS NOT DISTINCT FROM $2
ORDER BY performed_on DESC, id DESC`, subject.Kind, subject.MemberIDPtr())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
