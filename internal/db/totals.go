package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/empjr/jrpoints/internal/models"
)

// GetRunningTotal возвращает бегущий итог субъекта; отсутствие строки — ноль
// (строка заводится лениво первым начислением).
func GetRunningTotal(ctx context.Context, q Querier, subject models.Subject) (int64, error) {
	var v int64
	err := q.QueryRowContext(ctx, `
SELECT value FROM running_totals
WHERE subject_kind = $1 AND member_id IS NOT DISTINCT FROM $2`,
		subject.Kind, subject.MemberIDPtr()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

func ListRunningTotals(ctx context.Context, database *sql.DB) ([]models.RunningTotal, error) {
	rows, err := database.QueryContext(ctx, `SELECT id, subject_kind, member_id, value FROM running_totals ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectTotals(rows)
}

func collectTotals(rows *sql.Rows) ([]models.RunningTotal, error) {
	var out []models.RunningTotal
	for rows.Next() {
		var (
			t        models.RunningTotal
			kind     string
			memberID *int64
		)
		if err := rows.Scan(&t.ID, &kind, &memberID, &t.Value); err != nil {
			return nil, err
		}
		var err error
		if t.Subject, err = models.SubjectFromRow(kind, memberID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func GetPeriodScore(ctx context.Context, q Querier, subject models.Subject, periodID int64) (int64, error) {
	var v int64
	err := q.QueryRowContext(ctx, `
SELECT value FROM period_scores
WHERE subject_kind = $1 AND member_id IS NOT DISTINCT FROM $2 AND period_id = $3`,
		subject.Kind, subject.MemberIDPtr(), periodID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

func ListPeriodScores(ctx context.Context, database *sql.DB, periodID int64) ([]models.PeriodScore, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, subject_kind, member_id, period_id, value
FROM period_scores WHERE period_id = $1
ORDER BY value DESC, id`, periodID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.PeriodScore
	for rows.Next() {
		var (
			s        models.PeriodScore
			kind     string
			memberID *int64
		)
		if err := rows.Scan(&s.ID, &kind, &memberID, &s.PeriodID, &s.Value); err != nil {
			return nil, err
		}
		if s.Subject, err = models.SubjectFromRow(kind, memberID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AggregateDrift — проверочный пересчёт: расхождение кэшированных бегущих
// итогов с суммой записей активного периода. В норме пусто.
type AggregateDrift struct {
	Subject  models.Subject
	Cached   int64
	Computed int64
}

func FindAggregateDrift(ctx context.Context, database *sql.DB, periodID int64) ([]AggregateDrift, error) {
	rows, err := database.QueryContext(ctx, `
SELECT rt.subject_kind, rt.member_id, rt.value, COALESCE(sums.total, 0)
FROM running_totals rt
LEFT JOIN (
    SELECT e.subject_kind, e.member_id, SUM(e.value) AS total
    FROM entries e
    JOIN period_scores ps ON ps.id = e.period_score_id
    WHERE ps.period_id = $1
    GROUP BY e.subject_kind, e.member_id
) sums ON sums.subject_kind = rt.subject_kind AND sums.member_id IS NOT DISTINCT FROM rt.member_id
WHERE rt.value <> COALESCE(sums.total, 0)`, periodID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []AggregateDrift
	for rows.Next() {
		var (
			d        AggregateDrift
			kind     string
			memberID *int64
		)
		if err := rows.Scan(&kind, &memberID, &d.Cached, &d.Computed); err != nil {
			return nil, err
		}
		if d.Subject, err = models.SubjectFromRow(kind, memberID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
