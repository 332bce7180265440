package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/empjr/jrpoints/internal/models"
)

func CreatePeriod(ctx context.Context, database *sql.DB, p models.Period) (int64, error) {
	if p.StartDate.After(p.EndDate) {
		return 0, errors.New("дата окончания не может быть раньше даты начала")
	}
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO periods (name, start_date, end_date, is_active)
VALUES ($1, $2, $3, FALSE)
RETURNING id`, p.Name, p.StartDate, p.EndDate).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ActivatePeriod атомарно снимает активность со всех периодов и ставит её
// на указанный; два «активных» одновременно появиться не могут.
func ActivatePeriod(ctx context.Context, database *sql.DB, id int64) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE periods SET is_active = FALSE WHERE is_active`); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE periods SET is_active = TRUE WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return fmt.Errorf("период %d не найден", id)
		}
		return nil
	})
}

func GetActivePeriod(ctx context.Context, q Querier) (*models.Period, error) {
	row := q.QueryRowContext(ctx, `SELECT id, name, start_date, end_date, is_active FROM periods WHERE is_active LIMIT 1`)
	var p models.Period
	if err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func GetPeriodByID(ctx context.Context, q Querier, id int64) (*models.Period, error) {
	row := q.QueryRowContext(ctx, `SELECT id, name, start_date, end_date, is_active FROM periods WHERE id = $1`, id)
	var p models.Period
	if err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func ListPeriods(ctx context.Context, database *sql.DB) ([]models.Period, error) {
	rows, err := database.QueryContext(ctx, `SELECT id, name, start_date, end_date, is_active FROM periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []models.Period
	for rows.Next() {
		var p models.Period
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.IsActive); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DeletePeriod — одной транзакцией: если период ещё активен, снять его
// записи с бегущих итогов, затем удалить период; счета и снапшоты уходят
// каскадом. У закрытого периода откатывать нечего: его вклад уже обнулён
// перекатом.
func DeletePeriod(ctx context.Context, database *sql.DB, id int64) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		if err := reverseLiveEntriesTx(ctx, tx, "ps.period_id", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM periods WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return fmt.Errorf("период %d не найден", id)
		}
		return nil
	})
}
