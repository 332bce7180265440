package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/empjr/jrpoints/internal/models"
)

func CreateRuleVersion(ctx context.Context, database *sql.DB, v models.RuleVersion) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO rule_versions (name, description, implementation_date, end_date, is_active)
VALUES ($1, $2, $3, $4, FALSE)
RETURNING id`, v.Name, v.Description, v.ImplementationDate, v.EndDate).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ActivateRuleVersion — как и у периодов: единственная активная версия,
// переключение одной транзакцией.
func ActivateRuleVersion(ctx context.Context, database *sql.DB, id int64) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE rule_versions SET is_active = FALSE WHERE is_active`); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE rule_versions SET is_active = TRUE WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return fmt.Errorf("версия правил %d не найдена", id)
		}
		return nil
	})
}

func GetRuleVersionByID(ctx context.Context, q Querier, id int64) (*models.RuleVersion, error) {
	row := q.QueryRowContext(ctx, `
SELECT id, name, description, implementation_date, end_date, is_active
FROM rule_versions WHERE id = $1`, id)
	var v models.RuleVersion
	if err := row.Scan(&v.ID, &v.Name, &v.Description, &v.ImplementationDate, &v.EndDate, &v.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func GetActiveRuleVersion(ctx context.Context, q Querier) (*models.RuleVersion, error) {
	row := q.QueryRowContext(ctx, `
SELECT id, name, description, implementation_date, end_date, is_active
FROM rule_versions WHERE is_active LIMIT 1`)
	var v models.RuleVersion
	if err := row.Scan(&v.ID, &v.Name, &v.Description, &v.ImplementationDate, &v.EndDate, &v.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func ListRuleVersions(ctx context.Context, database *sql.DB) ([]models.RuleVersion, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, name, description, implementation_date, end_date, is_active
FROM rule_versions ORDER BY implementation_date`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.RuleVersion
	for rows.Next() {
		var v models.RuleVersion
		if err := rows.Scan(&v.ID, &v.Name, &v.Description, &v.ImplementationDate, &v.EndDate, &v.IsActive); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteRuleVersion — одной транзакцией: откатить из агрегатов записи
// активного периода, начисленные по этой версии, затем удалить версию;
// её правила и ссылающиеся заявки/апелляции уходят каскадом на уровне
// схемы, без отката частичного состояния наружу.
func DeleteRuleVersion(ctx context.Context, database *sql.DB, id int64) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		if err := reverseLiveEntriesTx(ctx, tx, "e.rule_version_id", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM rule_versions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return fmt.Errorf("версия правил %d не найдена", id)
		}
		return nil
	})
}
