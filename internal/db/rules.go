package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/empjr/jrpoints/internal/models"
)

const ruleColumns = `id, name, description, base_value, category, is_scalable, escalation_value, escalation_window_days, rule_version_id`

func scanRule(row interface{ Scan(...any) error }) (models.Rule, error) {
	var r models.Rule
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.BaseValue, &r.Category,
		&r.IsScalable, &r.EscalationValue, &r.EscalationWindowDays, &r.RuleVersionID)
	return r, err
}

func CreateRule(ctx context.Context, database *sql.DB, r models.Rule) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO rules (name, description, base_value, category, is_scalable, escalation_value, escalation_window_days, rule_version_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		r.Name, r.Description, r.BaseValue, r.Category, r.IsScalable,
		r.EscalationValue, r.EscalationWindowDays, r.RuleVersionID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func GetRuleByID(ctx context.Context, q Querier, id int64) (*models.Rule, error) {
	r, err := scanRule(q.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func GetRulesByIDs(ctx context.Context, q Querier, ids []int64) ([]models.Rule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ANY($1) ORDER BY id`, int64Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func ListRules(ctx context.Context, database *sql.DB, ruleVersionID int64) ([]models.Rule, error) {
	rows, err := database.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE rule_version_id = $1 ORDER BY id`, ruleVersionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRule правит текстовые и числовые поля шаблона. Описание существующих
// записей подтягиваем следом только там, где оно всё ещё дословно совпадает со
// старым описанием правила: правленные вручную записи не трогаем.
func UpdateRule(ctx context.Context, database *sql.DB, r models.Rule) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		var oldDescription string
		err := tx.QueryRowContext(ctx, `SELECT description FROM rules WHERE id = $1 FOR UPDATE`, r.ID).Scan(&oldDescription)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("правило %d не найдено", r.ID)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
UPDATE rules SET name = $1, description = $2, base_value = $3, category = $4,
       is_scalable = $5, escalation_value = $6, escalation_window_days = $7
WHERE id = $8`,
			r.Name, r.Description, r.BaseValue, r.Category,
			r.IsScalable, r.EscalationValue, r.EscalationWindowDays, r.ID)
		if err != nil {
			return err
		}
		if r.Description != oldDescription {
			_, err = tx.ExecContext(ctx, `
UPDATE entries SET description = $1 WHERE rule_id = $2 AND description = $3`,
				r.Description, r.ID, oldDescription)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRule — одной транзакцией: откатить из агрегатов записи активного
// периода, созданные правилом, затем удалить само правило. У записей
// закрытых периодов rule_id обнуляется схемой, история остаётся.
func DeleteRule(ctx context.Context, database *sql.DB, id int64) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		if err := reverseLiveEntriesTx(ctx, tx, "e.rule_id", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return fmt.Errorf("правило %d не найдено", id)
		}
		return nil
	})
}
