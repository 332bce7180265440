package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/empjr/jrpoints/internal/models"
)

const requestColumns = `id, description, performed_on, status, requester_id, is_for_org, reviewer_id, reviewer_notes, period_id, rule_version_id, created_at, reviewed_at`

func scanRequest(row interface{ Scan(...any) error }) (models.Request, error) {
	var r models.Request
	err := row.Scan(&r.ID, &r.Description, &r.PerformedOn, &r.Status, &r.RequesterID, &r.IsForOrg,
		&r.ReviewerID, &r.ReviewerNotes, &r.PeriodID, &r.RuleVersionID, &r.CreatedAt, &r.ReviewedAt)
	return r, err
}

func CreateRequest(ctx context.Context, database *sql.DB, r models.Request) (int64, error) {
	var id int64
	err := InTx(ctx, database, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
INSERT INTO requests (description, performed_on, status, requester_id, is_for_org, period_id, rule_version_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
			r.Description, r.PerformedOn, models.StatusPending, r.RequesterID, r.IsForOrg,
			r.PeriodID, r.RuleVersionID).Scan(&id)
		if err != nil {
			return err
		}
		return writeRequestSetsTx(ctx, tx, id, r)
	})
	return id, err
}

func writeRequestSetsTx(ctx context.Context, tx *sql.Tx, id int64, r models.Request) error {
	for _, mid := range r.MemberIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO request_members (request_id, member_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, mid); err != nil {
			return err
		}
	}
	for _, rid := range r.RuleIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO request_rules (request_id, rule_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, rid); err != nil {
			return err
		}
	}
	for _, a := range r.Attachments {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attachments (key, name, request_id) VALUES ($1, $2, $3)`, a.Key, a.Name, id); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRequest — правка pending-заявки автором: описание, дата, составы
// участников/правил и вложения заменяются целиком.
func ReplaceRequest(ctx context.Context, database *sql.DB, r models.Request) error {
	return InTx(ctx, database, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE requests SET description = $1, performed_on = $2, is_for_org = $3
WHERE id = $4 AND status = $5`,
			r.Description, r.PerformedOn, r.IsForOrg, r.ID, models.StatusPending)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return fmt.Errorf("pending-заявка %d не найдена", r.ID)
		}
		for _, tbl := range []string{"request_members", "request_rules"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+tbl+` WHERE request_id = $1`, r.ID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE request_id = $1`, r.ID); err != nil {
			return err
		}
		return writeRequestSetsTx(ctx, tx, r.ID, r)
	})
}

func GetRequestByID(ctx context.Context, q Querier, id int64) (*models.Request, error) {
	r, err := scanRequest(q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := loadRequestSets(ctx, q, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func loadRequestSets(ctx context.Context, q Querier, r *models.Request) error {
	rows, err := q.QueryContext(ctx, `SELECT member_id FROM request_members WHERE request_id = $1 ORDER BY member_id`, r.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		r.MemberIDs = append(r.MemberIDs, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `SELECT rule_id FROM request_rules WHERE request_id = $1 ORDER BY rule_id`, r.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		r.RuleIDs = append(r.RuleIDs, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `SELECT id, key, name, request_id, dispute_id FROM attachments WHERE request_id = $1 ORDER BY id`, r.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.Key, &a.Name, &a.RequestID, &a.DisputeID); err != nil {
			return err
		}
		r.Attachments = append(r.Attachments, a)
	}
	return rows.Err()
}

func ListRequests(ctx context.Context, database *sql.DB, status models.ReviewStatus) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := loadRequestSets(ctx, database, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func SetRequestStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.ReviewStatus, reviewerID int64, notes string) error {
	res, err := tx.ExecContext(ctx, `
UPDATE requests SET status = $1, reviewer_id = $2, reviewer_notes = $3, reviewed_at = $4
WHERE id = $5 AND status = $6`,
		status, reviewerID, notes, time.Now().UTC(), id, models.StatusPending)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return fmt.Errorf("pending-заявка %d не найдена", id)
	}
	return nil
}

// DeleteRequest убирает строку заявки; составы и вложения уходят каскадом.
// Записи леджера, созданные одобрением, намеренно не трогаем.
func DeleteRequest(ctx context.Context, database *sql.DB, id int64) error {
	res, err := database.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return fmt.Errorf("заявка %d не найдена", id)
	}
	return nil
}
