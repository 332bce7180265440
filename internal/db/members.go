package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/empjr/jrpoints/internal/models"
)

const memberColumns = `id, name, email, role, chat_id, is_active`

func CreateMember(ctx context.Context, database *sql.DB, m models.OrgMember) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO members (name, email, role, chat_id, is_active)
VALUES ($1, $2, $3, $4, TRUE)
RETURNING id`, m.Name, m.Email, m.Role, m.ChatID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func GetMemberByID(ctx context.Context, q Querier, id int64) (*models.OrgMember, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	var m models.OrgMember
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.ChatID, &m.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func ListActiveMembers(ctx context.Context, database *sql.DB) ([]models.OrgMember, error) {
	rows, err := database.QueryContext(ctx, `SELECT `+memberColumns+` FROM members WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.OrgMember
	for rows.Next() {
		var m models.OrgMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.ChatID, &m.IsActive); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMissingMembers — сколько id из списка не существует или неактивно.
func CountMissingMembers(ctx context.Context, q Querier, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var present int
	err := q.QueryRowContext(ctx, `
SELECT COUNT(*) FROM members WHERE is_active AND id = ANY($1)`, int64Array(ids)).Scan(&present)
	if err != nil {
		return 0, err
	}
	return len(ids) - present, nil
}
