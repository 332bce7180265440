package db

import (
	"context"
	"database/sql"

	"github.com/empjr/jrpoints/internal/models"
)

func AddNotification(ctx context.Context, database *sql.DB, n models.Notification) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO notifications (member_id, message, link)
VALUES ($1, $2, $3)
RETURNING id`, n.MemberID, n.Message, n.Link).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func MarkNotificationSent(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `UPDATE notifications SET sent_at = NOW() WHERE id = $1`, id)
	return err
}

func ListNotificationsByMember(ctx context.Context, database *sql.DB, memberID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.QueryContext(ctx, `
SELECT id, member_id, message, link, created_at, sent_at
FROM notifications WHERE member_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, memberID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.MemberID, &n.Message, &n.Link, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
