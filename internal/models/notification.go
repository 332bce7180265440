package models

import "time"

type Notification struct {
	ID        int64      `db:"id"`
	MemberID  int64      `db:"member_id"`
	Message   string     `db:"message"`
	Link      string     `db:"link"`
	CreatedAt time.Time  `db:"created_at"`
	SentAt    *time.Time `db:"sent_at"`
}
