package models

import "time"

// Dispute — апелляция на уже созданную запись начисления.
type Dispute struct {
	ID                   int64        `db:"id"`
	Description          string       `db:"description"`
	Status               ReviewStatus `db:"status"`
	RequesterID          int64        `db:"requester_id"`
	EntryID              int64        `db:"entry_id"`
	ReviewerID           *int64       `db:"reviewer_id"`
	ReviewerNotes        *string      `db:"reviewer_notes"`
	CorrectedValue       *int         `db:"corrected_value"`
	CorrectedDescription *string      `db:"corrected_description"`
	IsForOrg             bool         `db:"is_for_org"`
	PeriodID             int64        `db:"period_id"`
	CreatedAt            time.Time    `db:"created_at"`
	ReviewedAt           *time.Time   `db:"reviewed_at"`

	Attachments []Attachment
}
