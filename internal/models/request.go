package models

import "time"

type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Terminal() bool { return s == StatusApproved || s == StatusRejected }

type Attachment struct {
	ID        int64  `db:"id"`
	Key       string `db:"key"`
	Name      string `db:"name"`
	RequestID *int64 `db:"request_id"`
	DisputeID *int64 `db:"dispute_id"`
}

// Request — предварительная заявка «начислите баллы за X». Пока pending,
// автор может её править; после решения ревьюера — нет.
type Request struct {
	ID            int64        `db:"id"`
	Description   string       `db:"description"`
	PerformedOn   time.Time    `db:"performed_on"`
	Status        ReviewStatus `db:"status"`
	RequesterID   int64        `db:"requester_id"`
	IsForOrg      bool         `db:"is_for_org"`
	ReviewerID    *int64       `db:"reviewer_id"`
	ReviewerNotes *string      `db:"reviewer_notes"`
	PeriodID      int64        `db:"period_id"`
	RuleVersionID int64        `db:"rule_version_id"`
	CreatedAt     time.Time    `db:"created_at"`
	ReviewedAt    *time.Time   `db:"reviewed_at"`

	MemberIDs   []int64
	RuleIDs     []int64
	Attachments []Attachment
}

// Subjects — на кого начисляются баллы при одобрении. Автор заявки всегда
// входит в список, даже если не выбрал себя сам.
func (r Request) Subjects() []Subject {
	if r.IsForOrg {
		return []Subject{OrgSubject()}
	}
	seen := map[int64]bool{r.RequesterID: true}
	out := []Subject{MemberSubject(r.RequesterID)}
	for _, id := range r.MemberIDs {
		if !seen[id] {
			seen[id] = true
			out = append(out, MemberSubject(id))
		}
	}
	return out
}
