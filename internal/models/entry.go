package models

import "time"

// Entry — одна запись начисления баллов. После создания меняется только
// через одобренную апелляцию (value/description), всё остальное неизменно.
type Entry struct {
	ID            int64     `db:"id"`
	Description   string    `db:"description"`
	Value         int       `db:"value"`
	PerformedOn   time.Time `db:"performed_on"`
	RuleID        *int64    `db:"rule_id"`
	Category      string    `db:"category"`
	AssignerID    int64     `db:"assigner_id"`
	Subject       Subject
	PeriodScoreID int64     `db:"period_score_id"`
	RuleVersionID int64     `db:"rule_version_id"`
	IsFromAppeal  bool      `db:"is_from_appeal"`
	CreatedAt     time.Time `db:"created_at"`
}

type RunningTotal struct {
	ID      int64 `db:"id"`
	Subject Subject
	Value   int64 `db:"value"`
}

type PeriodScore struct {
	ID       int64 `db:"id"`
	Subject  Subject
	PeriodID int64 `db:"period_id"`
	Value    int64 `db:"value"`
}
