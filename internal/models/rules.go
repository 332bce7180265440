package models

import "time"

type RuleVersion struct {
	ID                 int64      `db:"id"`
	Name               string     `db:"name"`
	Description        string     `db:"description"`
	ImplementationDate time.Time  `db:"implementation_date"`
	EndDate            *time.Time `db:"end_date"`
	IsActive           bool       `db:"is_active"`
}

type Rule struct {
	ID                   int64  `db:"id"`
	Name                 string `db:"name"`
	Description          string `db:"description"`
	BaseValue            int    `db:"base_value"`
	Category             string `db:"category"`
	IsScalable           bool   `db:"is_scalable"`
	EscalationValue      *int   `db:"escalation_value"`
	EscalationWindowDays *int   `db:"escalation_window_days"`
	RuleVersionID        int64  `db:"rule_version_id"`
}

// Escalation возвращает шаг и окно серии. Флагу IsScalable одному не верим:
// без обоих полей эскалация выключена.
func (r Rule) Escalation() (step, windowDays int, ok bool) {
	if !r.IsScalable || r.EscalationValue == nil || r.EscalationWindowDays == nil {
		return 0, 0, false
	}
	return *r.EscalationValue, *r.EscalationWindowDays, true
}
