package points

import (
	"context"
	"database/sql"
	"time"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/models"
)

// BulkAwardInput — прямое начисление без заявки: одно или несколько правил
// на участников либо на организацию.
type BulkAwardInput struct {
	RuleIDs     []int64
	MemberIDs   []int64
	ForOrg      bool
	PerformedOn time.Time
}

func (in BulkAwardInput) subjects() []models.Subject {
	if in.ForOrg {
		return []models.Subject{models.OrgSubject()}
	}
	out := make([]models.Subject, 0, len(in.MemberIDs))
	for _, id := range in.MemberIDs {
		out = append(out, models.MemberSubject(id))
	}
	return out
}

func (s *Service) checkAwardInput(ctx context.Context, ruleIDs, memberIDs []int64, forOrg bool, performedOn time.Time) ([]models.Rule, error) {
	if len(ruleIDs) == 0 {
		return nil, precondition(CodeEmptyAward, "не выбрано ни одного правила")
	}
	if !forOrg && len(memberIDs) == 0 {
		return nil, validationf("member_ids", "не выбран ни один участник")
	}
	if performedOn.IsZero() {
		return nil, validationf("performed_on", "не указана дата")
	}
	if missing, err := db.CountMissingMembers(ctx, s.DB, memberIDs); err != nil {
		return nil, err
	} else if missing > 0 {
		return nil, precondition(CodeNotFound, "участников не найдено: %d", missing)
	}
	rules, err := db.GetRulesByIDs(ctx, s.DB, ruleIDs)
	if err != nil {
		return nil, err
	}
	if len(rules) != len(uniqueIDs(ruleIDs)) {
		return nil, precondition(CodeNotFound, "часть правил не найдена")
	}
	return rules, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// awardTx начисляет правило субъекту: калькулятор серий + recordEntry,
// внутри уже открытой транзакции, чтобы между чтением прошлой записи и
// вставкой новой никто не вклинился.
func awardTx(ctx context.Context, tx *sql.Tx, rule models.Rule, subject models.Subject, performedOn time.Time, assignerID, periodID int64) (models.Entry, error) {
	value, err := FinalValue(ctx, tx, subject, rule, performedOn)
	if err != nil {
		return models.Entry{}, err
	}
	ruleID := rule.ID
	e := models.Entry{
		Description:   rule.Description,
		Value:         value,
		PerformedOn:   performedOn,
		RuleID:        &ruleID,
		Category:      rule.Category,
		AssignerID:    assignerID,
		Subject:       subject,
		RuleVersionID: rule.RuleVersionID,
	}
	return db.RecordEntryTx(ctx, tx, e, periodID)
}

// BulkAward — административное начисление в обход заявок.
func (s *Service) BulkAward(ctx context.Context, principal models.Principal, in BulkAwardInput) ([]models.Entry, error) {
	if !principal.CanReview() {
		return nil, errForbidden
	}
	rules, err := s.checkAwardInput(ctx, in.RuleIDs, in.MemberIDs, in.ForOrg, in.PerformedOn)
	if err != nil {
		return nil, err
	}
	period, err := s.activePeriod(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeRuleVersion(ctx); err != nil {
		return nil, err
	}

	subjects := in.subjects()
	var entries []models.Entry
	err = db.InTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, rule := range rules {
			for _, subject := range subjects {
				e, err := awardTx(ctx, tx, rule, subject, in.PerformedOn, principal.ID, period.ID)
				if err != nil {
					return err
				}
				entries = append(entries, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.EntriesRecorded.Add(float64(len(entries)))
	s.notify(ctx, subjects, "Вам начислены баллы", "/scores/me")
	return entries, nil
}

// Preview — «а сколько выйдет?»: тот же калькулятор, что и при начислении,
// без записи в леджер.
func (s *Service) Preview(ctx context.Context, ruleID int64, subject models.Subject, performedOn time.Time) (int, error) {
	rule, err := db.GetRuleByID(ctx, s.DB, ruleID)
	if err != nil {
		return 0, err
	}
	if rule == nil {
		return 0, precondition(CodeNotFound, "правило %d не найдено", ruleID)
	}
	return FinalValue(ctx, s.DB, subject, *rule, performedOn)
}

// DeleteEntry — административное удаление записи с откатом агрегатов.
func (s *Service) DeleteEntry(ctx context.Context, principal models.Principal, entryID int64) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	e, err := db.GetEntryByID(ctx, s.DB, entryID)
	if err != nil {
		return err
	}
	if e == nil {
		return precondition(CodeNotFound, "запись %d не найдена", entryID)
	}
	if err := db.ReverseEntry(ctx, s.DB, entryID); err != nil {
		return err
	}
	metrics.EntriesReversed.Inc()
	return nil
}
