package points

import (
	"context"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/models"
)

func validateRule(r models.Rule) error {
	if r.Name == "" {
		return validationf("name", "пустое имя правила")
	}
	if r.Category == "" {
		return validationf("category", "пустая категория")
	}
	if r.IsScalable {
		// Пара полей эскалации идёт только вместе.
		if (r.EscalationValue == nil) != (r.EscalationWindowDays == nil) {
			return validationf("escalation", "шаг и окно эскалации задаются вместе")
		}
		if r.EscalationWindowDays != nil && *r.EscalationWindowDays < 0 {
			return validationf("escalation_window_days", "окно не может быть отрицательным")
		}
	}
	return nil
}

// CreateRule заводит шаблон начисления в активной версии правил.
func (s *Service) CreateRule(ctx context.Context, principal models.Principal, r models.Rule) (*models.Rule, error) {
	if !principal.IsAdmin() {
		return nil, errForbidden
	}
	if err := validateRule(r); err != nil {
		return nil, err
	}
	if r.RuleVersionID == 0 {
		v, err := s.activeRuleVersion(ctx)
		if err != nil {
			return nil, err
		}
		r.RuleVersionID = v.ID
	}
	id, err := db.CreateRule(ctx, s.DB, r)
	if err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}

func (s *Service) UpdateRule(ctx context.Context, principal models.Principal, r models.Rule) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	if err := validateRule(r); err != nil {
		return err
	}
	existing, err := db.GetRuleByID(ctx, s.DB, r.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return precondition(CodeNotFound, "правило %d не найдено", r.ID)
	}
	r.RuleVersionID = existing.RuleVersionID
	return db.UpdateRule(ctx, s.DB, r)
}

// DeleteRule удаляет шаблон вместе со всеми порождёнными им записями,
// откатив их из агрегатов (одной транзакцией на стороне БД).
func (s *Service) DeleteRule(ctx context.Context, principal models.Principal, id int64) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	existing, err := db.GetRuleByID(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return precondition(CodeNotFound, "правило %d не найдено", id)
	}
	if err := db.DeleteRule(ctx, s.DB, id); err != nil {
		return err
	}
	metrics.RulesDeleted.Inc()
	return nil
}
