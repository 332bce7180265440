package points

import (
	"context"
	"errors"
	"time"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/models"
)

// CreatePeriod — административное создание периода; активировать его нужно
// отдельной операцией.
func (s *Service) CreatePeriod(ctx context.Context, principal models.Principal, name string, start, end time.Time) (*models.Period, error) {
	if !principal.IsAdmin() {
		return nil, errForbidden
	}
	if name == "" {
		return nil, validationf("name", "пустое имя периода")
	}
	if !end.After(start) {
		return nil, validationf("end_date", "период заканчивается раньше, чем начинается")
	}
	id, err := db.CreatePeriod(ctx, s.DB, models.Period{Name: name, StartDate: start, EndDate: end})
	if err != nil {
		return nil, err
	}
	return db.GetPeriodByID(ctx, s.DB, id)
}

func (s *Service) ActivatePeriod(ctx context.Context, principal models.Principal, id int64) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	p, err := db.GetPeriodByID(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if p == nil {
		return precondition(CodeNotFound, "период %d не найден", id)
	}
	return db.ActivatePeriod(ctx, s.DB, id)
}

// DeletePeriod удаляет период вместе со счетами и снапшотами. Записи ещё
// активного периода при этом снимаются с бегущих итогов.
func (s *Service) DeletePeriod(ctx context.Context, principal models.Principal, id int64) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	p, err := db.GetPeriodByID(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if p == nil {
		return precondition(CodeNotFound, "период %d не найден", id)
	}
	if err := db.DeletePeriod(ctx, s.DB, id); err != nil {
		return err
	}
	s.Log.Infow("период удалён", "period_id", id, "name", p.Name)
	return nil
}

func (s *Service) CreateRuleVersion(ctx context.Context, principal models.Principal, v models.RuleVersion) (*models.RuleVersion, error) {
	if !principal.IsAdmin() {
		return nil, errForbidden
	}
	if v.Name == "" {
		return nil, validationf("name", "пустое имя версии")
	}
	id, err := db.CreateRuleVersion(ctx, s.DB, v)
	if err != nil {
		return nil, err
	}
	return db.GetRuleVersionByID(ctx, s.DB, id)
}

func (s *Service) ActivateRuleVersion(ctx context.Context, principal models.Principal, id int64) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	return db.ActivateRuleVersion(ctx, s.DB, id)
}

// Snapshot замораживает счёт периода и обнуляет накопительные суммы.
// Повторный снапшот того же периода — ошибка: иначе второй проход перезаписал
// бы зафиксированный счёт нулями.
// DeleteRuleVersion удаляет версию каталога целиком: её правила, заявки и
// апелляции уходят каскадом, начисления активного периода откатываются из
// агрегатов.
func (s *Service) DeleteRuleVersion(ctx context.Context, principal models.Principal, id int64) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	v, err := db.GetRuleVersionByID(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if v == nil {
		return precondition(CodeNotFound, "версия правил %d не найдена", id)
	}
	if err := db.DeleteRuleVersion(ctx, s.DB, id); err != nil {
		return err
	}
	s.Log.Infow("версия правил удалена", "rule_version_id", id, "name", v.Name)
	return nil
}

func (s *Service) Snapshot(ctx context.Context, principal models.Principal, periodID int64) error {
	if !principal.IsAdmin() {
		return errForbidden
	}
	p, err := db.GetPeriodByID(ctx, s.DB, periodID)
	if err != nil {
		return err
	}
	if p == nil {
		return precondition(CodeNotFound, "период %d не найден", periodID)
	}
	if err := db.SnapshotPeriod(ctx, s.DB, periodID); err != nil {
		if errors.Is(err, db.ErrSnapshotExists) {
			return precondition(CodeSnapshotExists, "снапшот периода %q уже снят", p.Name)
		}
		return err
	}
	metrics.Rollovers.Inc()
	s.Log.Infow("период закрыт", "period_id", periodID, "name", p.Name)
	s.notify(ctx, []models.Subject{models.OrgSubject()},
		"Период «"+p.Name+"» закрыт, счёт зафиксирован", "/scores")
	return nil
}

// DeleteSnapshots удаляет зафиксированные счета периода. Накопительные
// суммы при этом не восстанавливаются.
func (s *Service) DeleteSnapshots(ctx context.Context, principal models.Principal, periodID int64) (int64, error) {
	if !principal.IsAdmin() {
		return 0, errForbidden
	}
	return db.DeletePeriodSnapshots(ctx, s.DB, periodID)
}
