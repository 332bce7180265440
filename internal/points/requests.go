package points

import (
	"context"
	"database/sql"
	"time"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/models"
)

// RequestInput — заявка «начислите баллы за X» или её полная замена при
// правке.
type RequestInput struct {
	Description string
	PerformedOn time.Time
	MemberIDs   []int64
	RuleIDs     []int64
	ForOrg      bool
	Attachments []models.Attachment
}

func (s *Service) validateRequestInput(ctx context.Context, in RequestInput) error {
	if in.Description == "" {
		return validationf("description", "пустое описание")
	}
	if in.PerformedOn.IsZero() {
		return validationf("performed_on", "не указана дата")
	}
	if len(in.RuleIDs) == 0 {
		return validationf("rule_ids", "не выбрано ни одного правила")
	}
	if missing, err := db.CountMissingMembers(ctx, s.DB, in.MemberIDs); err != nil {
		return err
	} else if missing > 0 {
		return precondition(CodeNotFound, "участников не найдено: %d", missing)
	}
	rules, err := db.GetRulesByIDs(ctx, s.DB, in.RuleIDs)
	if err != nil {
		return err
	}
	if len(rules) != len(uniqueIDs(in.RuleIDs)) {
		return precondition(CodeNotFound, "часть правил не найдена")
	}
	return nil
}

// CreateRequest: без активного периода и активной версии правил заявки не
// принимаются.
func (s *Service) CreateRequest(ctx context.Context, principal models.Principal, in RequestInput) (*models.Request, error) {
	if err := s.validateRequestInput(ctx, in); err != nil {
		return nil, err
	}
	period, err := s.activePeriod(ctx)
	if err != nil {
		return nil, err
	}
	version, err := s.activeRuleVersion(ctx)
	if err != nil {
		return nil, err
	}

	r := models.Request{
		Description:   in.Description,
		PerformedOn:   in.PerformedOn,
		Status:        models.StatusPending,
		RequesterID:   principal.ID,
		IsForOrg:      in.ForOrg,
		PeriodID:      period.ID,
		RuleVersionID: version.ID,
		MemberIDs:     in.MemberIDs,
		RuleIDs:       in.RuleIDs,
		Attachments:   in.Attachments,
	}
	id, err := db.CreateRequest(ctx, s.DB, r)
	if err != nil {
		return nil, err
	}
	return db.GetRequestByID(ctx, s.DB, id)
}

func (s *Service) getOwnRequest(ctx context.Context, principal models.Principal, id int64) (*models.Request, error) {
	r, err := db.GetRequestByID(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, precondition(CodeNotFound, "заявка %d не найдена", id)
	}
	if r.RequesterID != principal.ID {
		// Чужой ресурс: не раскрываем, существует ли он.
		return nil, errForbidden
	}
	return r, nil
}

// EditRequest — правка автором, только пока заявка pending. Состав заявки
// заменяется целиком; вложения, выпавшие из нового набора, удаляются и из
// хранилища.
func (s *Service) EditRequest(ctx context.Context, principal models.Principal, id int64, in RequestInput) (*models.Request, error) {
	r, err := s.getOwnRequest(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, precondition(CodeWrongStatus, "заявка уже рассмотрена")
	}
	if err := s.validateRequestInput(ctx, in); err != nil {
		return nil, err
	}

	kept := map[string]bool{}
	for _, a := range in.Attachments {
		kept[a.Key] = true
	}
	var removed []string
	for _, a := range r.Attachments {
		if !kept[a.Key] {
			removed = append(removed, a.Key)
		}
	}

	r.Description = in.Description
	r.PerformedOn = in.PerformedOn
	r.IsForOrg = in.ForOrg
	r.MemberIDs = in.MemberIDs
	r.RuleIDs = in.RuleIDs
	r.Attachments = in.Attachments
	if err := db.ReplaceRequest(ctx, s.DB, *r); err != nil {
		return nil, err
	}
	s.deleteAttachments(ctx, removed)
	return db.GetRequestByID(ctx, s.DB, id)
}

func (s *Service) deleteAttachments(ctx context.Context, keys []string) {
	if s.Store == nil {
		return
	}
	for _, key := range keys {
		if err := s.Store.Delete(ctx, key); err != nil {
			s.Log.Warnw("не удалось удалить вложение из хранилища", "key", key, "err", err)
		}
	}
}

// ApproveRequest: правило × субъект → калькулятор серий → запись в леджер,
// всё одной транзакцией вместе со сменой статуса.
func (s *Service) ApproveRequest(ctx context.Context, reviewer models.Principal, id int64, notes string) ([]models.Entry, error) {
	if !reviewer.CanReview() {
		return nil, errForbidden
	}
	r, err := db.GetRequestByID(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, precondition(CodeNotFound, "заявка %d не найдена", id)
	}
	if r.Status.Terminal() {
		return nil, precondition(CodeWrongStatus, "заявка уже рассмотрена")
	}
	if len(r.RuleIDs) == 0 {
		return nil, precondition(CodeEmptyAward, "в заявке нет ни одного правила")
	}
	rules, err := db.GetRulesByIDs(ctx, s.DB, r.RuleIDs)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, precondition(CodeEmptyAward, "правила заявки уже удалены")
	}
	period, err := s.activePeriod(ctx)
	if err != nil {
		return nil, err
	}

	subjects := r.Subjects()
	var entries []models.Entry
	err = db.InTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, rule := range rules {
			for _, subject := range subjects {
				e, err := awardTx(ctx, tx, rule, subject, r.PerformedOn, reviewer.ID, period.ID)
				if err != nil {
					return err
				}
				entries = append(entries, e)
			}
		}
		return db.SetRequestStatusTx(ctx, tx, id, models.StatusApproved, reviewer.ID, notes)
	})
	if err != nil {
		return nil, err
	}
	metrics.EntriesRecorded.Add(float64(len(entries)))
	metrics.RequestsReviewed.WithLabelValues(string(models.StatusApproved)).Inc()
	s.notify(ctx, subjects, "Заявка на баллы одобрена", "/requests")
	return entries, nil
}

func (s *Service) RejectRequest(ctx context.Context, reviewer models.Principal, id int64, notes string) error {
	if !reviewer.CanReview() {
		return errForbidden
	}
	r, err := db.GetRequestByID(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if r == nil {
		return precondition(CodeNotFound, "заявка %d не найдена", id)
	}
	if r.Status.Terminal() {
		return precondition(CodeWrongStatus, "заявка уже рассмотрена")
	}
	err = db.InTx(ctx, s.DB, func(tx *sql.Tx) error {
		return db.SetRequestStatusTx(ctx, tx, id, models.StatusRejected, reviewer.ID, notes)
	})
	if err != nil {
		return err
	}
	metrics.RequestsReviewed.WithLabelValues(string(models.StatusRejected)).Inc()
	s.notify(ctx, r.Subjects(), "Заявка на баллы отклонена", "/requests")
	return nil
}

// DeleteRequest — автором, в любом статусе. Вложения чистим из хранилища;
// записи леджера, созданные одобрением, живут дальше сами по себе.
func (s *Service) DeleteRequest(ctx context.Context, principal models.Principal, id int64) error {
	r, err := s.getOwnRequest(ctx, principal, id)
	if err != nil {
		return err
	}
	var keys []string
	for _, a := range r.Attachments {
		keys = append(keys, a.Key)
	}
	if err := db.DeleteRequest(ctx, s.DB, id); err != nil {
		return err
	}
	s.deleteAttachments(ctx, keys)
	return nil
}

// ListRequests: ревьюеру — все по статусу, участнику — только свои.
func (s *Service) ListRequests(ctx context.Context, principal models.Principal, status models.ReviewStatus) ([]models.Request, error) {
	all, err := db.ListRequests(ctx, s.DB, status)
	if err != nil {
		return nil, err
	}
	if principal.CanReview() {
		return all, nil
	}
	own := all[:0:0]
	for _, r := range all {
		if r.RequesterID == principal.ID {
			own = append(own, r)
		}
	}
	return own, nil
}

// GetRequest доступен автору и ревьюерам.
func (s *Service) GetRequest(ctx context.Context, principal models.Principal, id int64) (*models.Request, error) {
	r, err := db.GetRequestByID(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, precondition(CodeNotFound, "заявка %d не найдена", id)
	}
	if r.RequesterID != principal.ID && !principal.CanReview() {
		return nil, errForbidden
	}
	return r, nil
}
