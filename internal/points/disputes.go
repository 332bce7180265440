package points

import (
	"context"
	"errors"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/models"
)

// DisputeInput — апелляция на конкретную запись леджера. Автор может сразу
// предложить исправленные сумму и описание; применит их только ревьюер.
type DisputeInput struct {
	EntryID              int64
	Description          string
	CorrectedValue       *int
	CorrectedDescription *string
	Attachments          []models.Attachment
}

// CreateDispute регистрирует апелляцию; сумма и вердикт появятся только
// после рассмотрения.
func (s *Service) CreateDispute(ctx context.Context, principal models.Principal, in DisputeInput) (*models.Dispute, error) {
	if in.Description == "" {
		return nil, validationf("description", "пустое описание")
	}
	entry, err := db.GetEntryByID(ctx, s.DB, in.EntryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, precondition(CodeNotFound, "запись %d не найдена", in.EntryID)
	}
	period, err := s.activePeriod(ctx)
	if err != nil {
		return nil, err
	}

	d := models.Dispute{
		Description:          in.Description,
		Status:               models.StatusPending,
		RequesterID:          principal.ID,
		EntryID:              entry.ID,
		CorrectedValue:       in.CorrectedValue,
		CorrectedDescription: in.CorrectedDescription,
		IsForOrg:             entry.Subject.IsOrg(),
		PeriodID:             period.ID,
		Attachments:          in.Attachments,
	}
	id, err := db.CreateDispute(ctx, s.DB, d)
	if err != nil {
		return nil, err
	}
	return db.GetDisputeByID(ctx, s.DB, id)
}

// DisputeReview — решение ревьюера: вердикт плюс, опционально, исправленные
// сумма и описание. Исправление применяется независимо от вердикта.
type DisputeReview struct {
	Decision             models.ReviewStatus
	Notes                string
	CorrectedValue       *int
	CorrectedDescription *string
}

func (s *Service) ReviewDispute(ctx context.Context, principal models.Principal, disputeID int64, review DisputeReview) error {
	if !principal.CanReview() {
		return errForbidden
	}
	if review.Decision != models.StatusApproved && review.Decision != models.StatusRejected {
		return validationf("decision", "недопустимый вердикт %q", review.Decision)
	}
	d, err := db.GetDisputeByID(ctx, s.DB, disputeID)
	if err != nil {
		return err
	}
	if d == nil {
		return precondition(CodeNotFound, "апелляция %d не найдена", disputeID)
	}
	if d.Status.Terminal() {
		return precondition(CodeWrongStatus, "апелляция уже рассмотрена: %s", d.Status)
	}

	subject, diff, err := db.ReviewDispute(ctx, s.DB, disputeID, principal.ID, review.Decision, review.Notes, review.CorrectedValue, review.CorrectedDescription)
	if errors.Is(err, db.ErrDisputeReviewed) {
		return precondition(CodeWrongStatus, "апелляция уже рассмотрена")
	}
	if err != nil {
		return err
	}
	metrics.DisputesReviewed.WithLabelValues(string(review.Decision)).Inc()
	s.Log.Infow("апелляция рассмотрена",
		"dispute_id", disputeID, "decision", review.Decision, "diff", diff)

	msg := "Апелляция отклонена"
	if review.Decision == models.StatusApproved {
		msg = "Апелляция одобрена"
	}
	s.notify(ctx, []models.Subject{subject}, msg, "/disputes")
	return nil
}

func (s *Service) ListDisputes(ctx context.Context, principal models.Principal, status models.ReviewStatus) ([]models.Dispute, error) {
	if !principal.CanReview() {
		return nil, errForbidden
	}
	return db.ListDisputes(ctx, s.DB, status)
}
