package api

import (
	"time"

	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/points"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type attachmentDTO struct {
	Key  string `json:"key" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func attachments(in []attachmentDTO) []models.Attachment {
	out := make([]models.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, models.Attachment{Key: a.Key, Name: a.Name})
	}
	return out
}

type createRuleReq struct {
	Name                 string `json:"name" validate:"required"`
	Description          string `json:"description" validate:"required"`
	BaseValue            int    `json:"base_value" validate:"required"`
	Category             string `json:"category" validate:"required"`
	IsScalable           bool   `json:"is_scalable"`
	EscalationValue      *int   `json:"escalation_value"`
	EscalationWindowDays *int   `json:"escalation_window_days" validate:"omitempty,gt=0"`
	RuleVersionID        int64  `json:"rule_version_id"`
}

func (r createRuleReq) model() models.Rule {
	return models.Rule{
		Name:                 r.Name,
		Description:          r.Description,
		BaseValue:            r.BaseValue,
		Category:             r.Category,
		IsScalable:           r.IsScalable,
		EscalationValue:      r.EscalationValue,
		EscalationWindowDays: r.EscalationWindowDays,
		RuleVersionID:        r.RuleVersionID,
	}
}

type createVersionReq struct {
	Name               string     `json:"name" validate:"required"`
	Description        string     `json:"description"`
	ImplementationDate time.Time  `json:"implementation_date" validate:"required"`
	EndDate            *time.Time `json:"end_date"`
}

type createPeriodReq struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

type bulkAwardReq struct {
	RuleIDs     []int64   `json:"rule_ids" validate:"required,min=1"`
	MemberIDs   []int64   `json:"member_ids"`
	ForOrg      bool      `json:"for_org"`
	PerformedOn time.Time `json:"performed_on" validate:"required"`
}

type requestReq struct {
	Description string          `json:"description" validate:"required"`
	PerformedOn time.Time       `json:"performed_on" validate:"required"`
	MemberIDs   []int64         `json:"member_ids"`
	RuleIDs     []int64         `json:"rule_ids" validate:"required,min=1"`
	ForOrg      bool            `json:"for_org"`
	Attachments []attachmentDTO `json:"attachments" validate:"dive"`
}

func (r requestReq) input() points.RequestInput {
	return points.RequestInput{
		Description: r.Description,
		PerformedOn: r.PerformedOn,
		MemberIDs:   r.MemberIDs,
		RuleIDs:     r.RuleIDs,
		ForOrg:      r.ForOrg,
		Attachments: attachments(r.Attachments),
	}
}

type reviewReq struct {
	Notes string `json:"notes"`
}

type createDisputeReq struct {
	EntryID              int64           `json:"entry_id" validate:"required,gt=0"`
	Description          string          `json:"description" validate:"required"`
	CorrectedValue       *int            `json:"corrected_value"`
	CorrectedDescription *string         `json:"corrected_description"`
	Attachments          []attachmentDTO `json:"attachments" validate:"dive"`
}

type reviewDisputeReq struct {
	Decision             string  `json:"decision" validate:"required,oneof=approved rejected"`
	Notes                string  `json:"notes"`
	CorrectedValue       *int    `json:"corrected_value"`
	CorrectedDescription *string `json:"corrected_description"`
}

type createMemberReq struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Role   string `json:"role" validate:"required,oneof=member reviewer admin"`
	ChatID *int64 `json:"chat_id"`
}
