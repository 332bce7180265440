//go:build testutil
// +build testutil

package points_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/points"
	"github.com/empjr/jrpoints/internal/storage"
	"github.com/empjr/jrpoints/internal/testutil/testdb"
	"go.uber.org/zap"
)

type fixture struct {
	h       *testdb.DBHandle
	svc     *points.Service
	admin   models.Principal
	member  models.Principal
	adminID int64
	userID  int64
	period  int64
	version int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)

	adminID, err := db.CreateMember(ctx, h.DB, models.OrgMember{
		Name: "Админ", Email: "admin@example.org", Role: models.Admin, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	userID, err := db.CreateMember(ctx, h.DB, models.OrgMember{
		Name: "Участник", Email: "member@example.org", Role: models.Member, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	periodID, err := db.CreatePeriod(ctx, h.DB, models.Period{
		Name: "Осень", StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.ActivatePeriod(ctx, h.DB, periodID); err != nil {
		t.Fatal(err)
	}
	versionID, err := db.CreateRuleVersion(ctx, h.DB, models.RuleVersion{
		Name: "v1", ImplementationDate: now.AddDate(0, -1, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.ActivateRuleVersion(ctx, h.DB, versionID); err != nil {
		t.Fatal(err)
	}

	svc := points.NewService(h.DB, storage.Null{}, nil, zap.NewNop().Sugar())
	return &fixture{
		h: h, svc: svc,
		admin:   models.Principal{ID: adminID, Role: models.Admin},
		member:  models.Principal{ID: userID, Role: models.Member},
		adminID: adminID, userID: userID,
		period: periodID, version: versionID,
	}
}

func (f *fixture) mustRule(t *testing.T, base int, step, window *int) models.Rule {
	t.Helper()
	r, err := f.svc.CreateRule(context.Background(), f.admin, models.Rule{
		Name: "правило", Description: "описание", BaseValue: base, Category: "участие",
		IsScalable: step != nil, EscalationValue: step, EscalationWindowDays: window,
	})
	if err != nil {
		t.Fatalf("создание правила: %v", err)
	}
	return *r
}

func intPtr(v int) *int { return &v }

func day(offset int) time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestBulkAward_StreakEscalation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 2, intPtr(1), intPtr(3))

	award := func(on time.Time) int {
		entries, err := f.svc.BulkAward(ctx, f.admin, points.BulkAwardInput{
			RuleIDs: []int64{rule.ID}, MemberIDs: []int64{f.userID}, PerformedOn: on,
		})
		if err != nil {
			t.Fatalf("начисление: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("ожидали одну запись, получили %d", len(entries))
		}
		return entries[0].Value
	}

	if v := award(day(0)); v != 2 {
		t.Fatalf("первое начисление: ожидали базу 2, получили %d", v)
	}
	if v := award(day(1)); v != 3 {
		t.Fatalf("серия жива: ожидали 3, получили %d", v)
	}
	// Граница окна включительно: ровно 3 дня — серия ещё жива.
	if v := award(day(4)); v != 4 {
		t.Fatalf("граница окна: ожидали 4, получили %d", v)
	}
	// 4 дня — серия разорвана, сразу база.
	if v := award(day(8)); v != 2 {
		t.Fatalf("сброс серии: ожидали 2, получили %d", v)
	}
}

func TestBulkAward_NegativeBaseEscalatesDown(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, -2, intPtr(1), intPtr(3))

	for i, want := range []int{-2, -3, -4} {
		entries, err := f.svc.BulkAward(ctx, f.admin, points.BulkAwardInput{
			RuleIDs: []int64{rule.ID}, MemberIDs: []int64{f.userID}, PerformedOn: day(i),
		})
		if err != nil {
			t.Fatal(err)
		}
		if entries[0].Value != want {
			t.Fatalf("штрафная серия, шаг %d: ожидали %d, получили %d", i, want, entries[0].Value)
		}
	}
}

func TestBulkAward_MemberForbidden(t *testing.T) {
	f := setup(t)
	rule := f.mustRule(t, 2, nil, nil)

	_, err := f.svc.BulkAward(context.Background(), f.member, points.BulkAwardInput{
		RuleIDs: []int64{rule.ID}, MemberIDs: []int64{f.userID}, PerformedOn: day(0),
	})
	var ae *points.AuthorizationError
	if !errors.As(err, &ae) {
		t.Fatalf("ожидали AuthorizationError, получили %v", err)
	}
}

func TestApproveRequest_AwardsRequesterImplicitly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 3, nil, nil)

	other, err := db.CreateMember(ctx, f.h.DB, models.OrgMember{
		Name: "Второй", Email: "second@example.org", Role: models.Member, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Автор себя в список не включал — при одобрении он добавляется сам.
	req, err := f.svc.CreateRequest(ctx, f.member, points.RequestInput{
		Description: "организовали встречу", PerformedOn: day(0),
		MemberIDs: []int64{other}, RuleIDs: []int64{rule.ID},
	})
	if err != nil {
		t.Fatalf("создание заявки: %v", err)
	}

	entries, err := f.svc.ApproveRequest(ctx, f.admin, req.ID, "ок")
	if err != nil {
		t.Fatalf("одобрение: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ожидали записи для автора и второго участника, получили %d", len(entries))
	}

	total, _ := db.GetRunningTotal(ctx, f.h.DB, models.MemberSubject(f.userID))
	if total != 3 {
		t.Fatalf("итог автора: ожидали 3, получили %d", total)
	}

	got, _ := db.GetRequestByID(ctx, f.h.DB, req.ID)
	if got.Status != models.StatusApproved {
		t.Fatalf("статус заявки: ожидали approved, получили %s", got.Status)
	}

	// Повторное одобрение — уже не pending.
	_, err = f.svc.ApproveRequest(ctx, f.admin, req.ID, "ещё раз")
	var pe *points.PreconditionError
	if !errors.As(err, &pe) || pe.Code != points.CodeWrongStatus {
		t.Fatalf("ожидали WrongStatus, получили %v", err)
	}
}

func TestRejectRequest_NoEntries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 3, nil, nil)

	req, err := f.svc.CreateRequest(ctx, f.member, points.RequestInput{
		Description: "спорная активность", PerformedOn: day(0), RuleIDs: []int64{rule.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.RejectRequest(ctx, f.admin, req.ID, "не подтверждено"); err != nil {
		t.Fatalf("отказ: %v", err)
	}

	total, _ := db.GetRunningTotal(ctx, f.h.DB, models.MemberSubject(f.userID))
	if total != 0 {
		t.Fatalf("отказ не должен порождать начислений, итог %d", total)
	}
	got, _ := db.GetRequestByID(ctx, f.h.DB, req.ID)
	if got.Status != models.StatusRejected {
		t.Fatalf("статус: ожидали rejected, получили %s", got.Status)
	}
}

func TestSnapshot_SecondCallPreconditionFailed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 5, nil, nil)

	if _, err := f.svc.BulkAward(ctx, f.admin, points.BulkAwardInput{
		RuleIDs: []int64{rule.ID}, MemberIDs: []int64{f.userID}, PerformedOn: day(0),
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Snapshot(ctx, f.admin, f.period); err != nil {
		t.Fatalf("первый снапшот: %v", err)
	}
	err := f.svc.Snapshot(ctx, f.admin, f.period)
	var pe *points.PreconditionError
	if !errors.As(err, &pe) || pe.Code != points.CodeSnapshotExists {
		t.Fatalf("ожидали SnapshotExists, получили %v", err)
	}
}

func TestCreateRequest_RequiresActivePeriod(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 3, nil, nil)

	// Деактивируем период: заявки не принимаются.
	if _, err := f.h.DB.ExecContext(ctx, `UPDATE periods SET is_active = FALSE`); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.CreateRequest(ctx, f.member, points.RequestInput{
		Description: "активность", PerformedOn: day(0), RuleIDs: []int64{rule.ID},
	})
	var pe *points.PreconditionError
	if !errors.As(err, &pe) || pe.Code != points.CodeNoActivePeriod {
		t.Fatalf("ожидали NoActivePeriod, получили %v", err)
	}
}

func strPtr(s string) *string { return &s }

func TestCreateDispute_CarriesProposedCorrection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 3, nil, nil)

	entries, err := f.svc.BulkAward(ctx, f.admin, points.BulkAwardInput{
		RuleIDs: []int64{rule.ID}, MemberIDs: []int64{f.userID}, PerformedOn: day(0),
	})
	if err != nil {
		t.Fatal(err)
	}

	d, err := f.svc.CreateDispute(ctx, f.member, points.DisputeInput{
		EntryID:              entries[0].ID,
		Description:          "сумма занижена",
		CorrectedValue:       intPtr(5),
		CorrectedDescription: strPtr("участие в двух собраниях"),
	})
	if err != nil {
		t.Fatalf("создание апелляции: %v", err)
	}
	if d.CorrectedValue == nil || *d.CorrectedValue != 5 {
		t.Fatalf("предложенная сумма потерялась: %v", d.CorrectedValue)
	}
	if d.CorrectedDescription == nil || *d.CorrectedDescription != "участие в двух собраниях" {
		t.Fatalf("предложенное описание потерялось: %v", d.CorrectedDescription)
	}
	if d.Status != models.StatusPending {
		t.Fatalf("новая апелляция должна быть pending, получили %s", d.Status)
	}
}

func TestDeleteRuleVersion_ReversesAwards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 3, nil, nil)

	if _, err := f.svc.BulkAward(ctx, f.admin, points.BulkAwardInput{
		RuleIDs: []int64{rule.ID}, MemberIDs: []int64{f.userID}, PerformedOn: day(0),
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteRuleVersion(ctx, f.member, f.version); err == nil {
		t.Fatal("участник не должен удалять версию правил")
	}
	if err := f.svc.DeleteRuleVersion(ctx, f.admin, f.version); err != nil {
		t.Fatalf("удаление версии: %v", err)
	}

	subject := models.MemberSubject(f.userID)
	total, err := db.GetRunningTotal(ctx, f.h.DB, subject)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("итог должен был откатиться к 0, получили %d", total)
	}
	v, err := db.GetRuleVersionByID(ctx, f.h.DB, f.version)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatal("версия должна быть удалена")
	}
}

func TestDeletePeriod_ActivePeriodReversesTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule := f.mustRule(t, 4, nil, nil)

	if _, err := f.svc.BulkAward(ctx, f.admin, points.BulkAwardInput{
		RuleIDs: []int64{rule.ID}, MemberIDs: []int64{f.userID}, PerformedOn: day(0),
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeletePeriod(ctx, f.admin, f.period); err != nil {
		t.Fatalf("удаление периода: %v", err)
	}

	total, _ := db.GetRunningTotal(ctx, f.h.DB, models.MemberSubject(f.userID))
	if total != 0 {
		t.Fatalf("итог активного периода должен был откатиться к 0, получили %d", total)
	}
	p, err := db.GetPeriodByID(ctx, f.h.DB, f.period)
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("период должен быть удалён")
	}
}
