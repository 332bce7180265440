//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/testutil/testdb"
)

func mustSeedMember(t testing.TB, ctx context.Context, h *testdb.DBHandle, name string, role models.Role) int64 {
	t.Helper()
	id, err := db.CreateMember(ctx, h.DB, models.OrgMember{
		Name: name, Email: name + "@example.org", Role: role, IsActive: true,
	})
	if err != nil {
		t.Fatalf("не удалось создать участника %q: %v", name, err)
	}
	return id
}

func mustSeedPeriod(t testing.TB, ctx context.Context, h *testdb.DBHandle, name string, activate bool) int64 {
	t.Helper()
	now := time.Now().UTC()
	id, err := db.CreatePeriod(ctx, h.DB, models.Period{
		Name:      name,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("не удалось создать период: %v", err)
	}
	if activate {
		if err := db.ActivatePeriod(ctx, h.DB, id); err != nil {
			t.Fatalf("не удалось активировать период: %v", err)
		}
	}
	return id
}

func mustSeedVersion(t testing.TB, ctx context.Context, h *testdb.DBHandle) int64 {
	t.Helper()
	id, err := db.CreateRuleVersion(ctx, h.DB, models.RuleVersion{
		Name: "v1", ImplementationDate: time.Now().UTC().AddDate(0, -1, 0),
	})
	if err != nil {
		t.Fatalf("не удалось создать версию правил: %v", err)
	}
	if err := db.ActivateRuleVersion(ctx, h.DB, id); err != nil {
		t.Fatalf("не удалось активировать версию правил: %v", err)
	}
	return id
}

func mustSeedRule(t testing.TB, ctx context.Context, h *testdb.DBHandle, versionID int64, base int, escStep, escWindow *int) int64 {
	t.Helper()
	id, err := db.CreateRule(ctx, h.DB, models.Rule{
		Name:                 "тестовое правило",
		Description:          "участие в собрании",
		BaseValue:            base,
		Category:             "участие",
		IsScalable:           escStep != nil,
		EscalationValue:      escStep,
		EscalationWindowDays: escWindow,
		RuleVersionID:        versionID,
	})
	if err != nil {
		t.Fatalf("не удалось создать правило: %v", err)
	}
	return id
}

func mustRecord(t testing.TB, ctx context.Context, h *testdb.DBHandle, subject models.Subject, value int, periodID, versionID, assignerID int64) models.Entry {
	t.Helper()
	e, err := db.RecordEntry(ctx, h.DB, models.Entry{
		Description:   "участие в собрании",
		Value:         value,
		PerformedOn:   time.Now().UTC(),
		Category:      "участие",
		AssignerID:    assignerID,
		Subject:       subject,
		RuleVersionID: versionID,
	}, periodID)
	if err != nil {
		t.Fatalf("не удалось записать начисление: %v", err)
	}
	return e
}

func TestRecordEntry_Aggregates(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	adminID := mustSeedMember(t, ctx, h, "Админ", models.Admin)
	memberID := mustSeedMember(t, ctx, h, "Участник", models.Member)
	periodID := mustSeedPeriod(t, ctx, h, "Осень", true)
	versionID := mustSeedVersion(t, ctx, h)

	subject := models.MemberSubject(memberID)
	mustRecord(t, ctx, h, subject, 3, periodID, versionID, adminID)
	mustRecord(t, ctx, h, subject, 5, periodID, versionID, adminID)

	total, err := db.GetRunningTotal(ctx, h.DB, subject)
	if err != nil {
		t.Fatal(err)
	}
	if total != 8 {
		t.Fatalf("бегущий итог: ожидали 8, получили %d", total)
	}
	score, err := db.GetPeriodScore(ctx, h.DB, subject, periodID)
	if err != nil {
		t.Fatal(err)
	}
	if score != 8 {
		t.Fatalf("счёт периода: ожидали 8, получили %d", score)
	}

	// Организация — отдельный субъект, её агрегаты не трогались.
	orgTotal, err := db.GetRunningTotal(ctx, h.DB, models.OrgSubject())
	if err != nil {
		t.Fatal(err)
	}
	if orgTotal != 0 {
		t.Fatalf("итог организации: ожидали 0, получили %d", orgTotal)
	}
}

func TestReverseEntry_RestoresAggregates(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	adminID := mustSeedMember(t, ctx, h, "Админ", models.Admin)
	memberID := mustSeedMember(t, ctx, h, "Участник", models.Member)
	periodID := mustSeedPeriod(t, ctx, h, "Осень", true)
	versionID := mustSeedVersion(t, ctx, h)

	subject := models.MemberSubject(memberID)
	mustRecord(t, ctx, h, subject, 3, periodID, versionID, adminID)
	e := mustRecord(t, ctx, h, subject, 5, periodID, versionID, adminID)

	if err := db.ReverseEntry(ctx, h.DB, e.ID); err != nil {
		t.Fatalf("откат записи: %v", err)
	}

	total, _ := db.GetRunningTotal(ctx, h.DB, subject)
	if total != 3 {
		t.Fatalf("бегущий итог после отката: ожидали 3, получили %d", total)
	}
	score, _ := db.GetPeriodScore(ctx, h.DB, subject, periodID)
	if score != 3 {
		t.Fatalf("счёт периода после отката: ожидали 3, получили %d", score)
	}
	if got, _ := db.GetEntryByID(ctx, h.DB, e.ID); got != nil {
		t.Fatal("запись должна быть удалена")
	}
}

func TestDeleteRule_ReversesItsEntries(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	adminID := mustSeedMember(t, ctx, h, "Админ", models.Admin)
	memberID := mustSeedMember(t, ctx, h, "Участник", models.Member)
	periodID := mustSeedPeriod(t, ctx, h, "Осень", true)
	versionID := mustSeedVersion(t, ctx, h)
	ruleID := mustSeedRule(t, ctx, h, versionID, 4, nil, nil)

	subject := models.MemberSubject(memberID)
	if _, err := db.RecordEntry(ctx, h.DB, models.Entry{
		Description: "участие в собрании", Value: 4, PerformedOn: time.Now().UTC(),
		RuleID: &ruleID, Category: "участие", AssignerID: adminID,
		Subject: subject, RuleVersionID: versionID,
	}, periodID); err != nil {
		t.Fatal(err)
	}
	// Запись без правила удаление пережить должна.
	mustRecord(t, ctx, h, subject, 10, periodID, versionID, adminID)

	if err := db.DeleteRule(ctx, h.DB, ruleID); err != nil {
		t.Fatalf("удаление правила: %v", err)
	}

	total, _ := db.GetRunningTotal(ctx, h.DB, subject)
	if total != 10 {
		t.Fatalf("после удаления правила итог должен был вернуться к 10, получили %d", total)
	}
	entries, err := db.ListEntriesBySubject(ctx, h.DB, subject)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("ожидали одну оставшуюся запись, получили %d", len(entries))
	}
}
