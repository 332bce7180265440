//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/testutil/testdb"
)

func mustSeedDispute(t testing.TB, ctx context.Context, h *testdb.DBHandle, entryID, requesterID, periodID int64) int64 {
	t.Helper()
	id, err := db.CreateDispute(ctx, h.DB, models.Dispute{
		Description: "не та сумма",
		Status:      models.StatusPending,
		RequesterID: requesterID,
		EntryID:     entryID,
		PeriodID:    periodID,
	})
	if err != nil {
		t.Fatalf("не удалось создать апелляцию: %v", err)
	}
	return id
}

func intPtr(v int) *int { return &v }

func TestReviewDispute_ApproveWithCorrection(t *testing.T) {
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
	e := mustRecord(t, ctx, h, subject, 3, periodID, versionID, adminID)

	// Первое одобрение: initial = 0 (одобренных апелляций ещё не было),
	// final = 4, к агрегатам уходит +4.
	d1 := mustSeedDispute(t, ctx, h, e.ID, memberID, periodID)
	_, diff, err := db.ReviewDispute(ctx, h.DB, d1, adminID, models.StatusApproved, "исправили", intPtr(4), nil)
	if err != nil {
		t.Fatalf("рассмотрение апелляции: %v", err)
	}
	if diff != 4 {
		t.Fatalf("diff первого одобрения: ожидали 4, получили %d", diff)
	}

	got, err := db.GetEntryByID(ctx, h.DB, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != 4 {
		t.Fatalf("value записи: ожидали 4, получили %d", got.Value)
	}
	if !got.IsFromAppeal {
		t.Fatal("запись должна быть помечена is_from_appeal")
	}

	// Повторная коррекция: initial = 4 (по записи уже есть одобренная
	// апелляция), final = 5, инкремент ровно +1 — без двойного счёта.
	d2 := mustSeedDispute(t, ctx, h, e.ID, memberID, periodID)
	_, diff, err = db.ReviewDispute(ctx, h.DB, d2, adminID, models.StatusApproved, "ещё раз", intPtr(5), nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff != 1 {
		t.Fatalf("diff повторной коррекции: ожидали 1, получили %d", diff)
	}
}

func TestReviewDispute_RejectStillAppliesCorrection(t *testing.T) {
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
	e := mustRecord(t, ctx, h, subject, 3, periodID, versionID, adminID)

	// Отказ с коррекцией: вердикт отрицательный, но исправление в запись
	// всё равно применяется.
	d := mustSeedDispute(t, ctx, h, e.ID, memberID, periodID)
	_, diff, err := db.ReviewDispute(ctx, h.DB, d, adminID, models.StatusRejected, "сумма всё же иная", intPtr(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff != 2 {
		t.Fatalf("diff: ожидали 2, получили %d", diff)
	}

	got, _ := db.GetEntryByID(ctx, h.DB, e.ID)
	if got.Value != 2 {
		t.Fatalf("value записи после отказа с коррекцией: ожидали 2, получили %d", got.Value)
	}
	if !got.IsFromAppeal {
		t.Fatal("запись должна быть помечена is_from_appeal")
	}

	d2, _ := db.GetDisputeByID(ctx, h.DB, d)
	if d2.Status != models.StatusRejected {
		t.Fatalf("статус апелляции: ожидали rejected, получили %s", d2.Status)
	}
}

func TestReviewDispute_RejectWithoutCorrection(t *testing.T) {
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
	e := mustRecord(t, ctx, h, subject, 3, periodID, versionID, adminID)

	d := mustSeedDispute(t, ctx, h, e.ID, memberID, periodID)
	_, diff, err := db.ReviewDispute(ctx, h.DB, d, adminID, models.StatusRejected, "нет", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff != 0 {
		t.Fatalf("отказ без коррекции не должен трогать агрегаты, diff = %d", diff)
	}
	got, _ := db.GetEntryByID(ctx, h.DB, e.ID)
	if got.Value != 3 || got.IsFromAppeal {
		t.Fatalf("запись не должна была измениться: value=%d, is_from_appeal=%v", got.Value, got.IsFromAppeal)
	}
}

func TestReviewDispute_SecondVerdictRejectedInTx(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	adminID := mustSeedMember(t, ctx, h, "Админ", models.Admin)
	reviewerID := mustSeedMember(t, ctx, h, "Ревьюер", models.Reviewer)
	memberID := mustSeedMember(t, ctx, h, "Участник", models.Member)
	periodID := mustSeedPeriod(t, ctx, h, "Осень", true)
	versionID := mustSeedVersion(t, ctx, h)

	subject := models.MemberSubject(memberID)
	e := mustRecord(t, ctx, h, subject, 3, periodID, versionID, adminID)

	d := mustSeedDispute(t, ctx, h, e.ID, memberID, periodID)
	_, diff, err := db.ReviewDispute(ctx, h.DB, d, adminID, models.StatusRejected, "", intPtr(5), nil)
	if err != nil {
		t.Fatalf("первое рассмотрение: %v", err)
	}
	if diff != 5 {
		t.Fatalf("diff первого вердикта: ожидали 5, получили %d", diff)
	}
	totalAfterFirst, _ := db.GetRunningTotal(ctx, h.DB, subject)

	// Гонка двух ревьюеров: второй вызов по той же апелляции упирается в
	// терминальный статус уже внутри транзакции и не прикладывает diff ещё раз.
	_, _, err = db.ReviewDispute(ctx, h.DB, d, reviewerID, models.StatusApproved, "поправим", intPtr(5), nil)
	if !errors.Is(err, db.ErrDisputeReviewed) {
		t.Fatalf("ожидали ErrDisputeReviewed, получили %v", err)
	}

	total, _ := db.GetRunningTotal(ctx, h.DB, subject)
	if total != totalAfterFirst {
		t.Fatalf("повторный вердикт сдвинул итог: было %d, стало %d", totalAfterFirst, total)
	}
	got, _ := db.GetDisputeByID(ctx, h.DB, d)
	if got.Status != models.StatusRejected || *got.ReviewerID != adminID {
		t.Fatalf("вердикт затёрт повторным рассмотрением: status=%s", got.Status)
	}
}
