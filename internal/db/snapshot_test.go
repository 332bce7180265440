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

func TestSnapshotPeriod_RolloverAndReaward(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	adminID := mustSeedMember(t, ctx, h, "Админ", models.Admin)
	memberID := mustSeedMember(t, ctx, h, "Участник", models.Member)
	fall := mustSeedPeriod(t, ctx, h, "Осень", true)
	versionID := mustSeedVersion(t, ctx, h)

	subject := models.MemberSubject(memberID)
	mustRecord(t, ctx, h, subject, 7, fall, versionID, adminID)

	if err := db.SnapshotPeriod(ctx, h.DB, fall); err != nil {
		t.Fatalf("снапшот: %v", err)
	}

	// Итоги обнулены, счёт периода заморожен на снятом значении.
	total, _ := db.GetRunningTotal(ctx, h.DB, subject)
	if total != 0 {
		t.Fatalf("после переката итог должен быть 0, получили %d", total)
	}
	score, _ := db.GetPeriodScore(ctx, h.DB, subject, fall)
	if score != 7 {
		t.Fatalf("замороженный счёт: ожидали 7, получили %d", score)
	}
	// Маркер переката: строка организации есть даже при нулевом счёте.
	orgScore, err := db.GetPeriodScore(ctx, h.DB, models.OrgSubject(), fall)
	if err != nil {
		t.Fatal(err)
	}
	if orgScore != 0 {
		t.Fatalf("счёт организации: ожидали 0, получили %d", orgScore)
	}

	// Повторный снапшот того же периода — write-once.
	if err := db.SnapshotPeriod(ctx, h.DB, fall); !errors.Is(err, db.ErrSnapshotExists) {
		t.Fatalf("ожидали ErrSnapshotExists, получили %v", err)
	}

	// Новый период: начисления идут с чистого листа, осенний счёт не трогается.
	spring := mustSeedPeriod(t, ctx, h, "Весна", true)
	mustRecord(t, ctx, h, subject, 2, spring, versionID, adminID)

	total, _ = db.GetRunningTotal(ctx, h.DB, subject)
	if total != 2 {
		t.Fatalf("итог нового периода: ожидали 2, получили %d", total)
	}
	score, _ = db.GetPeriodScore(ctx, h.DB, subject, fall)
	if score != 7 {
		t.Fatalf("осенний счёт изменился: ожидали 7, получили %d", score)
	}
}

func TestDeletePeriodSnapshots_Irreversible(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	adminID := mustSeedMember(t, ctx, h, "Админ", models.Admin)
	memberID := mustSeedMember(t, ctx, h, "Участник", models.Member)
	fall := mustSeedPeriod(t, ctx, h, "Осень", true)
	versionID := mustSeedVersion(t, ctx, h)

	subject := models.MemberSubject(memberID)
	mustRecord(t, ctx, h, subject, 7, fall, versionID, adminID)
	if err := db.SnapshotPeriod(ctx, h.DB, fall); err != nil {
		t.Fatal(err)
	}

	n, err := db.DeletePeriodSnapshots(ctx, h.DB, fall)
	if err != nil {
		t.Fatalf("удаление снапшотов: %v", err)
	}
	if n != 2 { // участник + организация
		t.Fatalf("ожидали 2 удалённых строки, получили %d", n)
	}

	// Обнулённые итоги не восстанавливаются.
	total, _ := db.GetRunningTotal(ctx, h.DB, subject)
	if total != 0 {
		t.Fatalf("итог после удаления снапшотов: ожидали 0, получили %d", total)
	}
}

func TestDeletePeriod_ClosedPeriodKeepsTotals(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	adminID := mustSeedMember(t, ctx, h, "Админ", models.Admin)
	memberID := mustSeedMember(t, ctx, h, "Участник", models.Member)
	fall := mustSeedPeriod(t, ctx, h, "Осень", true)
	versionID := mustSeedVersion(t, ctx, h)

	subject := models.MemberSubject(memberID)
	mustRecord(t, ctx, h, subject, 7, fall, versionID, adminID)

	if err := db.SnapshotPeriod(ctx, h.DB, fall); err != nil {
		t.Fatalf("снапшот: %v", err)
	}
	spring := mustSeedPeriod(t, ctx, h, "Весна", true)
	mustRecord(t, ctx, h, subject, 2, spring, versionID, adminID)

	// Вклад закрытого периода из итогов уже ушёл при перекате: его удаление
	// текущие итоги трогать не должно.
	if err := db.DeletePeriod(ctx, h.DB, fall); err != nil {
		t.Fatalf("удаление периода: %v", err)
	}

	total, _ := db.GetRunningTotal(ctx, h.DB, subject)
	if total != 2 {
		t.Fatalf("итог текущего периода сдвинулся: ожидали 2, получили %d", total)
	}
	if p, _ := db.GetPeriodByID(ctx, h.DB, fall); p != nil {
		t.Fatal("период должен быть удалён")
	}
	if score, _ := db.GetPeriodScore(ctx, h.DB, subject, fall); score != 0 {
		t.Fatalf("счета удалённого периода должны уйти каскадом, получили %d", score)
	}
}
