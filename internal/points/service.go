package points

import (
	"context"
	"database/sql"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/notify"
	"github.com/empjr/jrpoints/internal/storage"
	"go.uber.org/zap"
)

// Service — ядро начисления баллов: каталог правил, леджер, заявки,
// апелляции и перекат периодов. Хранилище вложений и сток уведомлений —
// внешние коллабораторы за узкими интерфейсами.
type Service struct {
	DB       *sql.DB
	Store    storage.Store
	Notifier notify.Notifier
	Log      *zap.SugaredLogger
}

func NewService(database *sql.DB, store storage.Store, notifier notify.Notifier, log *zap.SugaredLogger) *Service {
	return &Service{DB: database, Store: store, Notifier: notifier, Log: log}
}

func (s *Service) activePeriod(ctx context.Context) (*models.Period, error) {
	p, err := db.GetActivePeriod(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, precondition(CodeNoActivePeriod, "нет активного периода")
	}
	return p, nil
}

func (s *Service) activeRuleVersion(ctx context.Context) (*models.RuleVersion, error) {
	v, err := db.GetActiveRuleVersion(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, precondition(CodeNoActiveRuleVersion, "нет активной версии правил")
	}
	return v, nil
}

// recipients разворачивает субъектов в список участников для уведомления:
// баллы организации касаются всех активных участников.
func (s *Service) recipients(ctx context.Context, subjects []models.Subject) []int64 {
	var ids []int64
	seen := map[int64]bool{}
	for _, sub := range subjects {
		if sub.IsOrg() {
			members, err := db.ListActiveMembers(ctx, s.DB)
			if err != nil {
				s.Log.Warnw("не удалось получить список участников для уведомления", "err", err)
				continue
			}
			for _, m := range members {
				if !seen[m.ID] {
					seen[m.ID] = true
					ids = append(ids, m.ID)
				}
			}
			continue
		}
		if !seen[sub.MemberID] {
			seen[sub.MemberID] = true
			ids = append(ids, sub.MemberID)
		}
	}
	return ids
}

func (s *Service) notify(ctx context.Context, subjects []models.Subject, message, link string) {
	if s.Notifier == nil {
		return
	}
	if ids := s.recipients(ctx, subjects); len(ids) > 0 {
		s.Notifier.Notify(ctx, ids, message, link)
	}
}
