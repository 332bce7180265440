package notify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/observability"
	"github.com/empjr/jrpoints/internal/tg"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier — сток уведомлений. Fire-and-forget: сбои доставки не должны
// ронять операцию, которая уведомление породила.
type Notifier interface {
	Notify(ctx context.Context, memberIDs []int64, message, link string)
}

// Service пишет запись о доставке в БД и, если настроен бот, дублирует
// сообщение в телеграм участникам с привязанным чатом.
type Service struct {
	DB  *sql.DB
	Bot *tgbotapi.BotAPI
	Log *zap.SugaredLogger
}

func NewService(database *sql.DB, bot *tgbotapi.BotAPI, log *zap.SugaredLogger) *Service {
	return &Service{DB: database, Bot: bot, Log: log}
}

func (s *Service) Notify(ctx context.Context, memberIDs []int64, message, link string) {
	for _, id := range memberIDs {
		nid, err := db.AddNotification(ctx, s.DB, models.Notification{MemberID: id, Message: message, Link: link})
		if err != nil {
			// Логируем и глотаем: леджер уже закоммичен, откатывать нечего.
			s.Log.Warnw("не удалось сохранить уведомление", "member_id", id, "err", err)
			observability.CaptureErr(err)
			continue
		}
		if s.Bot == nil {
			continue
		}
		m, err := db.GetMemberByID(ctx, s.DB, id)
		if err != nil || m == nil || m.ChatID == nil {
			continue
		}
		text := message
		if link != "" {
			text = fmt.Sprintf("%s\n%s", message, link)
		}
		if _, err := tg.Send(s.Bot, tgbotapi.NewMessage(*m.ChatID, text)); err != nil {
			s.Log.Warnw("не удалось отправить телеграм-уведомление", "member_id", id, "err", err)
			continue
		}
		_ = db.MarkNotificationSent(ctx, s.DB, nid)
	}
}
