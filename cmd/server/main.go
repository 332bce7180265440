package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/empjr/jrpoints/internal/api"
	"github.com/empjr/jrpoints/internal/config"
	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/jobs"
	"github.com/empjr/jrpoints/internal/logging"
	"github.com/empjr/jrpoints/internal/notify"
	"github.com/empjr/jrpoints/internal/observability"
	"github.com/empjr/jrpoints/internal/points"
	"github.com/empjr/jrpoints/internal/storage"
)

func main() {
	// Загрузка переменных окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer lg.Closer()
	sugar := lg.Sugar

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "jrpoints")
	if err != nil {
		sugar.Warnw("Sentry не инициализирован", "err", err)
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("Ошибка подключения к БД", "err", err)
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		sugar.Fatalw("Миграция не удалась", "err", err)
	}

	// Телеграм-пуши опциональны: без токена уведомления только пишутся в БД.
	var bot *tgbotapi.BotAPI
	if cfg.BotToken != "" {
		bot, err = tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			sugar.Warnw("Телеграм-бот не запустился, пуши отключены", "err", err)
			bot = nil
		} else {
			sugar.Infow("Телеграм-пуши включены", "bot", bot.Self.UserName)
		}
	}

	var store storage.Store = storage.Null{}
	if cfg.AttachmentsURL != "" {
		store = storage.NewClient(cfg.AttachmentsURL)
	}

	notifier := notify.NewService(database, bot, sugar)
	svc := points.NewService(database, store, notifier, sugar)

	api.Start(ctx, cfg.HTTPAddr, &api.Handler{
		DB:     database,
		Points: svc,
		Store:  store,
		Log:    sugar,
	})
	sugar.Infow("HTTP-сервер запущен", "addr", cfg.HTTPAddr)

	runner := jobs.New(ctx)
	runner.Every(5*time.Minute, "consistency", jobs.ConsistencyCheck(database, sugar))

	<-ctx.Done()
	sugar.Info("Завершение по сигналу")
}
