package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/points"
	"github.com/empjr/jrpoints/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Server struct {
	srv *http.Server
}

// Handler держит зависимости всех обработчиков.
type Handler struct {
	DB     *sql.DB
	Points *points.Service
	Store  storage.Store
	Log    *zap.SugaredLogger
}

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Member-ID", "X-Idempotency-Key"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := h.DB.PingContext(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/rule-versions", func(r chi.Router) {
			r.Get("/", h.ListRuleVersions)
			r.Post("/", h.CreateRuleVersion)
			r.Post("/{id}/activate", h.ActivateRuleVersion)
			r.Delete("/{id}", h.DeleteRuleVersion)
			r.Get("/{id}/rules", h.ListRules)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Post("/", h.CreateRule)
			r.Get("/{id}", h.GetRule)
			r.Put("/{id}", h.UpdateRule)
			r.Delete("/{id}", h.DeleteRule)
			r.Get("/{id}/preview", h.PreviewRule)
		})

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Post("/", h.CreatePeriod)
			r.Post("/{id}/activate", h.ActivatePeriod)
			r.Delete("/{id}", h.DeletePeriod)
			r.Post("/{id}/snapshot", h.SnapshotPeriod)
			r.Delete("/{id}/snapshot", h.DeleteSnapshots)
			r.Get("/{id}/scores", h.ListPeriodScores)
			r.Get("/{id}/report", h.PeriodReport)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Post("/bulk-award", h.BulkAward)
			r.Delete("/{id}", h.DeleteEntry)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequest)
			r.Put("/{id}", h.EditRequest)
			r.Delete("/{id}", h.DeleteRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", h.ListDisputes)
			r.Post("/", h.CreateDispute)
			r.Post("/{id}/review", h.ReviewDispute)
		})

		r.Route("/scores", func(r chi.Router) {
			r.Get("/me", h.MyScores)
			r.Get("/org", h.OrgScores)
			r.Get("/leaderboard", h.Leaderboard)
		})

		r.Route("/members", func(r chi.Router) {
			r.Post("/", h.CreateMember)
			r.Get("/{id}/history", h.MemberHistory)
			r.Get("/me/notifications", h.MyNotifications)
		})

		r.Post("/attachments", h.UploadAttachment)
	})

	return r
}

// Start поднимает HTTP-сервер и гасит его при отмене контекста.
func Start(ctx context.Context, addr string, h *Handler) *Server {
	srv := &http.Server{Addr: addr, Handler: NewRouter(h)}

	go func() {
		_ = srv.ListenAndServe() // закрываем аккуратно при Shutdown
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &Server{srv: srv}
}
