package api

import (
	"net/http"
	"strconv"

	"github.com/empjr/jrpoints/internal/ctxutil"
	dbpkg "github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/models"
)

// authenticate — доверенный заголовок от шлюза: X-Member-ID.
// Сам сервис личности не проверяет, только роль из реестра участников.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Member-ID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "не указан участник"})
			return
		}
		m, err := dbpkg.GetMemberByID(r.Context(), h.DB, id)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		if m == nil || !m.IsActive {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "участник не найден"})
			return
		}
		ctx := ctxutil.WithPrincipal(r.Context(), models.Principal{ID: m.ID, Role: m.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.APIRequests.Inc()
		next.ServeHTTP(w, r)
	})
}

func principal(r *http.Request) models.Principal {
	p, _ := ctxutil.Principal(r.Context())
	return p
}
