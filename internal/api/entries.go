package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/empjr/jrpoints/internal/ctxutil"
	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/points"
	"github.com/google/uuid"
)

// claimIdempotency регистрирует ключ из X-Idempotency-Key, если клиент его
// прислал. Повтор того же ключа — отказ до каких-либо записей в леджер.
func (h *Handler) claimIdempotency(r *http.Request, op string) error {
	raw := r.Header.Get("X-Idempotency-Key")
	if raw == "" {
		return nil
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return &points.ValidationError{Field: "X-Idempotency-Key", Msg: "ожидается UUID"}
	}
	return db.ClaimIdempotencyKey(r.Context(), h.DB, key, op)
}

func subjectFromQuery(r *http.Request) (models.Subject, error) {
	q := r.URL.Query()
	if q.Get("for_org") == "true" {
		return models.OrgSubject(), nil
	}
	if raw := q.Get("member_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return models.Subject{}, errors.New("некорректный member_id")
		}
		return models.MemberSubject(id), nil
	}
	p, ok := ctxutil.Principal(r.Context())
	if !ok {
		return models.Subject{}, errors.New("субъект не указан")
	}
	return models.MemberSubject(p.ID), nil
}

func (h *Handler) BulkAward(w http.ResponseWriter, r *http.Request) {
	var req bulkAwardReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := h.claimIdempotency(r, "entries.bulk-award"); err != nil {
		h.writeErr(w, err)
		return
	}
	entries, err := h.Points.BulkAward(r.Context(), principal(r), points.BulkAwardInput{
		RuleIDs:     req.RuleIDs,
		MemberIDs:   req.MemberIDs,
		ForOrg:      req.ForOrg,
		PerformedOn: req.PerformedOn,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entries)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.Points.DeleteEntry(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MyScores(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	scores, err := h.Points.Scores(r.Context(), models.MemberSubject(p.ID))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *Handler) OrgScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.Points.Scores(r.Context(), models.OrgSubject())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Points.Leaderboard(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (h *Handler) MemberHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	p := principal(r)
	if id != p.ID && !p.CanReview() {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "недостаточно прав"})
		return
	}
	entries, err := h.Points.History(r.Context(), models.MemberSubject(id))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	p := principal(r)
	items, err := db.ListNotificationsByMember(r.Context(), h.DB, p.ID, limit)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if !p.IsAdmin() {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "недостаточно прав"})
		return
	}
	var req createMemberReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	id, err := db.CreateMember(r.Context(), h.DB, models.OrgMember{
		Name:     req.Name,
		Email:    req.Email,
		Role:     models.Role(req.Role),
		ChatID:   req.ChatID,
		IsActive: true,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// UploadAttachment принимает файл multipart и кладёт его во внешнее
// хранилище; клиент дальше оперирует только ключом.
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "хранилище вложений не настроено"})
		return
	}
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "поле file обязательно"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	key, err := h.Store.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.writeErr(w, fmt.Errorf("загрузка вложения: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, attachmentDTO{Key: key, Name: header.Filename})
}
