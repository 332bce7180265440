package api

import (
	"net/http"
	"time"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/points"
)

func (h *Handler) ListRuleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := db.ListRuleVersions(r.Context(), h.DB)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *Handler) CreateRuleVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	v, err := h.Points.CreateRuleVersion(r.Context(), principal(r), models.RuleVersion{
		Name:               req.Name,
		Description:        req.Description,
		ImplementationDate: req.ImplementationDate,
		EndDate:            req.EndDate,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) ActivateRuleVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.Points.ActivateRuleVersion(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteRuleVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.Points.DeleteRuleVersion(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	rules, err := db.ListRules(r.Context(), h.DB, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rule, err := h.Points.CreateRule(r.Context(), principal(r), req.model())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	rule, err := db.GetRuleByID(r.Context(), h.DB, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if rule == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "правило не найдено", Code: points.CodeNotFound})
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	var req createRuleReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rule := req.model()
	rule.ID = id
	if err := h.Points.UpdateRule(r.Context(), principal(r), rule); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.Points.DeleteRule(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewRule — «сколько выйдет за это правило сегодня» без записи в леджер.
func (h *Handler) PreviewRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	subject, err := subjectFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	performedOn := time.Now()
	if raw := r.URL.Query().Get("performed_on"); raw != "" {
		performedOn, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректная дата", Field: "performed_on"})
			return
		}
	}
	value, err := h.Points.Preview(r.Context(), id, subject, performedOn)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"value": value})
}
