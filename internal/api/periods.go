package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/export"
)

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := db.ListPeriods(r.Context(), h.DB)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	p, err := h.Points.CreatePeriod(r.Context(), principal(r), req.Name, req.StartDate, req.EndDate)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ActivatePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.Points.ActivatePeriod(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.Points.DeletePeriod(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SnapshotPeriod закрывает период: счёт фиксируется, накопительные суммы
// обнуляются. Идемпотентный ключ защищает от двойного нажатия.
func (h *Handler) SnapshotPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.claimIdempotency(r, "period.snapshot"); err != nil {
		h.writeErr(w, err)
		return
	}
	if err := h.Points.Snapshot(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteSnapshots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	n, err := h.Points.DeleteSnapshots(r.Context(), principal(r), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) ListPeriodScores(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	scores, err := h.Points.PeriodScores(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// PeriodReport отдаёт книгу .xlsx со счётом периода.
func (h *Handler) PeriodReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if !principal(r).CanReview() {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "недостаточно прав"})
		return
	}
	period, err := db.GetPeriodByID(r.Context(), h.DB, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if period == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "период не найден"})
		return
	}
	wb, err := export.PeriodReport(r.Context(), h.DB, *period)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(export.BuildPeriodReportFilename(period.Name))))
	if err := wb.File.Write(w); err != nil {
		h.Log.Warnw("не удалось записать отчёт в ответ", "err", err)
	}
}
