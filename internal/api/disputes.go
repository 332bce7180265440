package api

import (
	"net/http"

	"github.com/empjr/jrpoints/internal/models"
	"github.com/empjr/jrpoints/internal/points"
)

func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	items, err := h.Points.ListDisputes(r.Context(), principal(r), statusFromQuery(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateDispute(w http.ResponseWriter, r *http.Request) {
	var req createDisputeReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	created, err := h.Points.CreateDispute(r.Context(), principal(r), points.DisputeInput{
		EntryID:              req.EntryID,
		Description:          req.Description,
		CorrectedValue:       req.CorrectedValue,
		CorrectedDescription: req.CorrectedDescription,
		Attachments:          attachments(req.Attachments),
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ReviewDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	var req reviewDisputeReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := h.claimIdempotency(r, "disputes.review"); err != nil {
		h.writeErr(w, err)
		return
	}
	err = h.Points.ReviewDispute(r.Context(), principal(r), id, points.DisputeReview{
		Decision:             models.ReviewStatus(req.Decision),
		Notes:                req.Notes,
		CorrectedValue:       req.CorrectedValue,
		CorrectedDescription: req.CorrectedDescription,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
