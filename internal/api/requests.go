package api

import (
	"net/http"

	"github.com/empjr/jrpoints/internal/models"
)

func statusFromQuery(r *http.Request) models.ReviewStatus {
	switch s := r.URL.Query().Get("status"); s {
	case "approved":
		return models.StatusApproved
	case "rejected":
		return models.StatusRejected
	default:
		return models.StatusPending
	}
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	items, err := h.Points.ListRequests(r.Context(), principal(r), statusFromQuery(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req requestReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	created, err := h.Points.CreateRequest(r.Context(), principal(r), req.input())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	item, err := h.Points.GetRequest(r.Context(), principal(r), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	var req requestReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	updated, err := h.Points.EditRequest(r.Context(), principal(r), id, req.input())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	if err := h.Points.DeleteRequest(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	var req reviewReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := h.claimIdempotency(r, "requests.approve"); err != nil {
		h.writeErr(w, err)
		return
	}
	entries, err := h.Points.ApproveRequest(r.Context(), principal(r), id, req.Notes)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "некорректный id"})
		return
	}
	var req reviewReq
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := h.Points.RejectRequest(r.Context(), principal(r), id, req.Notes); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
