package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/metrics"
	"github.com/empjr/jrpoints/internal/observability"
	"github.com/empjr/jrpoints/internal/points"
	"github.com/go-chi/chi/v5"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr переводит доменную ошибку в HTTP-статус. Ошибки авторизации
// уходят без деталей, внутренние — в Sentry.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	var ve *points.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Msg, Field: ve.Field})
		return
	}
	var pe *points.PreconditionError
	if errors.As(err, &pe) {
		status := http.StatusConflict
		if pe.Code == points.CodeNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorBody{Error: pe.Msg, Code: pe.Code})
		return
	}
	var ae *points.AuthorizationError
	if errors.As(err, &ae) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: ae.Error()})
		return
	}
	if errors.Is(err, db.ErrDuplicateIdempotencyKey) {
		writeJSON(w, http.StatusConflict, errorBody{Error: "операция уже выполнена", Code: points.CodeDuplicateRequest})
		return
	}

	metrics.HandlerErrors.Inc()
	observability.CaptureErr(err)
	h.Log.Errorw("внутренняя ошибка обработчика", "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "внутренняя ошибка"})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
