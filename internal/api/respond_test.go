package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/empjr/jrpoints/internal/db"
	"github.com/empjr/jrpoints/internal/points"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteErr_StatusMapping(t *testing.T) {
	h := &Handler{Log: zap.NewNop().Sugar()}

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"валидация", &points.ValidationError{Field: "name", Msg: "пусто"}, http.StatusBadRequest, ""},
		{"нет активного периода", &points.PreconditionError{Code: points.CodeNoActivePeriod, Msg: "нет"}, http.StatusConflict, points.CodeNoActivePeriod},
		{"не найдено", &points.PreconditionError{Code: points.CodeNotFound, Msg: "нет"}, http.StatusNotFound, points.CodeNotFound},
		{"снапшот уже снят", &points.PreconditionError{Code: points.CodeSnapshotExists, Msg: "уже"}, http.StatusConflict, points.CodeSnapshotExists},
		{"нет прав", &points.AuthorizationError{Msg: "недостаточно прав"}, http.StatusForbidden, ""},
		{"повтор идемпотентного ключа", db.ErrDuplicateIdempotencyKey, http.StatusConflict, points.CodeDuplicateRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeErr(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

// Ошибки авторизации наружу уходят без деталей о ресурсе.
func TestWriteErr_AuthorizationIsGeneric(t *testing.T) {
	h := &Handler{Log: zap.NewNop().Sugar()}
	rec := httptest.NewRecorder()
	h.writeErr(rec, &points.AuthorizationError{Msg: "недостаточно прав"})

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body.Error, "заявка")
	assert.NotContains(t, body.Error, "id")
}

func TestStatusFromQuery(t *testing.T) {
	for raw, want := range map[string]string{
		"":         "pending",
		"approved": "approved",
		"rejected": "rejected",
		"мусор":    "pending",
	} {
		r := httptest.NewRequest(http.MethodGet, "/api/requests?status="+raw, nil)
		assert.Equal(t, want, string(statusFromQuery(r)))
	}
}
