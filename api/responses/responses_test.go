package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"order_id": "o-1"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"data":{"order_id":"o-1"}}`, w.Body.String())
}

func TestWriteErrorMessages(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    pkgerrors.Code
		message string
		details bool
	}{
		{
			name:    "validation keeps message and details",
			err:     pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(map[string]string{"field": "quantity"}),
			status:  http.StatusBadRequest,
			code:    pkgerrors.CodeValidation,
			message: "quantity must be positive",
			details: true,
		},
		{
			name:    "below minimum order",
			err:     pkgerrors.New(pkgerrors.CodeBelowMinimumOrder, "minimum order quantity is 50").WithDetails(map[string]any{"moq": 50}),
			status:  http.StatusUnprocessableEntity,
			code:    pkgerrors.CodeBelowMinimumOrder,
			message: "minimum order quantity is 50",
			details: true,
		},
		{
			name:    "empty message falls back",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, ""),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "resource not found",
		},
		{
			name:    "details dropped when the code hides them",
			err:     pkgerrors.New(pkgerrors.CodeConflict, "sku taken").WithDetails("sku"),
			status:  http.StatusConflict,
			code:    pkgerrors.CodeConflict,
			message: "sku taken",
		},
		{
			name:    "plain errors become internal",
			err:     errors.New("pq: relation does not exist"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:    "nil error",
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			require.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			require.Equal(t, string(tc.code), body.Code)
			require.Equal(t, tc.message, body.Message)
			require.Equal(t, tc.details, body.Details != nil)
		})
	}
}

func TestWriteErrorRetryableHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, errors.New("conn reset"), "save cart item")
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, retryAfterSeconds, w.Header().Get("Retry-After"))
	require.Equal(t, "storage unavailable", decodeError(t, w).Message)
}

func TestWriteErrorLogsBySeverity(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api", Level: zerolog.DebugLevel, Format: logger.FormatJSON, Output: buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeForbidden, "sellers only"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "request.rejected", entry["message"])
	require.EqualValues(t, http.StatusForbidden, entry["http_status"])

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "request.error", entry["message"])
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Zero(t, w.Body.Len())
}
