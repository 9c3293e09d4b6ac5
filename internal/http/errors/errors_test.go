package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrValidation.WithDetail("Validation failed: Email is required"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "VALIDATION_FAILED", body["code"])
	require.Equal(t, "Validation failed: Email is required", body["detail"])
}

func TestWriteError_GenericIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("db exploded"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "db exploded")
}

func TestFromError_FindsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", ErrUserNotFound)
	require.Same(t, ErrUserNotFound, FromError(wrapped))
}

func TestWithDetail_DoesNotMutatePredefined(t *testing.T) {
	_ = ErrBadRequest.WithDetail("x").WithCause(fmt.Errorf("y"))
	require.Empty(t, ErrBadRequest.Detail)
	require.Nil(t, ErrBadRequest.Err)
}
