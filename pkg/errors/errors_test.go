package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := ErrInternalServer.WithInternal(inner)

	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "boom")
}

func TestFromErrorPreservesAppError(t *testing.T) {
	wrapped := fmt.Errorf("migration: %w", ErrIntegrityRisk)

	appErr := FromError(wrapped)
	require.Equal(t, ErrIntegrityRisk.Code, appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.StatusCode)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("unexpected"))
	require.Equal(t, ErrInternalServer.Code, appErr.Code)
	require.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
}

func TestWithMessageDoesNotMutateSentinel(t *testing.T) {
	custom := ErrNotFound.WithMessage("no legacy identity for user@example.com")

	require.Equal(t, "no legacy identity for user@example.com", custom.Message)
	require.Equal(t, "Resource not found", ErrNotFound.Message)
	require.True(t, errors.Is(FromError(custom), custom))
}
