package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageIncludesInternal(t *testing.T) {
	base := stderrors.New("connection refused")
	err := ErrInternalServer.WithInternal(base)

	require.Contains(t, err.Error(), "Internal server error")
	require.Contains(t, err.Error(), "connection refused")
	require.ErrorIs(t, err, base)
}

func TestWithInternalDoesNotMutateSentinel(t *testing.T) {
	base := stderrors.New("boom")
	_ = ErrNotFound.WithInternal(base)
	require.Nil(t, ErrNotFound.Internal)
}

func TestAsAppError(t *testing.T) {
	wrapped := Wrap(stderrors.New("db down"), "failed to store record")
	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	require.Equal(t, http.StatusInternalServerError, appErr.StatusCode)

	_, ok = AsAppError(stderrors.New("plain"))
	require.False(t, ok)
}

func TestWebhookSignatureSentinel(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, ErrWebhookSignature.StatusCode)
	require.Equal(t, "WEBHOOK_SIGNATURE_INVALID", ErrWebhookSignature.Code)
}
