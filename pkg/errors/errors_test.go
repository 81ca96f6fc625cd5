package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatusClassification(t *testing.T) {
	assert.True(t, IsAuth(FromStatus(http.StatusUnauthorized, "")))
	assert.True(t, IsAuth(FromStatus(http.StatusForbidden, "not yours")))

	err := FromStatus(http.StatusNotFound, "no such kiosk")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusNotFound, de.Status)
	assert.Equal(t, "no such kiosk", de.Message)

	err = FromStatus(http.StatusBadRequest, "")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Bad Request", de.Message)

	err = FromStatus(http.StatusInternalServerError, "boom")
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Message, "server error (500)")
}

func TestFromStatusRewritesQuotaFailures(t *testing.T) {
	cases := []struct {
		status  int
		message string
	}{
		{http.StatusTooManyRequests, ""},
		{http.StatusBadRequest, "RESOURCE_EXHAUSTED: generation limit hit"},
		{http.StatusInternalServerError, "provider said: Quota exceeded for project"},
		{http.StatusBadGateway, "upstream rate limit reached"},
	}
	for _, tc := range cases {
		err := FromStatus(tc.status, tc.message)
		require.True(t, IsQuota(err), "status %d message %q, got %v", tc.status, tc.message, err)

		var qe *QuotaError
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, tc.message, qe.Raw, "raw provider text is preserved")
		assert.NotContains(t, qe.Message, tc.message, "user-facing text is the rewrite, not the raw error")
	}

	// Ordinary errors must not be misclassified.
	assert.False(t, IsQuota(FromStatus(http.StatusBadRequest, "invalid state value")))
}

func TestNetworkErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := &NetworkError{Err: cause}
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "server unreachable")

	wrapped := fmt.Errorf("failed to list kiosks: %w", err)
	assert.True(t, IsNetwork(wrapped))
}

func TestSessionExpiredIsAuth(t *testing.T) {
	assert.True(t, IsAuth(ErrSessionExpired))
	wrapped := fmt.Errorf("sync pass: %w", ErrSessionExpired)
	assert.True(t, IsAuth(wrapped))
}

func TestForbiddenOperation(t *testing.T) {
	err := NewForbiddenOperation("menu videos are removed by editing the menu")
	assert.True(t, IsForbiddenOperation(err))
	assert.False(t, IsAuth(err))
	assert.False(t, IsForbiddenOperation(fmt.Errorf("plain")))
}
