package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadCodes(t *testing.T) {
	tests := []struct {
		code   int
		status int
		reason string
	}{
		{ErrDownloadInvalidCode, http.StatusNotFound, "invalid_code"},
		{ErrDownloadAlreadyUsed, http.StatusGone, "already_used"},
		{ErrDownloadExpired, http.StatusGone, "expired"},
		{ErrDownloadLimitExceeded, http.StatusTooManyRequests, "limit_exceeded"},
		{ErrDownloadForbidden, http.StatusForbidden, "forbidden"},
		{ErrAdminRequired, http.StatusForbidden, "unauthorized"},
		{ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
		{ErrDatabaseUnavailable, http.StatusServiceUnavailable, "database_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := New(tt.code)
			assert.Equal(t, tt.status, err.HTTPStatus())
			assert.Equal(t, tt.reason, err.Reason())
		})
	}
}

func TestUnknownCodeFallsBackToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(99999))
	assert.Equal(t, "internal", GetReason(99999))
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := New(ErrDownloadExpired)
	wrapped := Wrap(fmt.Errorf("validate: %w", inner), ErrInternalServer)

	assert.Equal(t, ErrDownloadExpired, wrapped.Code)
	assert.True(t, Is(wrapped, ErrDownloadExpired))
	assert.Nil(t, Wrap(nil, ErrInternalServer))
}

func TestGetDetailsHidesCause(t *testing.T) {
	err := Wrap(errors.New("pq: password authentication failed"), ErrDatabaseUnavailable)

	assert.Empty(t, GetDetails(err))
	assert.Empty(t, GetDetails(errors.New("raw")))
	assert.Equal(t, "intended for a@x.com", GetDetails(New(ErrDownloadForbidden, "intended for a@x.com")))
	assert.Equal(t, ErrInternalServer, ExtractCode(errors.New("raw")))
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "Invalid download code", FormatError(ErrDownloadInvalidCode))
	assert.Equal(t, "Resource not found: file", FormatError(ErrNotFound, "file"))
}
