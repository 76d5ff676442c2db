package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status, message and a stable reason
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Reason  string // Machine-readable reason, stable across releases
	Message string // Error message
}

const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrTooManyRequests = 1006
	ErrServiceUnavail  = 1008

	// Download code errors (6000-6099)
	ErrDownloadCodeRequired  = 6000
	ErrDownloadInvalidCode   = 6001
	ErrDownloadAlreadyUsed   = 6002
	ErrDownloadExpired       = 6003
	ErrDownloadLimitExceeded = 6004
	ErrDownloadForbidden     = 6005
	ErrDownloadNotRedeemed   = 6006

	// File and storage errors (6100-6199)
	ErrFileNotFound        = 6100
	ErrFileTooLarge        = 6101
	ErrStorageUnavailable  = 6102
	ErrDatabaseUnavailable = 6103

	// Admin errors (6200-6299)
	ErrAdminRequired  = 6200
	ErrLogNotFound    = 6201
	ErrRecipientEmail = 6202
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "ok", "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "internal", "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "invalid_input", "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "not_found", "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "unauthenticated", "Authentication required"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "forbidden", "Forbidden"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "rate_limited", "Too many requests"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "unavailable", "Service unavailable"},

	ErrDownloadCodeRequired:  {ErrDownloadCodeRequired, http.StatusBadRequest, "invalid_input", "Download code is required"},
	ErrDownloadInvalidCode:   {ErrDownloadInvalidCode, http.StatusNotFound, "invalid_code", "Invalid download code"},
	ErrDownloadAlreadyUsed:   {ErrDownloadAlreadyUsed, http.StatusGone, "already_used", "Download code has already been used"},
	ErrDownloadExpired:       {ErrDownloadExpired, http.StatusGone, "expired", "Download code has expired"},
	ErrDownloadLimitExceeded: {ErrDownloadLimitExceeded, http.StatusTooManyRequests, "limit_exceeded", "Download limit exceeded"},
	ErrDownloadForbidden:     {ErrDownloadForbidden, http.StatusForbidden, "forbidden", "This download code is not assigned to you"},
	ErrDownloadNotRedeemed:   {ErrDownloadNotRedeemed, http.StatusNotFound, "not_redeemed", "Download code not found or not used"},

	ErrFileNotFound:        {ErrFileNotFound, http.StatusNotFound, "file_not_found", "File not found in storage"},
	ErrFileTooLarge:        {ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large", "File size exceeds limit"},
	ErrStorageUnavailable:  {ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable", "File storage not available"},
	ErrDatabaseUnavailable: {ErrDatabaseUnavailable, http.StatusServiceUnavailable, "database_unavailable", "Database not available"},

	ErrAdminRequired:  {ErrAdminRequired, http.StatusForbidden, "unauthorized", "Access denied. Admin privileges required."},
	ErrLogNotFound:    {ErrLogNotFound, http.StatusNotFound, "not_found", "Log entry not found"},
	ErrRecipientEmail: {ErrRecipientEmail, http.StatusBadRequest, "invalid_input", "Invalid recipient email"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// GetReason returns the machine-readable reason for a given error code
func GetReason(code int) string {
	return GetCode(code).Reason
}

// IsServerError checks if the code represents a server error (5xx)
func IsServerError(code int) bool {
	return GetHTTPStatus(code) >= 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
