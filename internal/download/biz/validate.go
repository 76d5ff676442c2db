package biz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
)

// Failure details written to the download log
const (
	logCodeRequired  = "Download code is required"
	logInvalidCode   = "Invalid download code"
	logAlreadyUsed   = "Code already used"
	logExpired       = "Code expired"
	logLimitExceeded = "Download limit exceeded"
	logNotRedeemed   = "Download code not found or not used"
	logFileMissing   = "File not found in storage"
	logStorageError  = "File storage error"
	logDatabaseError = "Database error"
)

func forbiddenDetail(recipient string) string {
	return fmt.Sprintf("Unauthorized user attempted download (intended for %s)", recipient)
}

// ValidateResult is returned for a redeemed code. ID is the redemption reference for Fetch.
type ValidateResult struct {
	ID       int64
	FileName string
	FileSize int64
}

// Validate redeems code for caller. Every call writes exactly one download log entry.
func (uc *DownloadUseCase) Validate(ctx context.Context, caller identity.Caller, code string) (*ValidateResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	attempt := uc.newAttempt(caller, code)

	if code == "" {
		uc.fail(ctx, attempt, logCodeRequired)
		return nil, ErrCodeRequired
	}

	dc, err := uc.codes.GetByCode(ctx, code)
	switch {
	case errors.Is(err, ErrInvalidCode):
		uc.fail(ctx, attempt, logInvalidCode)
		return nil, ErrInvalidCode
	case err != nil:
		uc.fail(ctx, attempt, logDatabaseError)
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	attempt.CodeID = &dc.ID
	attempt.FileSize = dc.FileSize
	now := uc.now()

	switch dc.Status(now) {
	case StatusRedeemed:
		uc.fail(ctx, attempt, logAlreadyUsed)
		return nil, ErrAlreadyUsed
	case StatusExpired:
		uc.fail(ctx, attempt, logExpired)
		return nil, ErrExpired
	case StatusExhausted:
		uc.fail(ctx, attempt, logLimitExceeded)
		return nil, ErrLimitExceeded
	}

	if !dc.AssignedTo(caller.Email) {
		uc.fail(ctx, attempt, forbiddenDetail(dc.RecipientEmail))
		return nil, ErrForbidden
	}

	redeemed, err := uc.codes.MarkRedeemed(ctx, dc.ID, now)
	if err != nil {
		uc.fail(ctx, attempt, logDatabaseError)
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}
	if !redeemed {
		// a concurrent request redeemed it between the read and the update
		uc.fail(ctx, attempt, logAlreadyUsed)
		return nil, ErrAlreadyUsed
	}

	attempt.Success = true
	uc.audit.RecordDownload(ctx, attempt)

	return &ValidateResult{ID: dc.ID, FileName: dc.FileName, FileSize: dc.FileSize}, nil
}

// FetchResult is an open stream over a redeemed file. The caller must close Body.
type FetchResult struct {
	Code        *DownloadCode
	Body        io.ReadCloser
	Size        int64
	ContentType string
	Duration    time.Duration
}

// Fetch opens the file behind a redeemed code for streaming
func (uc *DownloadUseCase) Fetch(ctx context.Context, caller identity.Caller, id int64) (*FetchResult, error) {
	start := uc.now()
	dc, attempt, err := uc.redeemedFor(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	body, obj, err := uc.objects.Get(ctx, dc.FileKey)
	if err != nil {
		ms := uc.since(start)
		attempt.DurationMs = &ms
		if errors.Is(err, ErrFileNotFound) {
			uc.fail(ctx, attempt, logFileMissing)
			return nil, ErrFileNotFound
		}
		uc.fail(ctx, attempt, logStorageError)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	ms := uc.since(start)
	attempt.DurationMs = &ms
	attempt.FileSize = obj.Size
	attempt.Success = true
	uc.audit.RecordDownload(ctx, attempt)

	return &FetchResult{
		Code:        dc,
		Body:        body,
		Size:        obj.Size,
		ContentType: ContentTypeFor(dc.FileName),
		Duration:    time.Duration(ms) * time.Millisecond,
	}, nil
}

// PresignResult is a time-limited direct download link
type PresignResult struct {
	URL       string
	FileName  string
	FileSize  int64
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

// Presign returns a pre-signed GET URL for the file behind a redeemed code
func (uc *DownloadUseCase) Presign(ctx context.Context, caller identity.Caller, id int64) (*PresignResult, error) {
	dc, attempt, err := uc.redeemedFor(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	ttl := uc.cfg.PresignTTL
	url, err := uc.objects.PresignGet(ctx, dc.FileKey, ttl, dc.FileName)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			uc.fail(ctx, attempt, logFileMissing)
			return nil, ErrFileNotFound
		}
		uc.fail(ctx, attempt, logStorageError)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	attempt.Success = true
	uc.audit.RecordDownload(ctx, attempt)

	return &PresignResult{
		URL:       url,
		FileName:  dc.FileName,
		FileSize:  dc.FileSize,
		ExpiresIn: ttl,
		ExpiresAt: uc.now().Add(ttl),
	}, nil
}

// redeemedFor loads a redeemed code and checks it belongs to caller.
// Failures are logged before returning.
func (uc *DownloadUseCase) redeemedFor(ctx context.Context, caller identity.Caller, id int64) (*DownloadCode, *DownloadLogEntry, error) {
	attempt := uc.newAttempt(caller, strconv.FormatInt(id, 10))

	dc, err := uc.codes.GetByID(ctx, id)
	switch {
	case errors.Is(err, ErrInvalidCode):
		uc.fail(ctx, attempt, logNotRedeemed)
		return nil, nil, ErrNotRedeemed
	case err != nil:
		uc.fail(ctx, attempt, logDatabaseError)
		return nil, nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	attempt.CodeID = &dc.ID
	attempt.CodeAttempted = dc.Code
	attempt.FileSize = dc.FileSize

	if !dc.IsUsed {
		uc.fail(ctx, attempt, logNotRedeemed)
		return nil, nil, ErrNotRedeemed
	}
	if !dc.AssignedTo(caller.Email) {
		uc.fail(ctx, attempt, forbiddenDetail(dc.RecipientEmail))
		return nil, nil, ErrForbidden
	}
	return dc, attempt, nil
}

func (uc *DownloadUseCase) newAttempt(caller identity.Caller, code string) *DownloadLogEntry {
	return &DownloadLogEntry{
		CodeAttempted: code,
		UserEmail:     caller.Email,
		UserAgent:     caller.UserAgent,
		IPAddress:     ipOf(caller),
		Location:      NewLocationData(caller.Location),
	}
}

func (uc *DownloadUseCase) fail(ctx context.Context, attempt *DownloadLogEntry, detail string) {
	attempt.Success = false
	attempt.ErrorMessage = detail
	uc.audit.RecordDownload(ctx, attempt)
}

func (uc *DownloadUseCase) since(start time.Time) int64 {
	return uc.now().Sub(start).Milliseconds()
}

var contentTypes = map[string]string{
	"zip":  "application/zip",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"json": "application/json",
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ContentTypeFor maps a file name extension to the served content type
func ContentTypeFor(fileName string) string {
	i := strings.LastIndexByte(fileName, '.')
	if i < 0 {
		return defaultContentType
	}
	if ct, ok := contentTypes[strings.ToLower(fileName[i+1:])]; ok {
		return ct
	}
	return defaultContentType
}
