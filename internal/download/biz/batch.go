package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
)

// MaxBatchRecipients bounds a single IssueBatch call
const MaxBatchRecipients = 500

// BatchIssueRequest asks for one code per recipient on the same object
type BatchIssueRequest struct {
	FileKey    string
	Recipients []string
	Notes      string
}

// BatchIssueResult reports the codes written and the recipients left without one
type BatchIssueResult struct {
	FileName string
	FileSize int64
	Issued   []*IssueResult
	Failed   []BatchIssueFailure
}

// BatchIssueFailure is a recipient whose code could not be stored
type BatchIssueFailure struct {
	Recipient string
	Error     string
}

// IssueBatch creates one code per recipient for an existing object.
// Codes are written in chunks; a failed chunk does not roll back the others.
func (uc *DownloadUseCase) IssueBatch(ctx context.Context, caller identity.Caller, req BatchIssueRequest) (*BatchIssueResult, error) {
	if !caller.IsAdmin {
		uc.audit.RecordAdmin(ctx, caller, ActionUnauthorizedGeneration, false,
			fmt.Sprintf("Non-admin user attempted to generate %d codes for existing file", len(req.Recipients)))
		return nil, ErrAdminRequired
	}

	res, err := uc.issueBatch(ctx, caller, req)
	if err != nil {
		uc.audit.RecordAdmin(ctx, caller, ActionGenerateCodeError, false, err.Error())
		return nil, err
	}

	uc.audit.RecordAdmin(ctx, caller, ActionGenerateCodes, len(res.Failed) == 0,
		fmt.Sprintf("Generated %d of %d codes for existing file %s",
			len(res.Issued), len(res.Issued)+len(res.Failed), res.FileName))
	for _, issued := range res.Issued {
		uc.notify(ctx, caller, issued, req.Notes)
	}
	return res, nil
}

func (uc *DownloadUseCase) issueBatch(ctx context.Context, caller identity.Caller, req BatchIssueRequest) (*BatchIssueResult, error) {
	fileKey := strings.TrimSpace(req.FileKey)
	if fileKey == "" {
		return nil, fmt.Errorf("%w: file key is required", ErrInvalidInput)
	}
	recipients, rejected, err := normalizeRecipients(req.Recipients)
	if err != nil {
		return nil, err
	}
	notes, err := normalizeNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	obj, err := uc.head(ctx, fileKey)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	fileName := FileNameFromKey(fileKey)
	seen := make(map[string]struct{}, len(recipients))
	codes := make([]*DownloadCode, 0, len(recipients))
	for _, recipient := range recipients {
		value, err := uc.uniqueInBatch(seen)
		if err != nil {
			return nil, err
		}
		codes = append(codes, &DownloadCode{
			Code:           value,
			FileName:       fileName,
			FileKey:        fileKey,
			FileSize:       obj.Size,
			RecipientEmail: recipient,
			Notes:          notes,
			CreatedBy:      caller.Email,
			MaxDownloads:   1,
			CreatedAt:      now,
		})
	}

	_, failures, err := uc.codes.CreateBatch(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	failedCodes := make(map[string]string)
	for _, f := range failures {
		for _, c := range f.Codes {
			failedCodes[c] = f.Err.Error()
		}
	}

	res := &BatchIssueResult{FileName: fileName, FileSize: obj.Size, Failed: rejected}
	for _, c := range codes {
		if msg, failed := failedCodes[c.Code]; failed {
			res.Failed = append(res.Failed, BatchIssueFailure{Recipient: c.RecipientEmail, Error: msg})
			continue
		}
		res.Issued = append(res.Issued, resultOf(c))
	}
	return res, nil
}

// uniqueInBatch draws a code not already used by this batch
func (uc *DownloadUseCase) uniqueInBatch(seen map[string]struct{}) (string, error) {
	for attempt := 0; attempt < uc.cfg.CollisionRetries; attempt++ {
		value, err := uc.gen.Generate()
		if err != nil {
			return "", fmt.Errorf("generate download code: %w", err)
		}
		if _, dup := seen[value]; !dup {
			seen[value] = struct{}{}
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: no unique code after %d attempts", ErrCodeCollision, uc.cfg.CollisionRetries)
}

// normalizeRecipients lowercases and de-duplicates the list. Malformed
// addresses are returned as failures; the batch fails only when none is usable.
func normalizeRecipients(raw []string) ([]string, []BatchIssueFailure, error) {
	out := make([]string, 0, len(raw))
	var rejected []BatchIssueFailure
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		email, err := normalizeRecipient(r)
		if err != nil {
			rejected = append(rejected, BatchIssueFailure{Recipient: strings.TrimSpace(r), Error: err.Error()})
			continue
		}
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}

	switch {
	case len(out)+len(rejected) > MaxBatchRecipients:
		return nil, nil, fmt.Errorf("%w: at most %d recipients per batch", ErrInvalidInput, MaxBatchRecipients)
	case len(out) == 0 && len(rejected) > 0:
		return nil, nil, fmt.Errorf("%w: no valid recipient: %s", ErrRecipientEmail, rejected[0].Error)
	case len(out) == 0:
		return nil, nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidInput)
	}
	return out, rejected, nil
}
