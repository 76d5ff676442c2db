package biz

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/minio"
)

const defaultContentType = "application/octet-stream"

// UploadRequest carries a new file and the code to issue for it
type UploadRequest struct {
	Name           string
	Size           int64
	ContentType    string
	Body           io.Reader
	RecipientEmail string
	Notes          string
}

// Upload stores a new object and issues a code for it
func (uc *DownloadUseCase) Upload(ctx context.Context, caller identity.Caller, req UploadRequest) (*IssueResult, error) {
	if !caller.IsAdmin {
		uc.audit.RecordAdmin(ctx, caller, ActionUnauthorizedUpload, false, "Non-admin user attempted to upload")
		return nil, ErrAdminRequired
	}

	res, err := uc.upload(ctx, caller, req)
	if err != nil {
		uc.audit.RecordAdmin(ctx, caller, ActionUploadError, false, err.Error())
		return nil, err
	}

	uc.audit.RecordAdmin(ctx, caller, ActionUploadGenerateCode, true,
		fmt.Sprintf("Generated code %s for %s (%s)", res.Code, res.FileName, recipientLabel(res.Recipient)))
	uc.notify(ctx, caller, res, req.Notes)
	return res, nil
}

func (uc *DownloadUseCase) upload(ctx context.Context, caller identity.Caller, req UploadRequest) (*IssueResult, error) {
	if req.Size > uc.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, req.Size, uc.cfg.MaxUploadBytes)
	}
	name := minio.SanitizeObjectName(req.Name)
	if name == "" || req.Body == nil {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidInput)
	}
	recipient, err := normalizeRecipient(req.RecipientEmail)
	if err != nil {
		return nil, err
	}
	notes, err := normalizeNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	key := fmt.Sprintf("%d-%s-%s", uc.now().UnixMilli(), uuid.NewString(), name)
	obj, err := uc.objects.Put(ctx, key, req.Body, req.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	code := &DownloadCode{
		FileName:       name,
		FileKey:        key,
		FileSize:       obj.Size,
		RecipientEmail: recipient,
		Notes:          notes,
		CreatedBy:      caller.Email,
	}
	if err := uc.persist(ctx, code); err != nil {
		return nil, err
	}
	return resultOf(code), nil
}
