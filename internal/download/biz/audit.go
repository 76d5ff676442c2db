package biz

import (
	"context"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// Admin log actions
const (
	ActionUploadGenerateCode     = "upload_file_generate_code"
	ActionUnauthorizedUpload     = "unauthorized_upload_attempt"
	ActionUploadError            = "upload_file_error"
	ActionGenerateCode           = "generate_code_existing_file"
	ActionGenerateCodes          = "generate_codes_existing_file"
	ActionUnauthorizedGeneration = "unauthorized_code_generation_attempt"
	ActionGenerateCodeError      = "generate_code_error"
	ActionDeleteLog              = "delete_log_entry"
	ActionUnauthorizedDeletion   = "unauthorized_log_deletion_attempt"
	ActionDeleteLogError         = "delete_log_error"
)

const (
	auditWriteTimeout = 5 * time.Second
	unknownUser       = "unknown"
)

// AuditLogger writes download and admin log entries. Writes are best effort:
// a failed write is reported to the operator log and never to the caller.
type AuditLogger struct {
	downloads DownloadLogRepo
	admins    AdminLogRepo
	logger    *logger.Logger
	now       func() time.Time
}

// NewAuditLogger 创建审计日志记录器
func NewAuditLogger(downloads DownloadLogRepo, admins AdminLogRepo, log *logger.Logger) *AuditLogger {
	return &AuditLogger{
		downloads: downloads,
		admins:    admins,
		logger:    log,
		now:       time.Now,
	}
}

// RecordDownload 记录一次下载尝试
func (a *AuditLogger) RecordDownload(ctx context.Context, entry *DownloadLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = a.now()
	}
	ctx, cancel := detached(ctx)
	defer cancel()

	if err := a.downloads.Append(ctx, entry); err != nil {
		a.logger.WithContext(ctx).Error("failed to record download attempt",
			zap.Error(err),
			zap.String("code", entry.CodeAttempted),
			zap.Bool("success", entry.Success),
		)
	}
}

// RecordAdmin 记录一次管理员操作
func (a *AuditLogger) RecordAdmin(ctx context.Context, caller identity.Caller, action string, success bool, details string) {
	email := caller.Email
	if email == "" {
		email = unknownUser
	}
	entry := &AdminLogEntry{
		AdminEmail: email,
		Action:     action,
		IPAddress:  ipOf(caller),
		Location:   NewLocationData(caller.Location),
		Success:    success,
		Details:    details,
		Timestamp:  a.now(),
	}

	ctx, cancel := detached(ctx)
	defer cancel()

	if err := a.admins.Append(ctx, entry); err != nil {
		a.logger.WithContext(ctx).Error("failed to record admin action",
			zap.Error(err),
			zap.String("action", action),
			zap.String("admin_email", email),
		)
	}
}

// detached keeps request values but survives a client disconnect so the
// audit trail of a canceled request is still written
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
}

func ipOf(c identity.Caller) string {
	if c.Location.IP == "" {
		return identity.UnknownIP
	}
	return c.Location.IP
}
