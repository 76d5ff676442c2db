package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/validator"
	"go.uber.org/zap"
)

// DefaultPresignTTL is how long a pre-signed download URL stays valid
const DefaultPresignTTL = time.Hour

// Config holds the tunables of the download-code workflow
type Config struct {
	CodeLength       int
	CollisionRetries int
	PresignTTL       time.Duration
	MaxUploadBytes   int64
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		CodeLength:       DefaultCodeLength,
		CollisionRetries: 5,
		PresignTTL:       DefaultPresignTTL,
		MaxUploadBytes:   500 << 20,
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.CodeLength <= 0 {
		c.CodeLength = d.CodeLength
	}
	if c.CollisionRetries <= 0 {
		c.CollisionRetries = d.CollisionRetries
	}
	if c.PresignTTL <= 0 {
		c.PresignTTL = d.PresignTTL
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
}

// CodeSource generates candidate download codes
type CodeSource interface {
	Generate() (string, error)
}

// Option customizes a DownloadUseCase
type Option func(*DownloadUseCase)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(uc *DownloadUseCase) {
		uc.now = now
		uc.audit.now = now
	}
}

// WithCodeSource replaces the code generator
func WithCodeSource(src CodeSource) Option {
	return func(uc *DownloadUseCase) {
		uc.gen = src
	}
}

// DownloadUseCase issues, validates and serves download codes
type DownloadUseCase struct {
	codes     CodeRepo
	logs      DownloadLogRepo
	adminLogs AdminLogRepo
	objects   ObjectStore
	notifier  Notifier
	audit     *AuditLogger
	gen       CodeSource
	cfg       Config
	logger    *logger.Logger
	now       func() time.Time
}

// NewDownloadUseCase 创建下载码用例。notifier 可以为 nil
func NewDownloadUseCase(
	codes CodeRepo,
	logs DownloadLogRepo,
	adminLogs AdminLogRepo,
	objects ObjectStore,
	notifier Notifier,
	cfg Config,
	log *logger.Logger,
	opts ...Option,
) *DownloadUseCase {
	cfg.setDefaults()
	uc := &DownloadUseCase{
		codes:     codes,
		logs:      logs,
		adminLogs: adminLogs,
		objects:   objects,
		notifier:  notifier,
		audit:     NewAuditLogger(logs, adminLogs, log),
		gen:       NewCodeGenerator(cfg.CodeLength),
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Config returns the effective configuration
func (uc *DownloadUseCase) Config() Config {
	return uc.cfg
}

// IssueRequest asks for a code on an object already in the store
type IssueRequest struct {
	FileKey        string
	RecipientEmail string
	Notes          string
}

// IssueResult describes an issued code
type IssueResult struct {
	ID        int64
	Code      string
	FileName  string
	FileSize  int64
	Recipient string
}

// Issue creates a one-time code for an existing stored object
func (uc *DownloadUseCase) Issue(ctx context.Context, caller identity.Caller, req IssueRequest) (*IssueResult, error) {
	if !caller.IsAdmin {
		uc.audit.RecordAdmin(ctx, caller, ActionUnauthorizedGeneration, false,
			"Non-admin user attempted to generate code for existing file")
		return nil, ErrAdminRequired
	}

	res, err := uc.issueExisting(ctx, caller, req)
	if err != nil {
		uc.audit.RecordAdmin(ctx, caller, ActionGenerateCodeError, false, err.Error())
		return nil, err
	}

	uc.audit.RecordAdmin(ctx, caller, ActionGenerateCode, true,
		fmt.Sprintf("Generated code %s for existing file %s (%s)", res.Code, res.FileName, recipientLabel(res.Recipient)))
	uc.notify(ctx, caller, res, req.Notes)
	return res, nil
}

func (uc *DownloadUseCase) issueExisting(ctx context.Context, caller identity.Caller, req IssueRequest) (*IssueResult, error) {
	fileKey := strings.TrimSpace(req.FileKey)
	if fileKey == "" {
		return nil, fmt.Errorf("%w: file key is required", ErrInvalidInput)
	}
	recipient, err := normalizeRecipient(req.RecipientEmail)
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

	code := &DownloadCode{
		FileName:       FileNameFromKey(fileKey),
		FileKey:        fileKey,
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

// head confirms key exists in the store
func (uc *DownloadUseCase) head(ctx context.Context, key string) (StoredObject, error) {
	obj, err := uc.objects.Head(ctx, key)
	switch {
	case errors.Is(err, ErrFileNotFound):
		return StoredObject{}, err
	case err != nil:
		return StoredObject{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return obj, nil
}

// persist stores code under a fresh value, retrying when the value is taken
func (uc *DownloadUseCase) persist(ctx context.Context, code *DownloadCode) error {
	code.MaxDownloads = 1
	code.DownloadCount = 0
	code.IsUsed = false
	code.ExpiresAt = nil
	code.CreatedAt = uc.now()

	for attempt := 1; attempt <= uc.cfg.CollisionRetries; attempt++ {
		value, err := uc.gen.Generate()
		if err != nil {
			return fmt.Errorf("generate download code: %w", err)
		}
		code.Code = value

		err = uc.codes.Create(ctx, code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrCodeCollision) {
			return fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
		}
		uc.logger.WithContext(ctx).Warn("download code collision, regenerating",
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("%w: no unique code after %d attempts", ErrCodeCollision, uc.cfg.CollisionRetries)
}

// notify sends the recipient notice without affecting the issuance
func (uc *DownloadUseCase) notify(ctx context.Context, caller identity.Caller, res *IssueResult, notes string) {
	if uc.notifier == nil || res.Recipient == "" {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()

	err := uc.notifier.NotifyCodeIssued(ctx, CodeNotification{
		Recipient: res.Recipient,
		Code:      res.Code,
		FileName:  res.FileName,
		FileSize:  res.FileSize,
		IssuedBy:  caller.Email,
		Notes:     notes,
	})
	if err != nil {
		uc.logger.WithContext(ctx).Warn("failed to notify recipient",
			zap.Error(err),
			zap.String("recipient", res.Recipient),
			zap.Int64("code_id", res.ID),
		)
	}
}

// MaxNotesLength bounds the free-text description stored with a code
const MaxNotesLength = 2000

func normalizeNotes(raw string) (string, error) {
	notes := strings.TrimSpace(raw)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return "", fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxNotesLength)
	}
	return notes, nil
}

func normalizeRecipient(raw string) (string, error) {
	email := validator.NormalizeEmail(raw)
	if email == "" {
		return "", nil
	}
	if !validator.IsValidEmail(email) {
		return "", fmt.Errorf("%w: %q", ErrRecipientEmail, strings.TrimSpace(raw))
	}
	return email, nil
}

func recipientLabel(recipient string) string {
	if recipient == "" {
		return "any recipient"
	}
	return recipient
}

func resultOf(code *DownloadCode) *IssueResult {
	return &IssueResult{
		ID:        code.ID,
		Code:      code.Code,
		FileName:  code.FileName,
		FileSize:  code.FileSize,
		Recipient: code.RecipientEmail,
	}
}

// FileNameFromKey returns the last path segment of an object key
func FileNameFromKey(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 && i < len(key)-1 {
		return key[i+1:]
	}
	return key
}
