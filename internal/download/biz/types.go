package biz

import (
	"context"
	"io"
	"strings"
	"time"
)

// CodeStatus is the lifecycle state of a download code. Active is the only
// state with outgoing transitions.
type CodeStatus string

const (
	StatusActive    CodeStatus = "active"
	StatusRedeemed  CodeStatus = "redeemed"
	StatusExpired   CodeStatus = "expired"
	StatusExhausted CodeStatus = "exhausted"
)

// DownloadCode is a one-time grant to download a stored object
type DownloadCode struct {
	ID             int64
	Code           string
	FileName       string
	FileKey        string
	FileSize       int64
	RecipientEmail string
	Notes          string
	CreatedBy      string
	ExpiresAt      *time.Time
	MaxDownloads   int
	DownloadCount  int
	IsUsed         bool
	UsedAt         *time.Time
	CreatedAt      time.Time
}

// Status evaluates the code at now, in validation order
func (c *DownloadCode) Status(now time.Time) CodeStatus {
	switch {
	case c.IsUsed:
		return StatusRedeemed
	case c.ExpiresAt != nil && now.After(*c.ExpiresAt):
		return StatusExpired
	case c.DownloadCount >= c.MaxDownloads:
		return StatusExhausted
	default:
		return StatusActive
	}
}

// AssignedTo reports whether email may use the code. Codes without a
// recipient are open to any caller.
func (c *DownloadCode) AssignedTo(email string) bool {
	return c.RecipientEmail == "" || strings.EqualFold(c.RecipientEmail, strings.TrimSpace(email))
}

// DownloadLogEntry records one validation or fetch attempt
type DownloadLogEntry struct {
	ID            int64
	CodeID        *int64
	CodeAttempted string
	UserEmail     string
	UserAgent     string
	IPAddress     string
	Location      LocationData
	Success       bool
	ErrorMessage  string
	FileSize      int64
	DurationMs    *int64
	Timestamp     time.Time
}

// DownloadLogView is a log entry joined with the code it refers to
type DownloadLogView struct {
	ID           int64
	Timestamp    time.Time
	UserEmail    string
	Success      bool
	ErrorMessage string
	LocationRaw  string
	IPAddress    string
	FileName     string
	Code         string
	FileSize     int64
}

// AdminLogEntry records one administrative action
type AdminLogEntry struct {
	ID         int64
	AdminEmail string
	Action     string
	IPAddress  string
	Location   LocationData
	Success    bool
	Details    string
	Timestamp  time.Time
}

// LogFilter selects a page of download log entries
type LogFilter struct {
	Limit       int
	Offset      int
	SuccessOnly bool
}

// LogStats summarizes the whole download log
type LogStats struct {
	TotalAttempts       int64
	SuccessfulDownloads int64
	FailedAttempts      int64
	UniqueUsers         int64
	LastActivity        *time.Time
}

// SuccessRate is the rounded percentage of successful attempts
func (s LogStats) SuccessRate() int {
	if s.TotalAttempts == 0 {
		return 0
	}
	return int((s.SuccessfulDownloads*100 + s.TotalAttempts/2) / s.TotalAttempts)
}

// StoredObject describes an object in the blob store
type StoredObject struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// CodeRepo persists download codes. Codes are never deleted.
type CodeRepo interface {
	// Create inserts code and fills its ID. A duplicate code value returns ErrCodeCollision.
	Create(ctx context.Context, code *DownloadCode) error
	// CreateBatch inserts codes in chunks and reports the codes that failed
	CreateBatch(ctx context.Context, codes []*DownloadCode) (inserted int, failed []BatchFailure, err error)
	// GetByCode and GetByID return ErrInvalidCode when no row matches
	GetByCode(ctx context.Context, code string) (*DownloadCode, error)
	GetByID(ctx context.Context, id int64) (*DownloadCode, error)
	// MarkRedeemed flips the code to used only while it is still active at now.
	// It returns false when another request got there first.
	MarkRedeemed(ctx context.Context, id int64, now time.Time) (bool, error)
}

// BatchFailure reports a chunk of codes that could not be written
type BatchFailure struct {
	Codes []string
	Err   error
}

// DownloadLogRepo persists download attempts. Delete is reserved to administrators.
type DownloadLogRepo interface {
	Append(ctx context.Context, entry *DownloadLogEntry) error
	List(ctx context.Context, filter LogFilter) ([]*DownloadLogView, int64, error)
	Stats(ctx context.Context) (LogStats, error)
	// Get and Delete return ErrLogNotFound when no row matches
	Get(ctx context.Context, id int64) (*DownloadLogEntry, error)
	Delete(ctx context.Context, id int64) error
}

// AdminLogRepo persists administrative actions. Append only.
type AdminLogRepo interface {
	Append(ctx context.Context, entry *AdminLogEntry) error
	List(ctx context.Context, limit, offset int) ([]*AdminLogEntry, int64, error)
}

// ObjectStore is the blob store holding distributed files
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (StoredObject, error)
	// Head returns ErrFileNotFound when key does not exist
	Head(ctx context.Context, key string) (StoredObject, error)
	// Get returns ErrFileNotFound when key does not exist
	Get(ctx context.Context, key string) (io.ReadCloser, StoredObject, error)
	List(ctx context.Context, prefix string) ([]StoredObject, error)
	// PresignGet returns ErrFileNotFound when key does not exist
	PresignGet(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error)
}

// Notifier tells a recipient that a code was issued for them
type Notifier interface {
	NotifyCodeIssued(ctx context.Context, n CodeNotification) error
}

// CodeNotification is the content of an issuance notice
type CodeNotification struct {
	Recipient string
	Code      string
	FileName  string
	FileSize  int64
	IssuedBy  string
	Notes     string
}
