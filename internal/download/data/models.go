package data

import (
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/database"
)

// DownloadCodePO 下载码数据库模型
type DownloadCodePO struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	Code           string     `gorm:"size:32;not null;uniqueIndex:idx_download_codes_code"`
	FileName       string     `gorm:"size:512;not null"`
	FileKey        string     `gorm:"size:1024;not null;index:idx_download_codes_file_key"`
	FileSize       int64      `gorm:"not null;default:0"`
	RecipientEmail *string    `gorm:"size:320;index:idx_download_codes_recipient"`
	Notes          *string    `gorm:"type:text"`
	CreatedBy      string     `gorm:"size:320;not null"`
	ExpiresAt      *time.Time `gorm:"index:idx_download_codes_expires_at"`
	MaxDownloads   int        `gorm:"not null;default:1;check:chk_download_codes_max_downloads,max_downloads >= 1"`
	DownloadCount  int        `gorm:"not null;default:0;check:chk_download_codes_download_count,download_count >= 0 AND download_count <= max_downloads"`
	IsUsed         bool       `gorm:"not null;default:false"`
	UsedAt         *time.Time
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DownloadCodePO) TableName() string {
	return "download_codes"
}

// DownloadLogPO 下载日志数据库模型
type DownloadLogPO struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement"`
	CodeID             *int64  `gorm:"index:idx_download_log_code_id"`
	CodeAttempted      string  `gorm:"size:64"`
	UserEmail          *string `gorm:"size:320;index:idx_download_log_user_email"`
	UserAgent          string  `gorm:"type:text"`
	IPAddress          string  `gorm:"size:64"`
	LocationData       string  `gorm:"type:jsonb"`
	Success            bool    `gorm:"not null;index:idx_download_log_success"`
	ErrorMessage       *string `gorm:"type:text"`
	FileSize           int64
	DownloadDurationMs *int64
	Timestamp          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_download_log_timestamp,sort:desc"`
}

func (DownloadLogPO) TableName() string {
	return "download_log"
}

// AdminLogPO 管理员操作日志数据库模型
type AdminLogPO struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	AdminEmail   string    `gorm:"size:320;not null;index:idx_admin_log_admin_email"`
	Action       string    `gorm:"size:64;not null;index:idx_admin_log_action"`
	IPAddress    string    `gorm:"size:64"`
	LocationData string    `gorm:"type:jsonb"`
	Success      bool      `gorm:"not null"`
	Details      *string   `gorm:"type:text"`
	Timestamp    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_admin_log_timestamp,sort:desc"`
}

func (AdminLogPO) TableName() string {
	return "admin_log"
}

// Models lists every table owned by the download module
func Models() []any {
	return []any{&DownloadCodePO{}, &DownloadLogPO{}, &AdminLogPO{}}
}

// Migrate creates or updates the download tables
func Migrate(db *database.DB, force bool) error {
	return db.AutoMigrate(force, Models()...)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toCodePO(c *biz.DownloadCode) *DownloadCodePO {
	return &DownloadCodePO{
		ID:             c.ID,
		Code:           c.Code,
		FileName:       c.FileName,
		FileKey:        c.FileKey,
		FileSize:       c.FileSize,
		RecipientEmail: nullable(c.RecipientEmail),
		Notes:          nullable(c.Notes),
		CreatedBy:      c.CreatedBy,
		ExpiresAt:      c.ExpiresAt,
		MaxDownloads:   c.MaxDownloads,
		DownloadCount:  c.DownloadCount,
		IsUsed:         c.IsUsed,
		UsedAt:         c.UsedAt,
		CreatedAt:      c.CreatedAt,
	}
}

func (po *DownloadCodePO) toBiz() *biz.DownloadCode {
	return &biz.DownloadCode{
		ID:             po.ID,
		Code:           po.Code,
		FileName:       po.FileName,
		FileKey:        po.FileKey,
		FileSize:       po.FileSize,
		RecipientEmail: deref(po.RecipientEmail),
		Notes:          deref(po.Notes),
		CreatedBy:      po.CreatedBy,
		ExpiresAt:      po.ExpiresAt,
		MaxDownloads:   po.MaxDownloads,
		DownloadCount:  po.DownloadCount,
		IsUsed:         po.IsUsed,
		UsedAt:         po.UsedAt,
		CreatedAt:      po.CreatedAt,
	}
}

func toDownloadLogPO(e *biz.DownloadLogEntry) *DownloadLogPO {
	return &DownloadLogPO{
		CodeID:             e.CodeID,
		CodeAttempted:      e.CodeAttempted,
		UserEmail:          nullable(e.UserEmail),
		UserAgent:          e.UserAgent,
		IPAddress:          e.IPAddress,
		LocationData:       e.Location.Encode(),
		Success:            e.Success,
		ErrorMessage:       nullable(e.ErrorMessage),
		FileSize:           e.FileSize,
		DownloadDurationMs: e.DurationMs,
		Timestamp:          e.Timestamp,
	}
}

func (po *DownloadLogPO) toBiz() *biz.DownloadLogEntry {
	return &biz.DownloadLogEntry{
		ID:            po.ID,
		CodeID:        po.CodeID,
		CodeAttempted: po.CodeAttempted,
		UserEmail:     deref(po.UserEmail),
		UserAgent:     po.UserAgent,
		IPAddress:     po.IPAddress,
		Location:      biz.DecodeLocation(po.LocationData),
		Success:       po.Success,
		ErrorMessage:  deref(po.ErrorMessage),
		FileSize:      po.FileSize,
		DurationMs:    po.DownloadDurationMs,
		Timestamp:     po.Timestamp,
	}
}

func toAdminLogPO(e *biz.AdminLogEntry) *AdminLogPO {
	return &AdminLogPO{
		AdminEmail:   e.AdminEmail,
		Action:       e.Action,
		IPAddress:    e.IPAddress,
		LocationData: e.Location.Encode(),
		Success:      e.Success,
		Details:      nullable(e.Details),
		Timestamp:    e.Timestamp,
	}
}

func (po *AdminLogPO) toBiz() *biz.AdminLogEntry {
	return &biz.AdminLogEntry{
		ID:         po.ID,
		AdminEmail: po.AdminEmail,
		Action:     po.Action,
		IPAddress:  po.IPAddress,
		Location:   biz.DecodeLocation(po.LocationData),
		Success:    po.Success,
		Details:    deref(po.Details),
		Timestamp:  po.Timestamp,
	}
}
