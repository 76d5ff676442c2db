package data

import (
	"errors"
	"testing"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodePO_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	code := &biz.DownloadCode{
		ID:             7,
		Code:           "AB12CD34",
		FileName:       "q1.pdf",
		FileKey:        "reports/q1.pdf",
		FileSize:       1024,
		RecipientEmail: "a@x.com",
		CreatedBy:      "admin@example.com",
		MaxDownloads:   1,
		CreatedAt:      now,
	}

	po := toCodePO(code)
	require.NotNil(t, po.RecipientEmail)
	assert.Equal(t, "a@x.com", *po.RecipientEmail)
	assert.Nil(t, po.Notes, "empty notes are stored as NULL")
	assert.Equal(t, code, po.toBiz())
}

func TestDownloadLogPO_RoundTrip(t *testing.T) {
	id := int64(3)
	ms := int64(42)
	entry := &biz.DownloadLogEntry{
		CodeID:        &id,
		CodeAttempted: "AB12CD34",
		UserEmail:     "a@x.com",
		IPAddress:     "198.51.100.1",
		Location:      biz.LocationData{Country: "US", City: "Austin", Region: "Texas", LocationString: "Austin, Texas, US"},
		FileSize:      1024,
		DurationMs:    &ms,
		ErrorMessage:  "Code expired",
		Timestamp:     time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	po := toDownloadLogPO(entry)
	assert.JSONEq(t, `{"country":"US","city":"Austin","region":"Texas","location_string":"Austin, Texas, US"}`, po.LocationData)

	back := po.toBiz()
	assert.Equal(t, entry, back)

	anonymous := toDownloadLogPO(&biz.DownloadLogEntry{CodeAttempted: "X"})
	assert.Nil(t, anonymous.UserEmail)
	assert.Nil(t, anonymous.ErrorMessage)
	assert.Nil(t, anonymous.CodeID)
}

func TestAdminLogPO_RoundTrip(t *testing.T) {
	entry := &biz.AdminLogEntry{
		AdminEmail: "admin@example.com",
		Action:     biz.ActionDeleteLog,
		IPAddress:  "203.0.113.7",
		Location:   biz.LocationData{LocationString: "Unknown"},
		Success:    true,
		Details:    "Deleted log entry 1",
		Timestamp:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, entry, toAdminLogPO(entry).toBiz())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "download_codes", DownloadCodePO{}.TableName())
	assert.Equal(t, "download_log", DownloadLogPO{}.TableName())
	assert.Equal(t, "admin_log", AdminLogPO{}.TableName())
	assert.Len(t, Models(), 3)
}

func TestMapStorageError(t *testing.T) {
	missing := minio.WrapError("StatObject", minio.ErrObjectNotFound, "portal-files", "gone.pdf")
	assert.ErrorIs(t, mapStorageError(missing), biz.ErrFileNotFound)

	down := errors.New("dial tcp: connection refused")
	assert.Equal(t, down, mapStorageError(down))
}
