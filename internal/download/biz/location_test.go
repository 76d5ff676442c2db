package biz

import (
	"testing"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/stretchr/testify/assert"
)

func TestFormatLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"city":"Austin","region":"Texas","country":"US"}`, "Austin, Texas, US"},
		{`{"city":"Austin","region":"Texas"}`, "Austin, Texas"},
		{`{"city":"Paris","country":"FR"}`, "Paris, FR"},
		{`{"region":"Bavaria","country":"DE"}`, "Bavaria, DE"},
		{`{"location":"Somewhere, XY"}`, "Somewhere, XY"},
		{`{"location_string":"Lyon, FR"}`, "Lyon, FR"},
		{`{"location_string":"Unknown","city":"Osaka"}`, "Osaka"},
		{`{"region":"Ontario"}`, "Ontario"},
		{`{"country":"JP"}`, "Japan"},
		{`{"country":"ZZ"}`, "ZZ"},
		{`{}`, "Unknown"},
		{``, "Unknown"},
		{`not json`, "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLocation(tt.raw), tt.raw)
	}
}

func TestLocationData_EncodeDecode(t *testing.T) {
	ld := NewLocationData(identity.Location{IP: "1.2.3.4", Country: "CA", City: "Toronto", Region: "Ontario"})
	assert.Equal(t, "Toronto, Ontario, CA", ld.LocationString)

	raw := ld.Encode()
	assert.JSONEq(t, `{"country":"CA","city":"Toronto","region":"Ontario","location_string":"Toronto, Ontario, CA"}`, raw)
	assert.Equal(t, ld, DecodeLocation(raw))
	assert.Equal(t, "Toronto, Ontario, CA", FormatLocation(raw))

	legacy := DecodeLocation(`{"country":"US","location":"Austin, TX"}`)
	assert.Equal(t, "Austin, TX", legacy.LocationString)
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.zip":        "application/zip",
		"Report.PDF":   "application/pdf",
		"notes.txt":    "text/plain",
		"data.json":    "application/json",
		"rows.csv":     "text/csv",
		"sheet.xlsx":   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"memo.docx":    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"image.png":    "application/octet-stream",
		"no-extension": "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentTypeFor(name), name)
	}
}

func TestDownloadCode_Status(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Second), now.Add(time.Second)

	assert.Equal(t, StatusActive, (&DownloadCode{MaxDownloads: 1}).Status(now))
	assert.Equal(t, StatusActive, (&DownloadCode{MaxDownloads: 1, ExpiresAt: &future}).Status(now))
	assert.Equal(t, StatusActive, (&DownloadCode{MaxDownloads: 1, ExpiresAt: &now}).Status(now), "expiry is exclusive")
	assert.Equal(t, StatusExpired, (&DownloadCode{MaxDownloads: 1, ExpiresAt: &past}).Status(now))
	assert.Equal(t, StatusExhausted, (&DownloadCode{MaxDownloads: 1, DownloadCount: 1}).Status(now))
	assert.Equal(t, StatusRedeemed, (&DownloadCode{IsUsed: true, ExpiresAt: &past}).Status(now))
}

func TestDownloadCode_AssignedTo(t *testing.T) {
	open := &DownloadCode{}
	assert.True(t, open.AssignedTo(""))
	assert.True(t, open.AssignedTo("x@y.com"))

	bound := &DownloadCode{RecipientEmail: "a@x.com"}
	assert.True(t, bound.AssignedTo("A@X.com"))
	assert.False(t, bound.AssignedTo("b@x.com"))
	assert.False(t, bound.AssignedTo(""))
}

func TestLogStats_SuccessRate(t *testing.T) {
	assert.Equal(t, 0, LogStats{}.SuccessRate())
	assert.Equal(t, 67, LogStats{TotalAttempts: 3, SuccessfulDownloads: 2}.SuccessRate())
	assert.Equal(t, 50, LogStats{TotalAttempts: 4, SuccessfulDownloads: 2}.SuccessRate())
}

func TestFileNameFromKey(t *testing.T) {
	assert.Equal(t, "q1.pdf", FileNameFromKey("reports/2025/q1.pdf"))
	assert.Equal(t, "plain.txt", FileNameFromKey("plain.txt"))
	assert.Equal(t, "dir/", FileNameFromKey("dir/"))
}
