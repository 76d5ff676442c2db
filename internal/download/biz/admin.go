package biz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/database"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/minio"
)

// FileInfo is a stored object as shown to administrators
type FileInfo struct {
	Key        string
	Name       string
	Size       int64
	SizeHuman  string
	UploadedAt time.Time
}

// ListFiles returns every stored object, newest first
func (uc *DownloadUseCase) ListFiles(ctx context.Context, caller identity.Caller) ([]FileInfo, error) {
	if !caller.IsAdmin {
		return nil, ErrAdminRequired
	}

	objects, err := uc.objects.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	files := make([]FileInfo, 0, len(objects))
	for _, o := range objects {
		files = append(files, FileInfo{
			Key:        o.Key,
			Name:       FileNameFromKey(o.Key),
			Size:       o.Size,
			SizeHuman:  minio.FormatBytes(o.Size),
			UploadedAt: o.LastModified,
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i].UploadedAt, files[j].UploadedAt
		// objects without a timestamp go last
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	return files, nil
}

// DownloadLogRecord is a log entry prepared for display
type DownloadLogRecord struct {
	ID           int64
	Timestamp    time.Time
	UserEmail    string
	Success      bool
	ErrorMessage string
	Location     string
	IPAddress    string
	FileName     string
	Code         string
	FileSize     int64
}

// DownloadLogPage is one page of the download log with whole-log statistics
type DownloadLogPage struct {
	Logs    []DownloadLogRecord
	Limit   int
	Offset  int
	Total   int64
	HasMore bool
	Stats   LogStats
}

// ListLogs returns a page of download attempts, newest first
func (uc *DownloadUseCase) ListLogs(ctx context.Context, caller identity.Caller, filter LogFilter) (*DownloadLogPage, error) {
	if !caller.IsAdmin {
		return nil, ErrAdminRequired
	}
	filter.Limit, filter.Offset = database.ClampPage(filter.Limit, filter.Offset)

	views, total, err := uc.logs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}
	stats, err := uc.logs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	records := make([]DownloadLogRecord, 0, len(views))
	for _, v := range views {
		email := v.UserEmail
		if email == "" {
			email = "Unknown User"
		}
		records = append(records, DownloadLogRecord{
			ID:           v.ID,
			Timestamp:    v.Timestamp,
			UserEmail:    email,
			Success:      v.Success,
			ErrorMessage: v.ErrorMessage,
			Location:     FormatLocation(v.LocationRaw),
			IPAddress:    v.IPAddress,
			FileName:     v.FileName,
			Code:         v.Code,
			FileSize:     v.FileSize,
		})
	}

	return &DownloadLogPage{
		Logs:    records,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		Total:   total,
		HasMore: int64(filter.Offset+filter.Limit) < total,
		Stats:   stats,
	}, nil
}

// DeleteLog removes one download log entry. The deletion itself is audit logged.
func (uc *DownloadUseCase) DeleteLog(ctx context.Context, caller identity.Caller, id int64) error {
	if !caller.IsAdmin {
		uc.audit.RecordAdmin(ctx, caller, ActionUnauthorizedDeletion, false,
			fmt.Sprintf("Attempted to delete log entry %d", id))
		return ErrAdminRequired
	}

	entry, err := uc.logs.Get(ctx, id)
	if err == nil {
		err = uc.logs.Delete(ctx, id)
	}
	if err != nil {
		uc.audit.RecordAdmin(ctx, caller, ActionDeleteLogError, false,
			fmt.Sprintf("Error deleting log %d: %v", id, err))
		if errors.Is(err, ErrLogNotFound) {
			return ErrLogNotFound
		}
		return fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	user := entry.UserEmail
	if user == "" {
		user = unknownUser
	}
	uc.audit.RecordAdmin(ctx, caller, ActionDeleteLog, true,
		fmt.Sprintf("Deleted log entry %d for user %s from %s", id, user, entry.Timestamp.UTC().Format(time.RFC3339)))
	return nil
}

// AdminLogPage is one page of the admin log
type AdminLogPage struct {
	Logs    []*AdminLogEntry
	Limit   int
	Offset  int
	Total   int64
	HasMore bool
}

// ListAdminLogs returns a page of administrative actions, newest first
func (uc *DownloadUseCase) ListAdminLogs(ctx context.Context, caller identity.Caller, limit, offset int) (*AdminLogPage, error) {
	if !caller.IsAdmin {
		return nil, ErrAdminRequired
	}
	limit, offset = database.ClampPage(limit, offset)

	logs, total, err := uc.adminLogs.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}
	return &AdminLogPage{
		Logs:    logs,
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: int64(offset+limit) < total,
	}, nil
}

// Profile is the caller as reported by WhoAmI
type Profile struct {
	Authenticated bool
	Email         string
	Name          string
	Groups        []string
	IsAdmin       bool
}

// WhoAmI describes the caller. Anonymous callers get ErrUnauthenticated.
func (uc *DownloadUseCase) WhoAmI(_ context.Context, caller identity.Caller) (*Profile, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return &Profile{
		Authenticated: true,
		Email:         caller.Email,
		Name:          caller.Name,
		Groups:        caller.Groups,
		IsAdmin:       caller.IsAdmin,
	}, nil
}
