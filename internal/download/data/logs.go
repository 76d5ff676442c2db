package data

import (
	"context"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/database"
)

// DownloadLogRepo 下载日志仓储实现
type DownloadLogRepo struct {
	db *database.DB
}

// NewDownloadLogRepo 创建下载日志仓储
func NewDownloadLogRepo(db *database.DB) biz.DownloadLogRepo {
	return &DownloadLogRepo{db: db}
}

// Append 写入一条下载日志
func (r *DownloadLogRepo) Append(ctx context.Context, entry *biz.DownloadLogEntry) error {
	po := toDownloadLogPO(entry)
	err := r.db.Retry(ctx, "append_download_log", func(ctx context.Context) error {
		return r.db.WithContext(ctx).GetDB().Create(po).Error
	})
	if err != nil {
		return err
	}
	entry.ID = po.ID
	return nil
}

type logRow struct {
	ID           int64
	Timestamp    time.Time
	UserEmail    *string
	Success      bool
	ErrorMessage *string
	LocationData *string
	IPAddress    string
	FileSize     int64
	FileName     *string
	Code         *string
}

// List 分页查询下载日志，关联下载码的文件名
func (r *DownloadLogRepo) List(ctx context.Context, filter biz.LogFilter) ([]*biz.DownloadLogView, int64, error) {
	var (
		total int64
		rows  []logRow
	)
	err := r.db.Retry(ctx, "list_download_log", func(ctx context.Context) error {
		db := r.db.WithContext(ctx).GetDB()
		err := db.Model(&DownloadLogPO{}).
			Scopes(database.WhereIf(filter.SuccessOnly, "success = ?", true)).
			Count(&total).Error
		if err != nil {
			return err
		}
		return db.Table("download_log AS dl").
			Select(`dl.id, dl.timestamp, dl.user_email, dl.success, dl.error_message,
				dl.location_data, dl.ip_address, dl.file_size, dc.file_name, dc.code`).
			Joins("LEFT JOIN download_codes dc ON dl.code_id = dc.id").
			Scopes(
				database.WhereIf(filter.SuccessOnly, "dl.success = ?", true),
				database.Paginate(filter.Limit, filter.Offset),
			).
			Order("dl.timestamp DESC, dl.id DESC").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, 0, err
	}

	views := make([]*biz.DownloadLogView, 0, len(rows))
	for _, row := range rows {
		views = append(views, &biz.DownloadLogView{
			ID:           row.ID,
			Timestamp:    row.Timestamp,
			UserEmail:    deref(row.UserEmail),
			Success:      row.Success,
			ErrorMessage: deref(row.ErrorMessage),
			LocationRaw:  deref(row.LocationData),
			IPAddress:    row.IPAddress,
			FileName:     deref(row.FileName),
			Code:         deref(row.Code),
			FileSize:     row.FileSize,
		})
	}
	return views, total, nil
}

const statsSQL = `
SELECT
	COUNT(*) AS total_attempts,
	COUNT(*) FILTER (WHERE success) AS successful_downloads,
	COUNT(*) FILTER (WHERE NOT success) AS failed_attempts,
	COUNT(DISTINCT user_email) AS unique_users,
	MAX(timestamp) AS last_activity
FROM download_log`

type statsRow struct {
	TotalAttempts       int64
	SuccessfulDownloads int64
	FailedAttempts      int64
	UniqueUsers         int64
	LastActivity        *time.Time
}

// Stats 统计全部下载日志
func (r *DownloadLogRepo) Stats(ctx context.Context) (biz.LogStats, error) {
	var row statsRow
	if err := r.db.Query(ctx, &row, statsSQL); err != nil {
		return biz.LogStats{}, err
	}
	return biz.LogStats(row), nil
}

// Get 按主键查询下载日志
func (r *DownloadLogRepo) Get(ctx context.Context, id int64) (*biz.DownloadLogEntry, error) {
	var po DownloadLogPO
	err := r.db.Retry(ctx, "get_download_log", func(ctx context.Context) error {
		return r.db.WithContext(ctx).GetDB().First(&po, id).Error
	})
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrLogNotFound
		}
		return nil, err
	}
	return po.toBiz(), nil
}

// Delete 删除下载日志，仅管理员流程调用
func (r *DownloadLogRepo) Delete(ctx context.Context, id int64) error {
	rows, err := r.db.Execute(ctx, "DELETE FROM download_log WHERE id = ?", id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return biz.ErrLogNotFound
	}
	return nil
}

// AdminLogRepo 管理员日志仓储实现
type AdminLogRepo struct {
	db *database.DB
}

// NewAdminLogRepo 创建管理员日志仓储
func NewAdminLogRepo(db *database.DB) biz.AdminLogRepo {
	return &AdminLogRepo{db: db}
}

// Append 写入一条管理员日志
func (r *AdminLogRepo) Append(ctx context.Context, entry *biz.AdminLogEntry) error {
	po := toAdminLogPO(entry)
	err := r.db.Retry(ctx, "append_admin_log", func(ctx context.Context) error {
		return r.db.WithContext(ctx).GetDB().Create(po).Error
	})
	if err != nil {
		return err
	}
	entry.ID = po.ID
	return nil
}

// List 分页查询管理员日志，按时间倒序
func (r *AdminLogRepo) List(ctx context.Context, limit, offset int) ([]*biz.AdminLogEntry, int64, error) {
	var (
		total int64
		pos   []AdminLogPO
	)
	err := r.db.Retry(ctx, "list_admin_log", func(ctx context.Context) error {
		db := r.db.WithContext(ctx).GetDB()
		if err := db.Model(&AdminLogPO{}).Count(&total).Error; err != nil {
			return err
		}
		return db.Scopes(database.Paginate(limit, offset)).
			Order("timestamp DESC, id DESC").
			Find(&pos).Error
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]*biz.AdminLogEntry, 0, len(pos))
	for i := range pos {
		out = append(out, pos[i].toBiz())
	}
	return out, total, nil
}
