package data

import (
	"context"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/database"
)

// CodeRepo 下载码仓储实现
type CodeRepo struct {
	db *database.DB
}

// NewCodeRepo 创建下载码仓储
func NewCodeRepo(db *database.DB) biz.CodeRepo {
	return &CodeRepo{db: db}
}

// Create 插入下载码；code 重复时返回 ErrCodeCollision
func (r *CodeRepo) Create(ctx context.Context, code *biz.DownloadCode) error {
	po := toCodePO(code)
	err := r.db.Retry(ctx, "create_download_code", func(ctx context.Context) error {
		return r.db.WithContext(ctx).GetDB().Create(po).Error
	})
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return biz.ErrCodeCollision
		}
		return err
	}
	code.ID = po.ID
	return nil
}

// CreateBatch 分批插入下载码，每批独立事务
func (r *CodeRepo) CreateBatch(ctx context.Context, codes []*biz.DownloadCode) (int, []biz.BatchFailure, error) {
	pos := make([]*DownloadCodePO, len(codes))
	for i, c := range codes {
		pos[i] = toCodePO(c)
	}

	res := database.BatchInsert(ctx, r.db, pos, database.DefaultBatchSize)
	if err := ctx.Err(); err != nil && res.Inserted == 0 {
		return 0, nil, err
	}

	failed := make(map[int]bool, len(res.Failed))
	var failures []biz.BatchFailure
	chunks := database.Chunk(codes, database.DefaultBatchSize)
	for _, be := range res.Failed {
		failed[be.Batch] = true
		values := make([]string, 0, len(chunks[be.Batch]))
		for _, c := range chunks[be.Batch] {
			values = append(values, c.Code)
		}
		failures = append(failures, biz.BatchFailure{Codes: values, Err: be})
	}

	for i, chunk := range chunks {
		if failed[i] {
			continue
		}
		for j, c := range chunk {
			c.ID = pos[i*database.DefaultBatchSize+j].ID
		}
	}
	return res.Inserted, failures, nil
}

// GetByCode 按下载码查询
func (r *CodeRepo) GetByCode(ctx context.Context, code string) (*biz.DownloadCode, error) {
	return r.first(ctx, "code = ?", code)
}

// GetByID 按主键查询
func (r *CodeRepo) GetByID(ctx context.Context, id int64) (*biz.DownloadCode, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *CodeRepo) first(ctx context.Context, query string, arg any) (*biz.DownloadCode, error) {
	var po DownloadCodePO
	err := r.db.Retry(ctx, "get_download_code", func(ctx context.Context) error {
		return r.db.WithContext(ctx).GetDB().Where(query, arg).First(&po).Error
	})
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrInvalidCode
		}
		return nil, err
	}
	return po.toBiz(), nil
}

// redeemSQL flips a code to used only while it is still active, so at most
// one of several concurrent redemptions affects a row
const redeemSQL = `
UPDATE download_codes
SET is_used = TRUE, used_at = ?, download_count = download_count + 1
WHERE id = ?
  AND is_used = FALSE
  AND download_count < max_downloads
  AND (expires_at IS NULL OR expires_at >= ?)`

// MarkRedeemed 条件更新兑换状态，返回是否抢到
func (r *CodeRepo) MarkRedeemed(ctx context.Context, id int64, now time.Time) (bool, error) {
	rows, err := r.db.Execute(ctx, redeemSQL, now, id, now)
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
