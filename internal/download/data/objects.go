package data

import (
	"context"
	"io"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/minio"
)

// ObjectStore 基于 MinIO 的文件存储实现
type ObjectStore struct {
	client *minio.Client
}

// NewObjectStore 创建文件存储
func NewObjectStore(client *minio.Client) biz.ObjectStore {
	return &ObjectStore{client: client}
}

// Put 上传对象
func (s *ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (biz.StoredObject, error) {
	info, err := s.client.PutObject(ctx, key, r, size, contentType)
	if err != nil {
		return biz.StoredObject{}, err
	}
	return toStoredObject(info), nil
}

// Head 查询对象元数据
func (s *ObjectStore) Head(ctx context.Context, key string) (biz.StoredObject, error) {
	info, err := s.client.StatObject(ctx, key)
	if err != nil {
		return biz.StoredObject{}, mapStorageError(err)
	}
	return toStoredObject(info), nil
}

// Get 打开对象读取流，调用方负责关闭
func (s *ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, biz.StoredObject, error) {
	body, info, err := s.client.GetObject(ctx, key)
	if err != nil {
		return nil, biz.StoredObject{}, mapStorageError(err)
	}
	return body, toStoredObject(info), nil
}

// List 列出前缀下的所有对象
func (s *ObjectStore) List(ctx context.Context, prefix string) ([]biz.StoredObject, error) {
	infos, err := s.client.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]biz.StoredObject, 0, len(infos))
	for _, info := range infos {
		out = append(out, toStoredObject(info))
	}
	return out, nil
}

// PresignGet 生成预签名下载地址，先确认对象存在
func (s *ObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error) {
	if _, err := s.Head(ctx, key); err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, key, ttl, downloadName)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func toStoredObject(info minio.ObjectInfo) biz.StoredObject {
	return biz.StoredObject{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}
}

// mapStorageError turns "no such key" into biz.ErrFileNotFound and keeps everything else
func mapStorageError(err error) error {
	if minio.IsNotFound(err) {
		return biz.ErrFileNotFound
	}
	return err
}
