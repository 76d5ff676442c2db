package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/conf"
	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	downloaddata "github.com/lk2023060901/file-portal-backend/internal/download/data"
	"github.com/lk2023060901/file-portal-backend/internal/notify"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/database"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/minio"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data holds the clients of every backing service
type Data struct {
	DB          *database.DB
	RedisClient *redis.Client // nil when rate limiting is disabled
	MinIOClient *minio.Client
	Logger      *logger.Logger
}

func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	if config.Database.AutoMigrate {
		if err := downloaddata.Migrate(db, false); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	minioClient, err := minio.NewClient(&config.MinIO, log.Logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := minioClient.EnsureBucket(ctx); err != nil {
		// downloads fail per request until the bucket is reachable
		log.Warn("object store bucket not ready", zap.Error(err))
	}

	var redisClient *redis.Client
	if config.RateLimit.Enabled {
		redisClient, err = redis.New(&config.Redis, log)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	d := &Data{
		DB:          db,
		RedisClient: redisClient,
		MinIOClient: minioClient,
		Logger:      log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("failed to close redis", zap.Error(err))
			}
		}
	}

	return d, cleanup, nil
}

// NewDownloadUseCase wires the download-code workflow over d. The returned
// shutdown drains pending recipient notifications.
func NewDownloadUseCase(d *Data, config *conf.Config, log *logger.Logger) (*biz.DownloadUseCase, func(context.Context) error, error) {
	var notifier biz.Notifier
	shutdown := func(context.Context) error { return nil }
	if config.Mail.Enabled {
		dispatcher, drain, err := notify.NewMailDispatcher(config.Mail, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init mail notifier: %w", err)
		}
		notifier, shutdown = dispatcher, drain
	}

	uc := biz.NewDownloadUseCase(
		downloaddata.NewCodeRepo(d.DB),
		downloaddata.NewDownloadLogRepo(d.DB),
		downloaddata.NewAdminLogRepo(d.DB),
		downloaddata.NewObjectStore(d.MinIOClient),
		notifier,
		DownloadConfig(config),
		log,
	)
	return uc, shutdown, nil
}

// DownloadConfig maps the download section onto the use case tunables
func DownloadConfig(config *conf.Config) biz.Config {
	return biz.Config{
		CodeLength:       config.Download.CodeLength,
		CollisionRetries: config.Download.CollisionRetries,
		PresignTTL:       config.Download.PresignTTL,
		MaxUploadBytes:   config.Download.MaxUploadBytes,
	}
}
