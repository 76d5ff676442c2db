package notify

import (
	"context"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// AsyncNotifier 将通知交给 worker pool 后台发送，调用方不等待 SMTP
type AsyncNotifier struct {
	next    biz.Notifier
	pool    *workerpool.Pool
	timeout time.Duration
	logger  *logger.Logger
}

// NewAsyncNotifier 包装 next；timeout 限制每条通知的总耗时
func NewAsyncNotifier(next biz.Notifier, pool *workerpool.Pool, timeout time.Duration, log *logger.Logger) *AsyncNotifier {
	return &AsyncNotifier{next: next, pool: pool, timeout: timeout, logger: log.Named("notify")}
}

// NewMailDispatcher 创建后台发送的邮件通知器，返回的 shutdown 会等待队列发送完毕
func NewMailDispatcher(cfg Config, log *logger.Logger) (*AsyncNotifier, func(context.Context) error, error) {
	mailer, err := NewMailNotifier(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	pool, err := workerpool.New(&workerpool.Config{
		Workers:   mailer.config.Workers,
		QueueSize: mailer.config.QueueSize,
	}, log.Logger)
	if err != nil {
		return nil, nil, err
	}
	return NewAsyncNotifier(mailer, pool, mailer.config.sendBudget(), log), pool.Shutdown, nil
}

// NotifyCodeIssued 入队即返回；只有队列已满或已关闭时返回错误
func (n *AsyncNotifier) NotifyCodeIssued(ctx context.Context, note biz.CodeNotification) error {
	base := context.WithoutCancel(ctx)
	return n.pool.Submit(func() {
		sendCtx, cancel := context.WithTimeout(base, n.timeout)
		defer cancel()

		if err := n.next.NotifyCodeIssued(sendCtx, note); err != nil {
			n.logger.WithContext(sendCtx).Warn("download code notification failed",
				zap.String("recipient", note.Recipient),
				zap.Error(err),
			)
		}
	})
}
