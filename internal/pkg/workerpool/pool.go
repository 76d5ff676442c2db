package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
	ErrPoolFull   = errors.New("worker pool queue is full")
)

// Config Worker Pool 配置
type Config struct {
	Workers   int // 并发 worker 数量
	QueueSize int // 等待队列长度，超出后 Submit 立即失败
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:   4,
		QueueSize: 1000,
	}
}

// Pool 基于 ants 的有界 Worker Pool。
// Submit 只把任务放进有界队列，从不等待空闲 worker；
// 由单独的 dispatcher 协程把队列中的任务交给 ants。
type Pool struct {
	pool   *ants.Pool
	queue  chan func()
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(err any) {
			logger.Error("worker panic", zap.Any("error", err), zap.Stack("stacktrace"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	p := &Pool{
		pool:   antsPool,
		queue:  make(chan func(), config.QueueSize),
		logger: logger,
	}
	go p.dispatch()
	return p, nil
}

// Submit 将任务放入队列后立即返回。队列已满或已关闭时返回错误，任务不会执行
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	select {
	case p.queue <- task:
		return nil
	default:
		p.wg.Done()
		return ErrPoolFull
	}
}

// dispatch 按顺序把队列中的任务交给 ants，worker 全忙时在这里等待
func (p *Pool) dispatch() {
	for task := range p.queue {
		err := p.pool.Submit(func() {
			defer p.wg.Done()
			task()
		})
		if err != nil {
			p.wg.Done()
			p.logger.Warn("worker pool dropped queued task", zap.Error(err))
		}
	}
}

// Running 返回正在执行的任务数
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Queued 返回等待执行的任务数
func (p *Pool) Queued() int {
	return len(p.queue)
}

// Shutdown 停止接收任务，等待已提交任务完成后释放 pool；ctx 到期则直接释放
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		err = ctx.Err()
		p.logger.Warn("worker pool shutdown before all tasks finished",
			zap.Int("running", p.pool.Running()),
			zap.Int("queued", len(p.queue)),
		)
	}
	p.pool.Release()
	return err
}
