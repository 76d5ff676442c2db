package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// RetryPolicy controls how transient database failures are retried
type RetryPolicy struct {
	MaxAttempts int           `mapstructure:"maxattempts"`
	BaseDelay   time.Duration `mapstructure:"basedelay"`
	MaxDelay    time.Duration `mapstructure:"maxdelay"`
	// Jitter is the fraction of the delay added or removed at random, 0 to 1.
	Jitter float64 `mapstructure:"jitter"`
}

// DefaultRetryPolicy is 5 attempts, 100ms doubling to a 1.6s cap, ±25% jitter
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    1600 * time.Millisecond,
		Jitter:      0.25,
	}
}

// Validate checks the policy bounds
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("retry maxattempts must be >= 1")
	}
	if p.BaseDelay < 0 || p.MaxDelay < p.BaseDelay {
		return errors.New("retry delays must satisfy 0 <= basedelay <= maxdelay")
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return errors.New("retry jitter must be between 0 and 1")
	}
	return nil
}

// Backoff returns the delay before retry number attempt (0-based).
// unit is a value in [0,1) that selects the jitter offset.
func (p RetryPolicy) Backoff(attempt int, unit float64) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	delay = min(delay, p.MaxDelay)

	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay += time.Duration(spread * (2*unit - 1))
	}
	return max(delay, 0)
}

var transientMessages = []string{
	"network connection lost",
	"storage caused object to be reset",
	"reset because its code was updated",
	"too many requests",
	"timeout",
	"temporarily unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"unexpected eof",
}

var transientStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
	"57P03": {}, // cannot_connect_now
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	if state := sqlState(err); state != "" {
		if _, ok := transientStates[state]; ok {
			return true
		}
		// connection_exception class
		if strings.HasPrefix(state, "08") {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Retry runs fn until it succeeds, returns a non-transient error or the policy is exhausted
func (db *DB) Retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retry(ctx, db.config.Retry, func(attempt int, delay time.Duration, err error) {
		db.logger.WithContext(ctx).Warn("retrying database operation",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}, fn)
}

func retry(ctx context.Context, p RetryPolicy, onRetry func(int, time.Duration, error), fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == attempts-1 {
			break
		}

		delay := p.Backoff(attempt, rand.Float64())
		if onRetry != nil {
			onRetry(attempt+1, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return lastErr
}

// Query runs a parameterized SELECT into dest with retry
func (db *DB) Query(ctx context.Context, dest any, sql string, args ...any) error {
	return db.Retry(ctx, "query", func(ctx context.Context) error {
		return db.DB.WithContext(ctx).Raw(sql, args...).Scan(dest).Error
	})
}

// Execute runs a parameterized statement with retry and returns rows affected
func (db *DB) Execute(ctx context.Context, sql string, args ...any) (int64, error) {
	var rows int64
	err := db.Retry(ctx, "execute", func(ctx context.Context) error {
		res := db.DB.WithContext(ctx).Exec(sql, args...)
		if res.Error != nil {
			return res.Error
		}
		rows = res.RowsAffected
		return nil
	})
	return rows, err
}
