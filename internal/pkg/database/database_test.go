package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default config", mutate: func(c *Config) {}},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: true},
		{name: "invalid port", mutate: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "invalid SSL mode", mutate: func(c *Config) { c.SSLMode = "invalid" }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: true},
		{name: "idle exceeds open", mutate: func(c *Config) { c.MaxIdleConns = 100; c.MaxOpenConns = 10 }, wantErr: true},
		{name: "zero retry attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: true},
		{name: "jitter above one", mutate: func(c *Config) { c.Retry.Jitter = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = ""
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=file_portal sslmode=disable TimeZone=UTC",
		cfg.DSN())
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	p.Jitter = 0

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		1600 * time.Millisecond,
	}
	for attempt, d := range want {
		assert.Equal(t, d, p.Backoff(attempt, 0.5), "attempt %d", attempt)
	}
}

func TestRetryPolicy_BackoffJitterBounds(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 75*time.Millisecond, p.Backoff(0, 0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0, 0.5))
	assert.InDelta(t, float64(125*time.Millisecond), float64(p.Backoff(0, 0.9999999)), float64(time.Microsecond))
	assert.LessOrEqual(t, p.Backoff(10, 0.9999999), 2000*time.Millisecond)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network lost", errors.New("D1_ERROR: Network connection lost."), true},
		{"object reset", errors.New("Durable Object storage caused object to be reset"), true},
		{"code updated", errors.New("object reset because its code was updated"), true},
		{"rate limited", errors.New("Too Many Requests"), true},
		{"timeout", fmt.Errorf("query: %w", errors.New("i/o timeout")), true},
		{"unavailable", errors.New("service temporarily unavailable"), true},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"connection exception class", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"syntax", errors.New("syntax error at or near SELECT"), false},
		{"not found", gorm.ErrRecordNotFound, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("timeout: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKeyError(errors.New("other")))
	assert.False(t, IsDuplicateKeyError(nil))
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Jitter: 0.25}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var retries []int

	err := retry(context.Background(), fastPolicy(), func(attempt int, _ time.Duration, _ error) {
		retries = append(retries, attempt)
	}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("Network connection lost")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	transient := errors.New("too many requests")

	err := retry(context.Background(), fastPolicy(), nil, func(context.Context) error {
		calls++
		return transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 5, calls)
}

func TestRetry_NonTransientPropagatesImmediately(t *testing.T) {
	calls := 0
	permanent := errors.New("constraint violated")

	err := retry(context.Background(), fastPolicy(), nil, func(context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy()
	p.BaseDelay = time.Hour
	p.MaxDelay = time.Hour

	calls := 0
	err := retry(ctx, p, func(int, time.Duration, error) { cancel() }, func(context.Context) error {
		calls++
		return errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestChunk(t *testing.T) {
	rows := make([]int, 120)
	for i := range rows {
		rows[i] = i
	}

	chunks := Chunk(rows, DefaultBatchSize)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 50)
	assert.Len(t, chunks[1], 50)
	assert.Len(t, chunks[2], 20)
	assert.Equal(t, 100, chunks[2][0])

	assert.Empty(t, Chunk([]int{}, 50))
	assert.Len(t, Chunk(rows, 0), 3)
}

func TestBatchError_Message(t *testing.T) {
	err := BatchError{Batch: 2, Rows: 50, Err: errors.New("boom")}
	assert.Equal(t, "batch 2 (50 rows): boom", err.Error())
	assert.False(t, BatchResult{Failed: []BatchError{err}}.OK())
	assert.True(t, BatchResult{Inserted: 3}.OK())
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 50, 0},
		{10, 5, 10, 5},
		{500, -3, 100, 0},
		{-1, 20, 50, 20},
	}
	for _, tt := range tests {
		l, o := ClampPage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}
