package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultBatchSize is the number of rows submitted per batch unit
const DefaultBatchSize = 50

// Chunk splits rows into consecutive slices of at most size elements
func Chunk[T any](rows []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// BatchError describes one failed chunk
type BatchError struct {
	Batch int   // 0-based chunk index
	Rows  int   // rows in the chunk
	Err   error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d rows): %v", e.Batch, e.Rows, e.Err)
}

// BatchResult summarizes a chunked write
type BatchResult struct {
	Inserted int
	Failed   []BatchError
}

// OK reports whether every chunk was written
func (r BatchResult) OK() bool {
	return len(r.Failed) == 0
}

// BatchInsert writes rows in chunks, each inside its own transaction with retry.
// A failing chunk does not stop the remaining chunks.
func BatchInsert[T any](ctx context.Context, db *DB, rows []T, size int) BatchResult {
	var result BatchResult

	for i, chunk := range Chunk(rows, size) {
		err := db.TransactionWithRetry(ctx, func(ctx context.Context, tx *gorm.DB) error {
			return tx.Create(&chunk).Error
		})
		if err != nil {
			db.logger.WithContext(ctx).Error("batch insert chunk failed",
				zap.Int("batch", i),
				zap.Int("rows", len(chunk)),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, BatchError{Batch: i, Rows: len(chunk), Err: err})
			continue
		}
		result.Inserted += len(chunk)
	}
	return result
}
