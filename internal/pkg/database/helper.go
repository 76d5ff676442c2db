package database

import "gorm.io/gorm"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// ClampPage normalizes limit/offset: limit defaults to 50 and is capped at 100, offset is never negative
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)
	return limit, max(offset, 0)
}

// Paginate adds limit/offset pagination to a query
func Paginate(limit, offset int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		l, o := ClampPage(limit, offset)
		return db.Offset(o).Limit(l)
	}
}

// WhereIf conditionally adds a where clause
func WhereIf(condition bool, query any, args ...any) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if condition {
			return db.Where(query, args...)
		}
		return db
	}
}
