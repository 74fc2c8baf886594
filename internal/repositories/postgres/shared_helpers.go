package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// inTransaction reports whether db is bound to an open transaction
func inTransaction(db *gorm.DB) bool {
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}

// allowedSortColumns whitelists ORDER BY columns across stores
var allowedSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"id":         true,
	"name":       true,
	"status":     true,
	"email":      true,
	"issued_at":  true,
	"start_time": true,
	"score":      true,
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(sortBy + " " + sortOrder).Order("id " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// ApplyTestFilters applies common filters to test queries
func (h *SharedHelpers) ApplyTestFilters(query *gorm.DB, filters repositories.TestFilters) *gorm.DB {
	if filters.OwnerID != nil {
		query = query.Where("owner_id = ?", *filters.OwnerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.Archived != nil {
		query = query.Where("is_archived = ?", *filters.Archived)
	}
	if filters.Search != "" {
		query = query.Where("name ILIKE ?", "%"+escapeLike(filters.Search)+"%")
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyAttemptFilters applies common filters to attempt queries
func (h *SharedHelpers) ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Completed != nil {
		query = query.Where("is_completed = ?", *filters.Completed)
	}
	if filters.Email != "" {
		query = query.Where("student_email = ?", strings.ToLower(filters.Email))
	}
	if filters.DateFrom != nil {
		query = query.Where("start_time >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("start_time <= ?", *filters.DateTo)
	}
	return query
}

// CountAttempts counts attempts for a test
func (h *SharedHelpers) CountAttempts(ctx context.Context, db *gorm.DB, testID uint) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("test_id = ?", testID).
		Count(&count).Error
	return count, err
}

// translateError maps gorm's not-found error onto the repository sentinel
func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
