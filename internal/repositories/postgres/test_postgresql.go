package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

type TestPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewTestPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.TestRepository {
	return &TestPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *TestPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *TestPostgreSQL) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Questions").Create(test).Error; err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Test, fmt.Sprintf("owner:%s:*", test.OwnerID))
	return nil
}

// GetByID loads a test with its question count and total points.
// Reads outside a transaction go through the cache.
func (r *TestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	fetch := func() (interface{}, error) {
		var test models.Test
		if err := r.getDB(tx).WithContext(ctx).First(&test, id).Error; err != nil {
			return nil, translateError(err)
		}
		if err := r.fillComputedFields(ctx, tx, &test); err != nil {
			return nil, err
		}
		return &test, nil
	}

	if tx != nil || inTransaction(r.db) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.(*models.Test), nil
	}

	var test models.Test
	if err := r.cacheManager.Test.CacheOrExecute(ctx, cache.TestKey(id), &test, cache.TestCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestPostgreSQL) fillComputedFields(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	var agg struct {
		Count int
		Total int
	}
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Select("COUNT(*) AS count, COALESCE(SUM(points), 0) AS total").
		Where("test_id = ?", test.ID).
		Scan(&agg).Error
	if err != nil {
		return fmt.Errorf("failed to aggregate questions: %w", err)
	}
	test.QuestionCount = agg.Count
	test.TotalPoints = agg.Total
	return nil
}

// Update saves every mutable column of the test
func (r *TestPostgreSQL) Update(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	result := r.getDB(tx).WithContext(ctx).Model(&models.Test{}).Where("id = ?", test.ID).Updates(map[string]interface{}{
		"name":                test.Name,
		"description":         test.Description,
		"randomize_questions": test.RandomizeQuestions,
		"time_limit_minutes":  test.TimeLimitMinutes,
		"max_attempts":        test.MaxAttempts,
		"status":              test.Status,
		"is_locked":           test.IsLocked,
		"is_archived":         test.IsArchived,
		"archived_at":         test.ArchivedAt,
		"category":            test.Category,
		"tags":                test.Tags,
		"is_scheduled":        test.IsScheduled,
		"scheduled_start":     test.ScheduledStart,
		"scheduled_end":       test.ScheduledEnd,
		"auto_publish":        test.AutoPublish,
		"auto_close":          test.AutoClose,
		"updated_at":          time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update test: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateTestCache(ctx, r.cacheManager, test.ID, test.OwnerID)
	return nil
}

// Delete soft-deletes a test and hard-deletes its questions and invites
func (r *TestPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx).WithContext(ctx)

	var test models.Test
	if err := db.Select("id, owner_id").First(&test, id).Error; err != nil {
		return translateError(err)
	}

	if err := db.Where("test_id = ?", id).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}
	if err := db.Where("test_id = ?", id).Delete(&models.TestInvite{}).Error; err != nil {
		return fmt.Errorf("failed to delete invites: %w", err)
	}
	if err := db.Delete(&models.Test{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	cache.InvalidateTestCache(ctx, r.cacheManager, id, test.OwnerID)
	cache.InvalidateQuestionCache(ctx, r.cacheManager, id)
	return nil
}

func (r *TestPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	query := r.helpers.ApplyTestFilters(r.getDB(tx).WithContext(ctx).Model(&models.Test{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tests: %w", err)
	}

	var tests []*models.Test
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}

	if err := r.fillListAggregates(ctx, tx, tests); err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}

func (r *TestPostgreSQL) fillListAggregates(ctx context.Context, tx *gorm.DB, tests []*models.Test) error {
	if len(tests) == 0 {
		return nil
	}
	ids := make([]uint, len(tests))
	for i, t := range tests {
		ids[i] = t.ID
	}

	var rows []struct {
		TestID uint
		Count  int
		Total  int
	}
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Select("test_id, COUNT(*) AS count, COALESCE(SUM(points), 0) AS total").
		Where("test_id IN ?", ids).
		Group("test_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to aggregate questions: %w", err)
	}

	byID := make(map[uint]int, len(rows))
	for i, row := range rows {
		byID[row.TestID] = i
	}
	for _, t := range tests {
		if i, ok := byID[t.ID]; ok {
			t.QuestionCount = rows[i].Count
			t.TotalPoints = rows[i].Total
		}
	}
	return nil
}

// CountCreatedSince counts tests, deleted ones included, created by owner after since
func (r *TestPostgreSQL) CountCreatedSince(ctx context.Context, tx *gorm.DB, ownerID string, since time.Time) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Unscoped().
		Model(&models.Test{}).
		Where("owner_id = ? AND created_at >= ?", ownerID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tests: %w", err)
	}
	return count, nil
}

func (r *TestPostgreSQL) HasAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	count, err := r.helpers.CountAttempts(ctx, r.getDB(tx), id)
	if err != nil {
		return false, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count > 0, nil
}

func (r *TestPostgreSQL) ListDueForPublish(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Test, error) {
	var tests []*models.Test
	err := r.getDB(tx).WithContext(ctx).
		Where("is_scheduled = ? AND auto_publish = ? AND status = ? AND scheduled_start <= ?",
			true, true, models.TestScheduled, now).
		Order("scheduled_start ASC").
		Find(&tests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tests due for publish: %w", err)
	}
	return tests, nil
}

func (r *TestPostgreSQL) ListDueForClose(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Test, error) {
	var tests []*models.Test
	err := r.getDB(tx).WithContext(ctx).
		Where("is_scheduled = ? AND auto_close = ? AND status = ? AND scheduled_end <= ?",
			true, true, models.TestActive, now).
		Order("scheduled_end ASC").
		Find(&tests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tests due for close: %w", err)
	}
	return tests, nil
}

func (r *TestPostgreSQL) TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.TestStatus, locked bool) (bool, error) {
	var test models.Test
	result := r.getDB(tx).WithContext(ctx).
		Model(&test).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "owner_id"}}}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"is_locked":  locked,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition test %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	cache.InvalidateTestCache(ctx, r.cacheManager, id, test.OwnerID)
	return true, nil
}
