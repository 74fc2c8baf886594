package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := q.getDB(tx).WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.TestID)
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.getDB(tx).WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	result := q.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ? AND test_id = ?", question.ID, question.TestID).
		Updates(map[string]interface{}{
			"text":     question.Text,
			"points":   question.Points,
			"position": question.Position,
			"payload":  question.Payload,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.TestID)
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx).WithContext(ctx)

	var question models.Question
	if err := db.Select("id, test_id").First(&question, id).Error; err != nil {
		return translateError(err)
	}
	if err := db.Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.TestID)
	return nil
}

// ListByTest is cached outside transactions; the list is what attempt
// sessions and grading read on every request.
func (q *QuestionPostgreSQL) ListByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]models.Question, error) {
	fetch := func() (interface{}, error) {
		var questions []models.Question
		err := q.getDB(tx).WithContext(ctx).
			Where("test_id = ?", testID).
			Order("position ASC").
			Order("id ASC").
			Find(&questions).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list questions: %w", err)
		}
		return questions, nil
	}

	if tx != nil || inTransaction(q.db) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.([]models.Question), nil
	}

	var questions []models.Question
	if err := q.cacheManager.Question.CacheOrExecute(ctx, cache.QuestionsKey(testID), &questions, cache.QuestionCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) CountByTest(ctx context.Context, tx *gorm.DB, testID uint) (int64, error) {
	var count int64
	err := q.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("test_id = ?", testID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

func (q *QuestionPostgreSQL) NextPosition(ctx context.Context, tx *gorm.DB, testID uint) (int, error) {
	var maxPos int
	err := q.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Select("COALESCE(MAX(position), 0)").
		Where("test_id = ?", testID).
		Scan(&maxPos).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get next position: %w", err)
	}
	return maxPos + 1, nil
}

func (q *QuestionPostgreSQL) UpdatePositions(ctx context.Context, tx *gorm.DB, testID uint, ids []uint) error {
	db := q.getDB(tx).WithContext(ctx)
	for i, id := range ids {
		result := db.Model(&models.Question{}).
			Where("id = ? AND test_id = ?", id, testID).
			Update("position", i+1)
		if result.Error != nil {
			return fmt.Errorf("failed to update position of question %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
	}
	cache.InvalidateQuestionCache(ctx, q.cacheManager, testID)
	return nil
}
