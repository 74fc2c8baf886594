package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	if err := a.getDB(tx).WithContext(ctx).Omit("Answers").Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.getDB(tx).WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	err := a.getDB(tx).WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).
		First(&attempt, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ListByTest(ctx context.Context, tx *gorm.DB, testID uint, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	query := a.getDB(tx).WithContext(ctx).Model(&models.TestAttempt{}).Where("test_id = ?", testID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	var attempts []*models.TestAttempt
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) ListWithAnswers(ctx context.Context, tx *gorm.DB, testID uint) ([]models.TestAttempt, error) {
	var attempts []models.TestAttempt
	err := a.getDB(tx).WithContext(ctx).
		Where("test_id = ?", testID).
		Preload("Answers").
		Order("id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts with answers: %w", err)
	}
	return attempts, nil
}

// Complete is the compare-and-set that guarantees one scoring pass
func (a *AttemptPostgreSQL) Complete(ctx context.Context, tx *gorm.DB, id uint, score float64, end time.Time) (bool, error) {
	result := a.getDB(tx).WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"score":        score,
			"end_time":     end,
			"updated_at":   end,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete attempt: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	if err := a.getDB(tx).WithContext(ctx).CreateInBatches(answers, 100).Error; err != nil {
		return fmt.Errorf("failed to create answers: %w", err)
	}
	return nil
}

func (a *AnswerPostgreSQL) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := a.getDB(tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}
