package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// AttemptRepository stores attempts
type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error)
	ListByTest(ctx context.Context, tx *gorm.DB, testID uint, filters AttemptFilters) ([]*models.TestAttempt, int64, error)
	// ListWithAnswers returns every attempt of a test with its answers preloaded.
	ListWithAnswers(ctx context.Context, tx *gorm.DB, testID uint) ([]models.TestAttempt, error)

	// Complete finalizes an attempt only if it is not completed yet.
	// It reports whether this call performed the scoring pass.
	Complete(ctx context.Context, tx *gorm.DB, id uint, score float64, end time.Time) (bool, error)
}

// AnswerRepository stores graded answers; rows are written once
type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []models.Answer) error
	ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]models.Answer, error)
}
