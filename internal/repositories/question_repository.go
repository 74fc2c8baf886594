package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// QuestionRepository stores the questions of a test
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// ListByTest returns questions ordered by position, then id.
	ListByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]models.Question, error)
	CountByTest(ctx context.Context, tx *gorm.DB, testID uint) (int64, error)
	NextPosition(ctx context.Context, tx *gorm.DB, testID uint) (int, error)
	// UpdatePositions assigns positions 1..n following ids.
	UpdatePositions(ctx context.Context, tx *gorm.DB, testID uint, ids []uint) error
}
