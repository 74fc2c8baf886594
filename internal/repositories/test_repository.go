package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// TestRepository stores tests. Methods taking tx use it when non-nil.
type TestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, test *models.Test) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	Update(ctx context.Context, tx *gorm.DB, test *models.Test) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters TestFilters) ([]*models.Test, int64, error)

	CountCreatedSince(ctx context.Context, tx *gorm.DB, ownerID string, since time.Time) (int64, error)
	HasAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error)

	// Scheduling queries
	ListDueForPublish(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Test, error)
	ListDueForClose(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Test, error)

	// TransitionStatus moves a test from one status to another only if it is
	// still in the expected status. It reports whether a row changed.
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.TestStatus, locked bool) (bool, error)
}
