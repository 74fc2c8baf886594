package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// InviteRepository stores single-use invite tokens
type InviteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, invite *models.TestInvite) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestInvite, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.TestInvite, error)
	ListByTest(ctx context.Context, tx *gorm.DB, testID uint, filters InviteFilters) ([]*models.TestInvite, int64, error)

	// MarkUsed flips is_used only if the token is still unused.
	// It reports whether this call won the redemption.
	MarkUsed(ctx context.Context, tx *gorm.DB, token string, at time.Time) (bool, error)
	UpdateDelivery(ctx context.Context, tx *gorm.DB, id uint, sent bool, deliveryErr *string) error
}
