package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// SubscriptionRepository stores tiers and invite quota counters
type SubscriptionRepository interface {
	// GetOrCreate returns the user's subscription, creating a free one if none exists.
	GetOrCreate(ctx context.Context, tx *gorm.DB, userID string, now time.Time) (*models.Subscription, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.Subscription, error)
	GetByProviderID(ctx context.Context, tx *gorm.DB, providerID string) (*models.Subscription, error)
	Update(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error

	// ConsumeInvite takes one invite from the weekly allowance. An expired
	// window is rolled first. It reports false when the allowance is used up.
	ConsumeInvite(ctx context.Context, tx *gorm.DB, userID string, limit int, now time.Time) (bool, error)

	ListExpired(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Subscription, error)
	// Expire downgrades a pro subscription whose period ended before now.
	Expire(ctx context.Context, tx *gorm.DB, id uint, now time.Time) (bool, error)
}
