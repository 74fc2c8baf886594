package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

type SubscriptionPostgreSQL struct {
	db *gorm.DB
}

func NewSubscriptionPostgreSQL(db *gorm.DB) repositories.SubscriptionRepository {
	return &SubscriptionPostgreSQL{db: db}
}

func (s *SubscriptionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// GetOrCreate inserts a free subscription if missing; concurrent callers
// converge on the same row through the unique user_id index.
func (s *SubscriptionPostgreSQL) GetOrCreate(ctx context.Context, tx *gorm.DB, userID string, now time.Time) (*models.Subscription, error) {
	db := s.getDB(tx).WithContext(ctx)

	fresh := models.Subscription{
		UserID:            userID,
		Tier:              models.TierFree,
		Status:            models.SubscriptionActive,
		InviteWindowStart: now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return s.GetByUserID(ctx, tx, userID)
}

func (s *SubscriptionPostgreSQL) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.getDB(tx).WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}

func (s *SubscriptionPostgreSQL) GetByProviderID(ctx context.Context, tx *gorm.DB, providerID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.getDB(tx).WithContext(ctx).Where("provider_subscription_id = ?", providerID).First(&sub).Error; err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}

// Update saves tier and billing state; quota counters are only touched by ConsumeInvite
func (s *SubscriptionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"tier":                     sub.Tier,
			"status":                   sub.Status,
			"provider_subscription_id": sub.ProviderSubscriptionID,
			"last_payment_status":      sub.LastPaymentStatus,
			"last_payment_at":          sub.LastPaymentAt,
			"current_period_end":       sub.CurrentPeriodEnd,
			"updated_at":               time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ConsumeInvite rolls an expired window, then increments the counter only
// while it is below limit. Both statements are conditional, so concurrent
// callers can never push invites_used past limit.
func (s *SubscriptionPostgreSQL) ConsumeInvite(ctx context.Context, tx *gorm.DB, userID string, limit int, now time.Time) (bool, error) {
	db := s.getDB(tx).WithContext(ctx)

	err := db.Model(&models.Subscription{}).
		Where("user_id = ? AND invite_window_start <= ?", userID, now.Add(-models.InviteWindow)).
		Updates(map[string]interface{}{
			"invite_window_start": now,
			"invites_used":        0,
		}).Error
	if err != nil {
		return false, fmt.Errorf("failed to roll invite window: %w", err)
	}

	result := db.Model(&models.Subscription{}).
		Where("user_id = ? AND invites_used < ?", userID, limit).
		UpdateColumn("invites_used", gorm.Expr("invites_used + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume invite: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *SubscriptionPostgreSQL) ListExpired(ctx context.Context, tx *gorm.DB, now time.Time) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := s.getDB(tx).WithContext(ctx).
		Where("tier = ? AND current_period_end IS NOT NULL AND current_period_end < ?", models.TierPro, now).
		Order("current_period_end ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired subscriptions: %w", err)
	}
	return subs, nil
}

func (s *SubscriptionPostgreSQL) Expire(ctx context.Context, tx *gorm.DB, id uint, now time.Time) (bool, error) {
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND tier = ? AND current_period_end < ?", id, models.TierPro, now).
		Updates(map[string]interface{}{
			"tier":       models.TierFree,
			"status":     models.SubscriptionExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to expire subscription %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}
