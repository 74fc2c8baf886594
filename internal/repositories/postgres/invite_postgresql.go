package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

type InvitePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewInvitePostgreSQL(db *gorm.DB) repositories.InviteRepository {
	return &InvitePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *InvitePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *InvitePostgreSQL) Create(ctx context.Context, tx *gorm.DB, invite *models.TestInvite) error {
	if err := r.getDB(tx).WithContext(ctx).Create(invite).Error; err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

func (r *InvitePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestInvite, error) {
	var invite models.TestInvite
	if err := r.getDB(tx).WithContext(ctx).First(&invite, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &invite, nil
}

func (r *InvitePostgreSQL) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.TestInvite, error) {
	var invite models.TestInvite
	if err := r.getDB(tx).WithContext(ctx).Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, translateError(err)
	}
	return &invite, nil
}

func (r *InvitePostgreSQL) ListByTest(ctx context.Context, tx *gorm.DB, testID uint, filters repositories.InviteFilters) ([]*models.TestInvite, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.TestInvite{}).Where("test_id = ?", testID)
	if filters.Used != nil {
		query = query.Where("is_used = ?", *filters.Used)
	}
	if filters.Email != "" {
		query = query.Where("email = ?", strings.ToLower(filters.Email))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invites: %w", err)
	}

	var invites []*models.TestInvite
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&invites).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, total, nil
}

// MarkUsed is the compare-and-set that makes a token single use
func (r *InvitePostgreSQL) MarkUsed(ctx context.Context, tx *gorm.DB, token string, at time.Time) (bool, error) {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.TestInvite{}).
		Where("token = ? AND is_used = ?", token, false).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_at":    at,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark invite used: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *InvitePostgreSQL) UpdateDelivery(ctx context.Context, tx *gorm.DB, id uint, sent bool, deliveryErr *string) error {
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.TestInvite{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_sent":     sent,
			"delivery_error": deliveryErr,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record invite delivery: %w", err)
	}
	return nil
}
