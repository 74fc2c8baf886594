package repositories

import (
	"context"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// UserRepository reads identities owned by the identity provider
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}
