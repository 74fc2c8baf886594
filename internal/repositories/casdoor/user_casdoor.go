package casdoor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// userLookup is the slice of the Casdoor SDK this directory needs
type userLookup interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
}

type UserCasdoor struct {
	client userLookup
	cache  *cache.CacheHelper
}

func NewUserCasdoor(config CasdoorConfig, cacheManager *cache.CacheManager) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return newUserCasdoor(client, cacheManager)
}

func newUserCasdoor(client userLookup, cacheManager *cache.CacheManager) *UserCasdoor {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &UserCasdoor{
		client: client,
		cache:  cacheManager.User,
	}
}

// ToModel converts a Casdoor account into the local user view
func ToModel(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var createdAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}

	name := casdoorUser.DisplayName
	if name == "" {
		name = casdoorUser.Name
	}

	var avatar *string
	if casdoorUser.Avatar != "" {
		a := casdoorUser.Avatar
		avatar = &a
	}

	return &models.User{
		ID:          casdoorUser.Id,
		DisplayName: name,
		Email:       strings.ToLower(casdoorUser.Email),
		Role:        RoleOf(casdoorUser),
		AvatarURL:   avatar,
		CreatedAt:   createdAt,
	}
}

// RoleOf picks the strongest role granted to a Casdoor account.
// Admin wins, then teacher; anyone else is a student.
func RoleOf(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	role := models.RoleStudent
	for _, r := range casdoorUser.Roles {
		switch mapRole(r.Name) {
		case models.RoleAdmin:
			return models.RoleAdmin
		case models.RoleTeacher:
			role = models.RoleTeacher
		}
	}
	return role
}

func mapRole(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "teacher", "instructor":
		return models.RoleTeacher
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

func userKey(id string) string { return fmt.Sprintf("id:%s", id) }

// GetByID retrieves a user by ID, consulting the user cache first
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	var cached models.User
	err := u.cache.Get(ctx, userKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "User cache read failed", "error", err, "user_id", id)
	}

	casdoorUser, err := u.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, repositories.ErrNotFound
	}

	user := ToModel(casdoorUser)
	if err := u.cache.Set(ctx, userKey(id), user, cache.UserCacheConfig.TTL); err != nil {
		slog.WarnContext(ctx, "User cache write failed", "error", err, "user_id", id)
	}
	return user, nil
}

// GetByIDs resolves users one by one; unknown or failing IDs are skipped
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		user, err := u.GetByID(ctx, id)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				slog.WarnContext(ctx, "Failed to resolve user", "error", err, "user_id", id)
			}
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
