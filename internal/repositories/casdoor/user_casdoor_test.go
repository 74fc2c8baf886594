package casdoor

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

type fakeLookup struct {
	users map[string]*casdoorsdk.User
	calls int
}

func (f *fakeLookup) GetUserByUserId(id string) (*casdoorsdk.User, error) {
	f.calls++
	return f.users[id], nil
}

func TestRoleOf(t *testing.T) {
	tests := []struct {
		name string
		user *casdoorsdk.User
		want models.UserRole
	}{
		{"no roles", &casdoorsdk.User{}, models.RoleStudent},
		{"instructor", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "Instructor"}}}, models.RoleTeacher},
		{"admin flag", &casdoorsdk.User{IsAdmin: true}, models.RoleAdmin},
		{"admin among roles", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "teacher"}, {Name: "admin"}}}, models.RoleAdmin},
		{"unknown role", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "proctor"}}}, models.RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoleOf(tt.user))
		})
	}
}

func TestGetByID_CachesResult(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lookup := &fakeLookup{users: map[string]*casdoorsdk.User{
		"u1": {Id: "u1", Name: "alice", Email: "Alice@Example.com"},
	}}
	dir := newUserCasdoor(lookup, cache.NewCacheManager(client))

	ctx := context.Background()
	user, err := dir.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.DisplayName)
	assert.Equal(t, "alice@example.com", user.Email)

	again, err := dir.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, 1, lookup.calls)
}

func TestGetByID_NotFound(t *testing.T) {
	dir := newUserCasdoor(&fakeLookup{users: map[string]*casdoorsdk.User{}}, nil)

	_, err := dir.GetByID(context.Background(), "missing")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestGetByIDs_SkipsMissingAndDuplicates(t *testing.T) {
	lookup := &fakeLookup{users: map[string]*casdoorsdk.User{
		"a": {Id: "a", DisplayName: "A"},
		"b": {Id: "b", DisplayName: "B"},
	}}
	dir := newUserCasdoor(lookup, nil)

	users, err := dir.GetByIDs(context.Background(), []string{"a", "x", "b", "a"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "A", users[0].DisplayName)
	assert.Equal(t, "B", users[1].DisplayName)
}
