package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gfgchapter/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerUser(t *testing.T, env *testEnv, name, email string) *models.User {
	t.Helper()
	user, err := env.users.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: "correct horse",
		DomainID: "app-development",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("new accounts are members", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerUser(t, env, "Mira", "Mira@Example.com")

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "mira@example.com", user.Email)
		assert.Equal(t, models.RoleMember, user.Role)
		assert.NotEqual(t, "correct horse", user.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := newTestEnv(t)
		registerUser(t, env, "Mira", "mira@example.com")

		_, err := env.users.Register(ctx, RegisterInput{Name: "Other", Email: "MIRA@example.com", Password: "12345678"})
		requireKind(t, KindInvalid, err)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.users.Register(ctx, RegisterInput{Name: "x", Email: "not-an-email", Password: "12345678"})
		requireKind(t, KindInvalid, err)
		_, err = env.users.Register(ctx, RegisterInput{Name: "x", Email: "x@example.com", Password: "short"})
		requireKind(t, KindInvalid, err)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := registerUser(t, env, "Mira", "mira@example.com")

	_, err := env.users.Authenticate(ctx, "mira@example.com", "wrong password")
	requireKind(t, KindPermissionDenied, err)
	_, err = env.users.Authenticate(ctx, "nobody@example.com", "correct horse")
	requireKind(t, KindPermissionDenied, err)

	session, err := env.users.Authenticate(ctx, " MIRA@example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.Settings.UserID)
	assert.True(t, session.Settings.IsLoggedIn)
	assert.Equal(t, models.RoleMember, session.Settings.Role)

	var stored models.User
	require.NoError(t, env.db.Where("id = ?", user.ID).First(&stored).Error)
	assert.False(t, stored.LastLogin.IsZero())

	_, err = env.users.SessionActor(ctx, user.ID, session.Version)
	require.NoError(t, err)

	require.NoError(t, env.users.Logout(ctx, user.ID))
	settings, err := env.users.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, settings.IsLoggedIn)

	// tokens from before the logout are dead, a fresh login works
	_, err = env.users.SessionActor(ctx, user.ID, session.Version)
	requireKind(t, KindPermissionDenied, err)

	again, err := env.users.Authenticate(ctx, "mira@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, session.Version+1, again.Version)
	actor, err := env.users.SessionActor(ctx, user.ID, again.Version)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)

	requireKind(t, KindNotFound, env.users.Logout(ctx, "missing"))
}

func TestGetSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("loads on a miss and caches", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerUser(t, env, "Mira", "mira@example.com")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				settings, err := env.users.GetSettings(ctx, user.ID)
				assert.NoError(t, err)
				assert.Equal(t, "Mira", settings.Name)
			}()
		}
		wg.Wait()

		cached, ok, err := env.users.cache.Get(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, user.Email, cached.Email)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.users.GetSettings(ctx, "missing")
		requireKind(t, KindNotFound, err)
	})

	t.Run("deleted account evicts the cache", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerUser(t, env, "Mira", "mira@example.com")
		_, err := env.users.GetSettings(ctx, user.ID)
		require.NoError(t, err)

		require.NoError(t, env.db.Where("id = ?", user.ID).Delete(&models.User{}).Error)
		_, err = env.users.Actor(ctx, user.ID)
		requireKind(t, KindNotFound, err)

		_, ok, err := env.users.cache.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("database stays canonical", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerUser(t, env, "Mira", "mira@example.com")
		_, err := env.users.GetSettings(ctx, user.ID)
		require.NoError(t, err)

		require.NoError(t, env.users.cache.Delete(ctx, user.ID))
		require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("name", "Mira K").Error)

		settings, err := env.users.GetSettings(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mira K", settings.Name)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := registerUser(t, env, "Mira", "mira@example.com")
	_, err := env.users.Authenticate(ctx, "mira@example.com", "correct horse")
	require.NoError(t, err)

	settings, err := env.users.UpdateProfile(ctx, user.ID, UpdateProfile{
		Name:          "Mira K",
		ProfilePicURL: "https://cdn.example.com/mira.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mira K", settings.Name)
	assert.Equal(t, "https://cdn.example.com/mira.png", settings.ProfilePicURL)
	assert.Equal(t, "app-development", settings.DomainID)
	assert.True(t, settings.IsLoggedIn)

	_, err = env.users.UpdateProfile(ctx, user.ID, UpdateProfile{})
	requireKind(t, KindInvalid, err)
	_, err = env.users.UpdateProfile(ctx, user.ID, UpdateProfile{ProfilePicURL: "not a url"})
	requireKind(t, KindInvalid, err)
	_, err = env.users.UpdateProfile(ctx, "missing", UpdateProfile{Name: "x"})
	requireKind(t, KindNotFound, err)
}

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := registerUser(t, env, "Mira", "mira@example.com")

	_, err := env.users.SetRole(ctx, lead, user.ID, "TEAM_LEAD")
	requireKind(t, KindPermissionDenied, err)
	_, err = env.users.SetRole(ctx, admin, user.ID, "OWNER")
	requireKind(t, KindInvalid, err)

	settings, err := env.users.SetRole(ctx, admin, user.ID, "team_lead")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeamLead, settings.Role)

	actor, err := env.users.Actor(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeamLead, actor.Role)
	assert.True(t, actor.Role.CanModerate())
}

func TestActorFallsBackToMember(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := registerUser(t, env, "Mira", "mira@example.com")
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("role", "SUPERUSER").Error)

	actor, err := env.users.Actor(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, actor.Role)

	_, err = env.users.Actor(ctx, "missing")
	requireKind(t, KindNotFound, err)
}

func TestAwardCreditsAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mira := registerUser(t, env, "Mira", "mira@example.com")
	otto := registerUser(t, env, "Otto", "otto@example.com")
	registerUser(t, env, "Zed", "zed@example.com")

	_, err := env.users.AwardCredits(ctx, member, mira.ID, 10)
	requireKind(t, KindPermissionDenied, err)
	_, err = env.users.AwardCredits(ctx, lead, mira.ID, 0)
	requireKind(t, KindInvalid, err)
	_, err = env.users.AwardCredits(ctx, lead, "missing", 5)
	requireKind(t, KindNotFound, err)

	settings, err := env.users.AwardCredits(ctx, lead, mira.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, settings.TotalCredits)
	settings, err = env.users.AwardCredits(ctx, admin, mira.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 15, settings.TotalCredits)
	_, err = env.users.AwardCredits(ctx, lead, otto.ID, 20)
	require.NoError(t, err)

	board := env.users.Leaderboard(ctx, 2)
	require.Len(t, board, 2)
	assert.Equal(t, otto.ID, board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 20, board[0].TotalCredits)
	assert.Equal(t, mira.ID, board[1].UserID)
	assert.Equal(t, 2, board[1].Rank)

	assert.Len(t, env.users.Leaderboard(ctx, 0), 3)
}

func TestLeaderboardFailSoft(t *testing.T) {
	svc := NewUserService(closedDB(t), NewMemorySettingsCache(time.Minute), noSleepPolicy())
	board := svc.Leaderboard(context.Background(), 10)
	assert.NotNil(t, board)
	assert.Empty(t, board)
}

func TestMemorySettingsCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemorySettingsCache(time.Millisecond)
	require.NoError(t, cache.Set(ctx, models.UserSettings{UserID: "u1", Name: "Mira"}))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}
