package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gfgchapter/database/dbtest"
	"gfgchapter/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	logrus.SetLevel(logrus.ErrorLevel)
}

// stepClock hands out strictly increasing whole-second timestamps.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func noSleepPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

var (
	member = models.Actor{ID: "u-member", Name: "Mira", Role: models.RoleMember}
	other  = models.Actor{ID: "u-other", Name: "Otto", Role: models.RoleMember}
	lead   = models.Actor{ID: "u-lead", Name: "Lena", Role: models.RoleTeamLead}
	admin  = models.Actor{ID: "u-admin", Name: "Ada", Role: models.RoleAdmin}
)

type testEnv struct {
	db        *gorm.DB
	feed      *LocalFeed
	clock     *stepClock
	teams     *TeamService
	threads   *ThreadService
	messages  *MessageService
	lifecycle *ThreadLifecycle
	users     *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	feed := NewLocalFeed()
	clock := newStepClock()
	retry := noSleepPolicy()

	env := &testEnv{
		db:       db,
		feed:     feed,
		clock:    clock,
		teams:    NewTeamService(db),
		threads:  NewThreadService(db, feed, retry),
		messages: NewMessageService(db, feed, retry),
		users:    NewUserService(db, NewMemorySettingsCache(time.Hour), retry),
	}
	env.threads.now = clock.Now
	env.messages.now = clock.Now
	env.users.now = clock.Now
	env.users.hashFn = func(p []byte) ([]byte, error) {
		return bcrypt.GenerateFromPassword(p, bcrypt.MinCost)
	}
	env.lifecycle = NewThreadLifecycle(env.threads)

	_, err := env.teams.SeedTeams(context.Background(), []models.Team{
		{ID: "app-development", Name: "App Development"},
		{ID: "web-development", Name: "Web Development"},
	})
	require.NoError(t, err)
	return env
}

func (e *testEnv) createThread(t *testing.T, teamID, title string, author models.Actor) *models.ThreadDetails {
	t.Helper()
	thread, err := e.threads.CreateThread(context.Background(), NewThread{
		TeamID:  teamID,
		Title:   title,
		Message: "How do I get started with " + title + "?",
	}, author)
	require.NoError(t, err)
	return thread
}

func (e *testEnv) activeThread(t *testing.T, teamID, title string) *models.ThreadDetails {
	t.Helper()
	thread := e.createThread(t, teamID, title, member)
	require.NoError(t, e.threads.SetEnabled(context.Background(), teamID, thread.ID, true))
	thread.IsEnabled = true
	return thread
}

// closedDB returns a handle whose every query fails.
func closedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := dbtest.Open(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return db
}

func requireKind(t *testing.T, want ErrorKind, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "error: %v", err)
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
	}
	var zero T
	return zero
}
