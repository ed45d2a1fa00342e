package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gfgchapter/models"
	"gfgchapter/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeThreads struct {
	mu      sync.Mutex
	streams map[string]chan []models.ThreadDetails
	ctxs    map[string]context.Context
	failOn  string
	created []services.NewThread
	enabled []string
	failAct error
}

func newFakeThreads() *fakeThreads {
	return &fakeThreads{
		streams: map[string]chan []models.ThreadDetails{},
		ctxs:    map[string]context.Context{},
	}
}

func (f *fakeThreads) ObserveThreads(ctx context.Context, teamID string) (<-chan []models.ThreadDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if teamID == f.failOn {
		return nil, services.NotFound("ObserveThreads", "team not found")
	}
	ch := make(chan []models.ThreadDetails, 4)
	f.streams[teamID] = ch
	f.ctxs[teamID] = ctx
	return ch, nil
}

func (f *fakeThreads) CreateThread(_ context.Context, in services.NewThread, author models.Actor) (*models.ThreadDetails, error) {
	if f.failAct != nil {
		return nil, f.failAct
	}
	f.created = append(f.created, in)
	return &models.ThreadDetails{ID: "t1", TeamID: in.TeamID, Title: in.Title, AuthorID: author.ID}, nil
}

func (f *fakeThreads) EnableThread(_ context.Context, actor models.Actor, teamID, threadID string) error {
	if !actor.Role.CanModerate() {
		return services.Forbidden("EnableThread", "only team leads can approve threads")
	}
	f.enabled = append(f.enabled, threadID)
	return nil
}

func (f *fakeThreads) stream(teamID string) chan []models.ThreadDetails {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[teamID]
}

func (f *fakeThreads) ctx(teamID string) context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctxs[teamID]
}

func waitFor[T any](t *testing.T, obs *Observable[UIState[T]], want Status) UIState[T] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		ch := obs.Changes()
		if s := obs.Value(); s.Status == want {
			return s
		}
		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("state never became %s (last %+v)", want, obs.Value())
		}
	}
}

func TestObservable(t *testing.T) {
	obs := NewObservable(1)
	ch := obs.Changes()
	assert.Equal(t, 1, obs.Value())

	obs.Set(2)
	select {
	case <-ch:
	default:
		t.Fatal("Set must close the previous Changes channel")
	}
	assert.Equal(t, 2, obs.Value())

	select {
	case <-obs.Changes():
		t.Fatal("fresh Changes channel must be open")
	default:
	}
}

func TestMentorshipViewModel(t *testing.T) {
	member := models.Actor{ID: "u1", Name: "Mira", Role: models.RoleMember}

	t.Run("loading then success", func(t *testing.T) {
		src := newFakeThreads()
		vm := NewMentorshipViewModel(context.Background(), src, src, member)
		defer vm.Close()

		vm.SelectTeam("app")
		assert.Equal(t, StatusLoading, vm.Threads().Value().Status)

		src.stream("app") <- []models.ThreadDetails{{ID: "a"}}
		s := waitFor(t, vm.Threads(), StatusSuccess)
		require.Len(t, s.Data, 1)
		assert.Equal(t, "a", s.Data[0].ID)
	})

	t.Run("subscribe failure becomes error state", func(t *testing.T) {
		src := newFakeThreads()
		src.failOn = "gone"
		vm := NewMentorshipViewModel(context.Background(), src, src, member)
		defer vm.Close()

		vm.SelectTeam("gone")
		s := waitFor(t, vm.Threads(), StatusError)
		assert.Equal(t, "team not found", s.Message)
	})

	t.Run("switching team cancels the old stream and ignores late emissions", func(t *testing.T) {
		src := newFakeThreads()
		vm := NewMentorshipViewModel(context.Background(), src, src, member)
		defer vm.Close()

		vm.SelectTeam("app")
		old := src.stream("app")
		vm.SelectTeam("web")

		require.Eventually(t, func() bool { return src.ctx("app").Err() != nil }, time.Second, 5*time.Millisecond)

		old <- []models.ThreadDetails{{ID: "stale"}}
		src.stream("web") <- []models.ThreadDetails{{ID: "fresh"}}

		s := waitFor(t, vm.Threads(), StatusSuccess)
		require.Len(t, s.Data, 1)
		assert.Equal(t, "fresh", s.Data[0].ID)

		// give a stale delivery a chance to land, then check it did not
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, "fresh", vm.Threads().Value().Data[0].ID)
	})

	t.Run("actions record failures", func(t *testing.T) {
		src := newFakeThreads()
		vm := NewMentorshipViewModel(context.Background(), src, src, member)
		defer vm.Close()

		err := vm.EnableThread(context.Background(), "app", "t1")
		require.Error(t, err)
		assert.Equal(t, "only team leads can approve threads", vm.ActionError.Value())

		thread, err := vm.CreateThread(context.Background(), services.NewThread{TeamID: "app", Title: "q", Message: "m"})
		require.NoError(t, err)
		assert.Equal(t, member.ID, thread.AuthorID)
		assert.Empty(t, vm.ActionError.Value())

		src.failAct = errors.New("boom")
		_, err = vm.CreateThread(context.Background(), services.NewThread{TeamID: "app", Title: "q", Message: "m"})
		require.Error(t, err)
		assert.Equal(t, "Something went wrong. Please try again.", vm.ActionError.Value())
	})

	t.Run("close cancels the subscription", func(t *testing.T) {
		src := newFakeThreads()
		vm := NewMentorshipViewModel(context.Background(), src, src, member)
		vm.SelectTeam("app")
		vm.Close()
		assert.Error(t, src.ctx("app").Err())
	})
}

type fakeMessages struct {
	mu     sync.Mutex
	stream chan []models.ThreadMessage
	opened []string
	sent   []services.SendMessage
}

func (f *fakeMessages) ObserveMessages(_ context.Context, teamID, threadID string) (<-chan []models.ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, teamID+"/"+threadID)
	f.stream = make(chan []models.ThreadMessage, 4)
	return f.stream, nil
}

func (f *fakeMessages) SendMessage(_ context.Context, in services.SendMessage, sender models.Actor) (*models.ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.Text == "" {
		return nil, services.Invalid("SendMessage", "text is required")
	}
	f.sent = append(f.sent, in)
	return &models.ThreadMessage{ThreadID: in.ThreadID, Message: in.Text, SenderID: sender.ID}, nil
}

func TestThreadViewModel(t *testing.T) {
	lead := models.Actor{ID: "u2", Name: "Lena", Role: models.RoleTeamLead}

	t.Run("sending needs an open thread", func(t *testing.T) {
		vm := NewThreadViewModel(context.Background(), &fakeMessages{}, lead)
		defer vm.Close()

		_, err := vm.SendMessage(context.Background(), "hi")
		require.Error(t, err)
		assert.Equal(t, "no thread is open", vm.ActionError.Value())
	})

	t.Run("mirrors the open thread and sends to it", func(t *testing.T) {
		src := &fakeMessages{}
		vm := NewThreadViewModel(context.Background(), src, lead)
		defer vm.Close()

		vm.OpenThread("app", "t1")
		src.mu.Lock()
		stream := src.stream
		src.mu.Unlock()
		stream <- []models.ThreadMessage{{ID: "m1", Message: "hello"}}

		s := waitFor(t, vm.Messages(), StatusSuccess)
		require.Len(t, s.Data, 1)

		msg, err := vm.SendMessage(context.Background(), "answer")
		require.NoError(t, err)
		assert.Equal(t, "t1", msg.ThreadID)
		assert.Equal(t, lead.ID, msg.SenderID)
		assert.Equal(t, "app", src.sent[0].TeamID)

		_, err = vm.SendMessage(context.Background(), "")
		require.Error(t, err)
		assert.Equal(t, "text is required", vm.ActionError.Value())
	})

	t.Run("closing forgets the thread", func(t *testing.T) {
		src := &fakeMessages{}
		vm := NewThreadViewModel(context.Background(), src, lead)

		vm.OpenThread("app", "t1")
		vm.Close()

		_, err := vm.SendMessage(context.Background(), "late reply")
		require.Error(t, err)
		assert.Equal(t, "no thread is open", vm.ActionError.Value())
		src.mu.Lock()
		defer src.mu.Unlock()
		assert.Empty(t, src.sent)
	})
}
