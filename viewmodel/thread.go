package viewmodel

import (
	"context"
	"sync"

	"gfgchapter/models"
	"gfgchapter/services"
)

// MessageSource is the part of the message store the thread screen uses.
type MessageSource interface {
	ObserveMessages(ctx context.Context, teamID, threadID string) (<-chan []models.ThreadMessage, error)
	SendMessage(ctx context.Context, in services.SendMessage, sender models.Actor) (*models.ThreadMessage, error)
}

// ThreadViewModel backs a single open thread.
type ThreadViewModel struct {
	messages MessageSource
	actor    models.Actor
	list     *live[[]models.ThreadMessage]

	mu       sync.Mutex
	teamID   string
	threadID string

	ActionError *Observable[string]
}

func NewThreadViewModel(ctx context.Context, messages MessageSource, actor models.Actor) *ThreadViewModel {
	return &ThreadViewModel{
		messages:    messages,
		actor:       actor,
		list:        newLive[[]models.ThreadMessage](ctx),
		ActionError: NewObservable(""),
	}
}

func (vm *ThreadViewModel) Messages() *Observable[UIState[[]models.ThreadMessage]] {
	return vm.list.state
}

// OpenThread replaces the current subscription with one for threadID.
func (vm *ThreadViewModel) OpenThread(teamID, threadID string) {
	vm.mu.Lock()
	vm.teamID, vm.threadID = teamID, threadID
	vm.mu.Unlock()

	vm.list.follow(func(ctx context.Context) (<-chan []models.ThreadMessage, error) {
		return vm.messages.ObserveMessages(ctx, teamID, threadID)
	})
}

// SendMessage replies to the open thread.
func (vm *ThreadViewModel) SendMessage(ctx context.Context, text string) (*models.ThreadMessage, error) {
	vm.mu.Lock()
	teamID, threadID := vm.teamID, vm.threadID
	vm.mu.Unlock()

	if threadID == "" {
		err := services.Invalid("SendMessage", "no thread is open")
		vm.ActionError.Set(errorMessage(err))
		return nil, err
	}

	msg, err := vm.messages.SendMessage(ctx, services.SendMessage{TeamID: teamID, ThreadID: threadID, Text: text}, vm.actor)
	if err != nil {
		vm.ActionError.Set(errorMessage(err))
		return nil, err
	}
	vm.ActionError.Set("")
	return msg, nil
}

// Close stops mirroring and forgets the open thread, so later sends fail.
func (vm *ThreadViewModel) Close() {
	vm.mu.Lock()
	vm.teamID, vm.threadID = "", ""
	vm.mu.Unlock()
	vm.list.stop()
}
