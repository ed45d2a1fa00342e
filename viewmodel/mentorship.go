package viewmodel

import (
	"context"

	"gfgchapter/models"
	"gfgchapter/services"
)

// ThreadSource is the part of the thread store the team screen uses.
type ThreadSource interface {
	ObserveThreads(ctx context.Context, teamID string) (<-chan []models.ThreadDetails, error)
	CreateThread(ctx context.Context, in services.NewThread, author models.Actor) (*models.ThreadDetails, error)
}

// ThreadApprover approves pending threads on behalf of an actor.
type ThreadApprover interface {
	EnableThread(ctx context.Context, actor models.Actor, teamID, threadID string) error
}

// MentorshipViewModel backs the team thread list.
type MentorshipViewModel struct {
	threads  ThreadSource
	approver ThreadApprover
	actor    models.Actor
	list     *live[[]models.ThreadDetails]

	// ActionError is the last create/approve failure, or "" after a success.
	ActionError *Observable[string]
}

func NewMentorshipViewModel(ctx context.Context, threads ThreadSource, approver ThreadApprover, actor models.Actor) *MentorshipViewModel {
	return &MentorshipViewModel{
		threads:     threads,
		approver:    approver,
		actor:       actor,
		list:        newLive[[]models.ThreadDetails](ctx),
		ActionError: NewObservable(""),
	}
}

// Threads is the live state of the selected team's thread list.
func (vm *MentorshipViewModel) Threads() *Observable[UIState[[]models.ThreadDetails]] {
	return vm.list.state
}

// SelectTeam replaces the current subscription with one for teamID.
func (vm *MentorshipViewModel) SelectTeam(teamID string) {
	vm.list.follow(func(ctx context.Context) (<-chan []models.ThreadDetails, error) {
		return vm.threads.ObserveThreads(ctx, teamID)
	})
}

func (vm *MentorshipViewModel) CreateThread(ctx context.Context, in services.NewThread) (*models.ThreadDetails, error) {
	thread, err := vm.threads.CreateThread(ctx, in, vm.actor)
	vm.recordAction(err)
	return thread, err
}

func (vm *MentorshipViewModel) EnableThread(ctx context.Context, teamID, threadID string) error {
	err := vm.approver.EnableThread(ctx, vm.actor, teamID, threadID)
	vm.recordAction(err)
	return err
}

func (vm *MentorshipViewModel) recordAction(err error) {
	if err != nil {
		vm.ActionError.Set(errorMessage(err))
		return
	}
	vm.ActionError.Set("")
}

// Close cancels the live subscription.
func (vm *MentorshipViewModel) Close() {
	vm.list.stop()
}
