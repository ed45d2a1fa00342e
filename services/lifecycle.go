// services/lifecycle.go - Thread approval and moderation rules
package services

import (
	"context"

	"gfgchapter/models"
)

// ThreadLifecycle enforces who may move a thread from pending to active and
// who may moderate it afterwards.
type ThreadLifecycle struct {
	threads *ThreadService
}

func NewThreadLifecycle(threads *ThreadService) *ThreadLifecycle {
	return &ThreadLifecycle{threads: threads}
}

// StateOf reports the lifecycle state of a thread.
func StateOf(t models.ThreadDetails) models.ThreadState {
	return t.State()
}

// EnableThread approves a pending thread. Only team leads and admins may do this.
func (l *ThreadLifecycle) EnableThread(ctx context.Context, actor models.Actor, teamID, threadID string) error {
	if !actor.Role.CanModerate() {
		return Forbidden("EnableThread", "only team leads can approve threads")
	}
	return l.threads.SetEnabled(ctx, teamID, threadID, true)
}

// SetPinned pins or unpins a thread. Moderators only.
func (l *ThreadLifecycle) SetPinned(ctx context.Context, actor models.Actor, teamID, threadID string, pinned bool) (*models.ThreadDetails, error) {
	return l.ApplyFlags(ctx, actor, teamID, threadID, ThreadFlags{Pinned: &pinned})
}

// SetResolved marks a thread answered. The author or a moderator may do this.
func (l *ThreadLifecycle) SetResolved(ctx context.Context, actor models.Actor, teamID, threadID string, resolved bool) (*models.ThreadDetails, error) {
	return l.ApplyFlags(ctx, actor, teamID, threadID, ThreadFlags{Resolved: &resolved})
}

// ApplyFlags checks each requested flag against the actor's rights, then updates them together.
func (l *ThreadLifecycle) ApplyFlags(ctx context.Context, actor models.Actor, teamID, threadID string, flags ThreadFlags) (*models.ThreadDetails, error) {
	if flags.Pinned != nil && !actor.Role.CanModerate() {
		return nil, Forbidden("SetPinned", "only team leads can pin threads")
	}
	if flags.Resolved != nil {
		if err := l.requireAuthorOrModerator(ctx, "SetResolved", actor, teamID, threadID); err != nil {
			return nil, err
		}
	}
	return l.threads.UpdateFlags(ctx, teamID, threadID, flags)
}

// DeleteThread removes a thread. The author or a moderator may do this.
func (l *ThreadLifecycle) DeleteThread(ctx context.Context, actor models.Actor, teamID, threadID string) error {
	if err := l.requireAuthorOrModerator(ctx, "DeleteThread", actor, teamID, threadID); err != nil {
		return err
	}
	return l.threads.Delete(ctx, teamID, threadID)
}

func (l *ThreadLifecycle) requireAuthorOrModerator(ctx context.Context, op string, actor models.Actor, teamID, threadID string) error {
	if actor.Role.CanModerate() {
		return nil
	}
	thread, err := l.threads.GetThread(ctx, teamID, threadID)
	if err != nil {
		return err
	}
	if actor.ID == "" || thread.AuthorID != actor.ID {
		return Forbidden(op, "only the author or a team lead can change this thread")
	}
	return nil
}
