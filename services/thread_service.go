// services/thread_service.go - Mentorship thread store
package services

import (
	"context"
	"strings"
	"time"

	"gfgchapter/models"
	"gfgchapter/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewThread is the input for CreateThread.
type NewThread struct {
	TeamID   string   `json:"team_id" validate:"required,max=64"`
	Title    string   `json:"title" validate:"required,max=200"`
	Message  string   `json:"message" validate:"required,max=5000"`
	Category string   `json:"category" validate:"max=64"`
	Tags     []string `json:"tags" validate:"max=10,dive,max=32"`
}

// ThreadFlags carries optional flag updates; nil fields are left alone.
type ThreadFlags struct {
	Pinned   *bool `json:"is_pinned"`
	Resolved *bool `json:"is_resolved"`
}

type ThreadService struct {
	db    *gorm.DB
	feed  ChangeFeed
	retry RetryPolicy
	now   func() time.Time
	log   *logrus.Entry
}

func NewThreadService(db *gorm.DB, feed ChangeFeed, retry RetryPolicy) *ThreadService {
	return &ThreadService{
		db:    db,
		feed:  feed,
		retry: retry,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logrus.WithField("component", "threads"),
	}
}

// ================== READS ==================

// ListThreads returns the team's threads, newest first. Backend failures are
// logged and yield an empty list.
func (s *ThreadService) ListThreads(ctx context.Context, teamID string) []models.ThreadDetails {
	threads, err := s.loadThreads(ctx, teamID, "created_at DESC")
	if err != nil {
		s.log.WithError(err).WithField("team_id", teamID).Warn("list threads failed")
		return []models.ThreadDetails{}
	}
	return threads
}

// GetThread retrieves one thread of a team.
func (s *ThreadService) GetThread(ctx context.Context, teamID, threadID string) (*models.ThreadDetails, error) {
	return findThread(ctx, s.db, "GetThread", teamID, threadID)
}

// ObserveThreads streams the team's threads ordered by latest activity. A new
// snapshot follows every change in the team until ctx is cancelled.
func (s *ThreadService) ObserveThreads(ctx context.Context, teamID string) (<-chan []models.ThreadDetails, error) {
	return watch(ctx, s.feed, threadsTopic(teamID), "threads", func(ctx context.Context) ([]models.ThreadDetails, error) {
		return s.loadThreads(ctx, teamID, "last_message_at DESC")
	})
}

func (s *ThreadService) loadThreads(ctx context.Context, teamID, order string) ([]models.ThreadDetails, error) {
	threads := []models.ThreadDetails{}
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order(order).
		Order("id ASC").
		Find(&threads).Error
	return threads, err
}

// ================== WRITES ==================

// CreateThread stores a new pending thread authored by the caller.
func (s *ThreadService) CreateThread(ctx context.Context, in NewThread, author models.Actor) (*models.ThreadDetails, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if err := utils.ValidateStruct(&in); err != nil {
		return nil, Invalid("CreateThread", err.Error())
	}
	if author.ID == "" {
		return nil, Forbidden("CreateThread", "sign in to post a question")
	}

	if err := s.retry.Do(ctx, "CreateThread", func(ctx context.Context) error {
		return requireTeam(ctx, s.db, "CreateThread", in.TeamID)
	}); err != nil {
		return nil, wrap("CreateThread", err)
	}

	now := s.now()
	thread := &models.ThreadDetails{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Message:       in.Message,
		AuthorID:      author.ID,
		AuthorName:    author.Name,
		TeamID:        in.TeamID,
		CreatedAt:     now,
		IsEnabled:     false,
		LastMessageAt: now,
		RepliesCount:  0,
		Category:      in.Category,
		Tags:          in.Tags,
	}
	if thread.Tags == nil {
		thread.Tags = []string{}
	}

	err := s.retry.Do(ctx, "CreateThread", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(thread).Error
	})
	if err != nil {
		return nil, wrap("CreateThread", err)
	}

	s.log.WithFields(logrus.Fields{"team_id": in.TeamID, "thread_id": thread.ID}).Info("thread created")
	s.publish(ctx, threadsTopic(in.TeamID))
	return thread, nil
}

// SetEnabled moves a thread through its one-way approval gate. Enabling is
// idempotent; disabling an approved thread is rejected.
func (s *ThreadService) SetEnabled(ctx context.Context, teamID, threadID string, enabled bool) error {
	if !enabled {
		var thread *models.ThreadDetails
		err := s.retry.Do(ctx, "SetEnabled", func(ctx context.Context) error {
			var err error
			thread, err = findThread(ctx, s.db, "SetEnabled", teamID, threadID)
			return err
		})
		if err != nil {
			return err
		}
		if thread.IsEnabled {
			return Invalid("SetEnabled", "an approved thread cannot be disabled")
		}
		return nil
	}

	err := s.retry.Do(ctx, "SetEnabled", func(ctx context.Context) error {
		res := s.db.WithContext(ctx).Model(&models.ThreadDetails{}).
			Where("id = ? AND team_id = ?", threadID, teamID).
			Update("is_enabled", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFound("SetEnabled", "thread not found")
		}
		return nil
	})
	if err != nil {
		return wrap("SetEnabled", err)
	}

	s.publish(ctx, threadsTopic(teamID))
	return nil
}

// UpdateFlags sets the pinned and resolved flags and returns the updated thread.
func (s *ThreadService) UpdateFlags(ctx context.Context, teamID, threadID string, flags ThreadFlags) (*models.ThreadDetails, error) {
	updates := map[string]interface{}{}
	if flags.Pinned != nil {
		updates["is_pinned"] = *flags.Pinned
	}
	if flags.Resolved != nil {
		updates["is_resolved"] = *flags.Resolved
	}
	if len(updates) == 0 {
		return nil, Invalid("UpdateFlags", "no flags to update")
	}

	thread, err := Retry(ctx, s.retry, "UpdateFlags", func(ctx context.Context) (*models.ThreadDetails, error) {
		var out *models.ThreadDetails
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.ThreadDetails{}).
				Where("id = ? AND team_id = ?", threadID, teamID).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return NotFound("UpdateFlags", "thread not found")
			}
			t, err := findThread(ctx, tx, "UpdateFlags", teamID, threadID)
			out = t
			return err
		})
		return out, err
	})
	if err != nil {
		return nil, wrap("UpdateFlags", err)
	}

	s.publish(ctx, threadsTopic(teamID))
	return thread, nil
}

// Delete removes a thread together with its messages.
func (s *ThreadService) Delete(ctx context.Context, teamID, threadID string) error {
	err := s.retry.Do(ctx, "DeleteThread", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("id = ? AND team_id = ?", threadID, teamID).Delete(&models.ThreadDetails{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return NotFound("DeleteThread", "thread not found")
			}
			return tx.Where("thread_id = ?", threadID).Delete(&models.ThreadMessage{}).Error
		})
	})
	if err != nil {
		return wrap("DeleteThread", err)
	}

	s.log.WithFields(logrus.Fields{"team_id": teamID, "thread_id": threadID}).Info("thread deleted")
	s.publish(ctx, threadsTopic(teamID))
	s.publish(ctx, messagesTopic(threadID))
	return nil
}

func (s *ThreadService) publish(ctx context.Context, topic string) {
	publish(ctx, s.feed, s.log, topic)
}

// ================== HELPERS ==================

func findThread(ctx context.Context, db *gorm.DB, op, teamID, threadID string) (*models.ThreadDetails, error) {
	var thread models.ThreadDetails
	err := db.WithContext(ctx).Where("id = ? AND team_id = ?", threadID, teamID).First(&thread).Error
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, NotFound(op, "thread not found")
		}
		return nil, wrap(op, err)
	}
	return &thread, nil
}

func requireTeam(ctx context.Context, db *gorm.DB, op, teamID string) error {
	var n int64
	if err := db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", teamID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return NotFound(op, "team not found")
	}
	return nil
}

// publish signals a committed change. Feed failures are only logged.
func publish(ctx context.Context, feed ChangeFeed, log *logrus.Entry, topic string) {
	if err := feed.Publish(context.WithoutCancel(ctx), topic); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("change feed publish failed")
	}
}
