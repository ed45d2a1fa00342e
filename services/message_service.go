// services/message_service.go - Thread replies
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

// SendMessage is the input for MessageService.SendMessage.
type SendMessage struct {
	TeamID   string `json:"team_id" validate:"required,max=64"`
	ThreadID string `json:"thread_id" validate:"required,max=36"`
	Text     string `json:"text" validate:"required,max=4000"`
}

type MessageService struct {
	db    *gorm.DB
	feed  ChangeFeed
	retry RetryPolicy
	now   func() time.Time
	log   *logrus.Entry
}

func NewMessageService(db *gorm.DB, feed ChangeFeed, retry RetryPolicy) *MessageService {
	return &MessageService{
		db:    db,
		feed:  feed,
		retry: retry,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logrus.WithField("component", "messages"),
	}
}

// ListMessages returns a thread's messages oldest first. Backend failures are
// logged and yield an empty list.
func (s *MessageService) ListMessages(ctx context.Context, teamID, threadID string) []models.ThreadMessage {
	msgs, err := s.loadMessages(ctx, teamID, threadID)
	if err != nil {
		s.log.WithError(err).WithField("thread_id", threadID).Warn("list messages failed")
		return []models.ThreadMessage{}
	}
	return msgs
}

// ObserveMessages streams the thread's messages oldest first, re-emitting the
// full list after each append until ctx is cancelled.
func (s *MessageService) ObserveMessages(ctx context.Context, teamID, threadID string) (<-chan []models.ThreadMessage, error) {
	return watch(ctx, s.feed, messagesTopic(threadID), "messages", func(ctx context.Context) ([]models.ThreadMessage, error) {
		return s.loadMessages(ctx, teamID, threadID)
	})
}

func (s *MessageService) loadMessages(ctx context.Context, teamID, threadID string) ([]models.ThreadMessage, error) {
	msgs := []models.ThreadMessage{}
	err := s.db.WithContext(ctx).
		Where("thread_id = ? AND team_id = ?", threadID, teamID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&msgs).Error
	return msgs, err
}

// SendMessage appends a reply to an approved thread. The thread's reply
// counter and activity time move in the same transaction as the insert, and
// the new counter value becomes the message's seq.
func (s *MessageService) SendMessage(ctx context.Context, in SendMessage, sender models.Actor) (*models.ThreadMessage, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := utils.ValidateStruct(&in); err != nil {
		return nil, Invalid("SendMessage", err.Error())
	}
	if sender.ID == "" {
		return nil, Forbidden("SendMessage", "sign in to reply")
	}

	msg, err := Retry(ctx, s.retry, "SendMessage", func(ctx context.Context) (*models.ThreadMessage, error) {
		msg := &models.ThreadMessage{
			ID:         uuid.NewString(),
			ThreadID:   in.ThreadID,
			TeamID:     in.TeamID,
			SenderID:   sender.ID,
			SenderName: sender.Name,
			Message:    in.Text,
			CreatedAt:  s.now(),
			IsTeamLead: sender.Role.CanModerate(),
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return appendMessage(tx, msg)
		})
		return msg, err
	})
	if err != nil {
		return nil, wrap("SendMessage", err)
	}

	messagesSent.Inc()
	s.log.WithFields(logrus.Fields{
		"thread_id": msg.ThreadID,
		"seq":       msg.Seq,
		"sender_id": msg.SenderID,
	}).Debug("message sent")

	publish(ctx, s.feed, s.log, messagesTopic(in.ThreadID))
	publish(ctx, s.feed, s.log, threadsTopic(in.TeamID))
	return msg, nil
}

// appendMessage bumps the thread counter and inserts msg inside tx.
func appendMessage(tx *gorm.DB, msg *models.ThreadMessage) error {
	res := tx.Model(&models.ThreadDetails{}).
		Where("id = ? AND team_id = ? AND is_enabled = ?", msg.ThreadID, msg.TeamID, true).
		Updates(map[string]interface{}{
			"replies_count":   gorm.Expr("replies_count + 1"),
			"last_message_at": msg.CreatedAt,
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		// tell a missing thread apart from one still awaiting approval
		if _, err := findThread(tx.Statement.Context, tx, "SendMessage", msg.TeamID, msg.ThreadID); err != nil {
			return err
		}
		return Invalid("SendMessage", "thread is pending approval")
	}

	var thread models.ThreadDetails
	if err := tx.Select("replies_count").Where("id = ?", msg.ThreadID).First(&thread).Error; err != nil {
		return err
	}
	msg.Seq = thread.RepliesCount

	return tx.Create(msg).Error
}
