// models/thread.go
package models

import "time"

// ThreadDetails is a mentorship question posted to a team.
type ThreadDetails struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Title         string    `json:"title" gorm:"not null;size:200"`
	Message       string    `json:"message" gorm:"type:text;not null"`
	AuthorID      string    `json:"author_id" gorm:"not null;size:36;index"`
	AuthorName    string    `json:"author_name" gorm:"size:120"`
	TeamID        string    `json:"team_id" gorm:"not null;size:64;index"`
	CreatedAt     time.Time `json:"created_at"`
	IsEnabled     bool      `json:"is_enabled" gorm:"not null;default:false"`
	LastMessageAt time.Time `json:"last_message_at"`
	RepliesCount  int       `json:"replies_count" gorm:"not null;default:0"`
	Category      string    `json:"category" gorm:"size:64"`
	Tags          []string  `json:"tags" gorm:"serializer:json;type:text"`
	IsPinned      bool      `json:"is_pinned" gorm:"not null;default:false"`
	IsResolved    bool      `json:"is_resolved" gorm:"not null;default:false"`
}

func (ThreadDetails) TableName() string {
	return "mentorship_threads"
}

// ThreadState is the lifecycle position of a thread.
type ThreadState string

const (
	ThreadPending ThreadState = "pending"
	ThreadActive  ThreadState = "active"
)

// State derives the lifecycle state from IsEnabled.
func (t ThreadDetails) State() ThreadState {
	if t.IsEnabled {
		return ThreadActive
	}
	return ThreadPending
}
