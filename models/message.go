// models/message.go
package models

import "time"

// ThreadMessage is one reply inside a thread. Rows are never updated.
type ThreadMessage struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ThreadID   string    `json:"thread_id" gorm:"not null;size:36;index"`
	TeamID     string    `json:"team_id" gorm:"not null;size:64"`
	Seq        int       `json:"seq" gorm:"not null"` // position within the thread, starting at 1
	SenderID   string    `json:"sender_id" gorm:"not null;size:36"`
	SenderName string    `json:"sender_name" gorm:"size:120"`
	Message    string    `json:"message" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"`
	IsTeamLead bool      `json:"is_team_lead" gorm:"not null;default:false"`
}

func (ThreadMessage) TableName() string {
	return "mentorship_messages"
}
