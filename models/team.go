// models/team.go
package models

import "time"

// Team is a mentorship group members ask questions in. Rows are seeded and never edited.
type Team struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64" yaml:"id" validate:"required,max=64"`
	Name      string    `json:"name" gorm:"not null;size:100" yaml:"name" validate:"required,max=100"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

func (Team) TableName() string {
	return "teams"
}
