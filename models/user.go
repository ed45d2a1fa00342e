// models/user.go
package models

import (
	"time"
)

type User struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `gorm:"not null;size:120" json:"name"`
	Email         string    `gorm:"uniqueIndex;not null;size:190" json:"email"`
	PasswordHash  string    `gorm:"not null" json:"-"`
	ProfilePicURL string    `gorm:"size:500" json:"profile_pic_url"`
	Role          UserRole  `gorm:"not null;size:20;default:'MEMBER'" json:"role"`
	DomainID      string    `gorm:"size:64" json:"domain_id"`
	TotalCredits  int       `gorm:"default:0" json:"total_credits"`

	// bumped on logout; tokens carrying an older value are rejected
	SessionVersion int `gorm:"not null;default:0" json:"-"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login"`
}

func (User) TableName() string {
	return "users"
}

// UserSettings is the cached per-user view handed to clients. The users
// table stays the source of truth; IsLoggedIn only lives in the cache.
type UserSettings struct {
	UserID        string   `json:"user_id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	ProfilePicURL string   `json:"profile_pic_url"`
	IsLoggedIn    bool     `json:"is_logged_in"`
	Role          UserRole `json:"role"`
	DomainID      string   `json:"domain_id"`
	TotalCredits  int      `json:"total_credits"`
}

// Settings projects the canonical record into UserSettings.
func (u User) Settings(loggedIn bool) UserSettings {
	return UserSettings{
		UserID:        u.ID,
		Name:          u.Name,
		Email:         u.Email,
		ProfilePicURL: u.ProfilePicURL,
		IsLoggedIn:    loggedIn,
		Role:          ParseUserRole(string(u.Role)),
		DomainID:      u.DomainID,
		TotalCredits:  u.TotalCredits,
	}
}

// Actor returns the caller identity for store operations.
func (u User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Role: ParseUserRole(string(u.Role))}
}

// LeaderboardEntry is one row of the credit leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	ProfilePicURL string `json:"profile_pic_url"`
	DomainID      string `json:"domain_id"`
	TotalCredits  int    `json:"total_credits"`
}
