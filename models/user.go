package models

import (
	"time"

	"gorm.io/gorm"
)

// LobbyUser is a local snapshot of user data needed for tournaments.
// Owned and managed solely by this service; populated by the profile
// sync worker from the profile service.
type LobbyUser struct {
	ID                string     `gorm:"primaryKey" json:"id"`
	ExternalUserID    string     `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	Username          string     `gorm:"index;not null" json:"username"`
	Email             string     `json:"email,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	Bio               *string    `json:"bio,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	LastSeen *time.Time `json:"last_seen,omitempty"`
	IsBanned bool       `json:"is_banned" gorm:"default:false"` // local tournament ban

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
