package models

import (
	"time"
)

// Tournament statuses (state machine: see registration/match services)
const (
	TournamentStatusDraft              = "draft"
	TournamentStatusOpen               = "open"
	TournamentStatusRegistrationClosed = "registration_closed"
	TournamentStatusInProgress         = "in_progress"
	TournamentStatusCompleted          = "completed"
	TournamentStatusCancelled          = "cancelled"
)

// Participant statuses
const (
	ParticipantStatusRegistered   = "registered"
	ParticipantStatusCheckedIn    = "checked_in"
	ParticipantStatusWithdrawn    = "withdrawn"
	ParticipantStatusDisqualified = "disqualified"
)

// Tournament represents a single-elimination bracket tournament (8 or 16 players)
type Tournament struct {
	ID                   string     `json:"id" gorm:"primaryKey"`
	Slug                 string     `json:"slug" gorm:"uniqueIndex;not null"`
	HostID               string     `json:"host_id" gorm:"index;not null"`
	Name                 string     `json:"name" gorm:"not null"`
	Description          string     `json:"description"`
	GameID               string     `json:"game_id" gorm:"index;not null"`
	GameName             string     `json:"game_name"`
	Platform             string     `json:"platform"`
	MaxParticipants      int        `json:"max_participants" gorm:"not null"` // 8 or 16 only
	CurrentParticipants  int        `json:"current_participants" gorm:"default:0"`
	Status               string     `json:"status" gorm:"type:varchar(32);default:'open';index"`
	StartAt              time.Time  `json:"start_at" gorm:"not null"`
	RegistrationDeadline time.Time  `json:"registration_deadline" gorm:"not null"`
	CheckInRequired      bool       `json:"check_in_required" gorm:"default:false"`
	CheckInDeadline      *time.Time `json:"check_in_deadline,omitempty"`

	// Optional overrides for the default placement badges
	FirstBadgeLabel     string `json:"first_badge_label,omitempty"`
	FirstBadgeImageURL  string `json:"first_badge_image_url,omitempty"`
	SecondBadgeLabel    string `json:"second_badge_label,omitempty"`
	SecondBadgeImageURL string `json:"second_badge_image_url,omitempty"`
	ThirdBadgeLabel     string `json:"third_badge_label,omitempty"`
	ThirdBadgeImageURL  string `json:"third_badge_image_url,omitempty"`

	Timestamps

	// Relationships
	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:TournamentID"`
	Matches      []Match       `json:"matches,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated (not stored in DB)
	Phase string `json:"phase,omitempty" gorm:"-"` // upcoming | live | completed
}

// Participant tracks one user's registration inside one tournament.
// final_placement is written once, by the reward grantor (1, 2 or 3;
// the remaining semifinal loser stays unplaced in the 4th tier).
type Participant struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	TournamentID   string     `json:"tournament_id" gorm:"not null;uniqueIndex:idx_participant_tournament_user"`
	ExternalUserID string     `json:"external_user_id" gorm:"not null;uniqueIndex:idx_participant_tournament_user"`
	UserName       string     `json:"user_name"`                   // Denormalized from lobby_users
	UserAvatarURL  *string    `json:"user_avatar_url,omitempty"`   // Denormalized from lobby_users
	Status         string     `json:"status" gorm:"type:varchar(16);default:'registered';index"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	FinalPlacement *int       `json:"final_placement,omitempty"`

	Timestamps
}
