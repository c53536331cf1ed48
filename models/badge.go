package models

import (
	"time"
)

// Default badge keys per placement tier
const (
	BadgeKeyWinner   = "tournament_winner"
	BadgeKeyFinalist = "tournament_finalist"
	BadgeKeyThird    = "tournament_third"
	BadgeKeyTop4     = "tournament_top4"
)

// Badge is a durable profile decoration. Granting is idempotent:
// a duplicate (user, badge_key, tournament) insert is a silent no-op.
type Badge struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_badge_once" json:"external_user_id"`
	BadgeKey       string    `gorm:"not null;uniqueIndex:idx_badge_once" json:"badge_key"`
	TournamentID   string    `gorm:"not null;uniqueIndex:idx_badge_once" json:"tournament_id"`
	Label          string    `gorm:"not null" json:"label"`
	ImageURL       string    `gorm:"type:text" json:"image_url,omitempty"`
	GameID         string    `gorm:"index" json:"game_id,omitempty"`
	AwardedAt      time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}
