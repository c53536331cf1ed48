package models

import (
	"time"

	"gorm.io/gorm"
)

// RewardType indicates what the reward grants
type RewardType string

const (
	RewardTypeBadge           RewardType = "badge"
	RewardTypeTierDays        RewardType = "tier_days"
	RewardTypeVisibilityBoost RewardType = "visibility_boost"
)

// RewardTask statuses (outbox rows processed by the scheduler)
const (
	RewardTaskStatusPending = "pending"
	RewardTaskStatusDone    = "done"
	RewardTaskStatusFailed  = "failed"
)

// Reward is one granted placement reward: one row per
// (tournament, user, reward_type). Payload holds type-specific data
// (day counts, new expiry, boost window) as JSON.
type Reward struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	TournamentID   string     `gorm:"not null;uniqueIndex:idx_reward_once" json:"tournament_id"`
	ExternalUserID string     `gorm:"not null;uniqueIndex:idx_reward_once" json:"external_user_id"`
	Type           RewardType `gorm:"type:varchar(24);not null;uniqueIndex:idx_reward_once" json:"type"`
	Placement      int        `json:"placement"`
	Payload        string     `gorm:"type:text" json:"payload,omitempty"`

	Timestamps
}

// RewardTask is the outbox row enqueued in the same transaction as the
// final match's finalization. The gocron job picks up pending rows and
// runs the reward grantor; finalization never waits on it.
type RewardTask struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	TournamentID string     `gorm:"not null;uniqueIndex" json:"tournament_id"`
	Status       string     `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	Attempts     int        `gorm:"default:0" json:"attempts"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`

	Timestamps
}

// TierMirror mirrors a user's elevated-tier expiry locally. Reward grants
// extend elevated_until, never shorten it; the tier service remains the
// source of truth for everything else.
type TierMirror struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	ElevatedUntil  time.Time `gorm:"not null" json:"elevated_until"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
