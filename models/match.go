package models

import (
	"time"
)

// Match statuses; completed and forfeited are terminal
const (
	MatchStatusPending    = "pending"
	MatchStatusInProgress = "in_progress"
	MatchStatusCompleted  = "completed"
	MatchStatusForfeited  = "forfeited"
)

// Outcome methods. forfeit/timeout/disconnect finalize the match as forfeited.
const (
	OutcomeMethodManual     = "manual"
	OutcomeMethodForfeit    = "forfeit"
	OutcomeMethodTimeout    = "timeout"
	OutcomeMethodDisconnect = "disconnect"
)

// MatchReport statuses
const (
	ReportStatusSubmitted = "submitted"
	ReportStatusAccepted  = "accepted"
	ReportStatusRejected  = "rejected"
	ReportStatusWithdrawn = "withdrawn"
)

// Match is one bracket slot, addressed by (round_number, match_number).
// Round 1 is fully paired at bracket creation; later rounds are filled
// as winners propagate in. winner_id is write-once.
type Match struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_match_bracket_slot"`
	RoundNumber  int    `json:"round_number" gorm:"not null;uniqueIndex:idx_match_bracket_slot"`
	MatchNumber  int    `json:"match_number" gorm:"not null;uniqueIndex:idx_match_bracket_slot"`

	Participant1ID *string `json:"participant1_id,omitempty" gorm:"index"`
	Participant2ID *string `json:"participant2_id,omitempty" gorm:"index"`
	WinnerID       *string `json:"winner_id,omitempty"`

	Status        string     `json:"status" gorm:"type:varchar(16);default:'pending'"`
	Score1        int        `json:"score1" gorm:"default:0"`
	Score2        int        `json:"score2" gorm:"default:0"`
	OutcomeMethod string     `json:"outcome_method,omitempty" gorm:"type:varchar(16)"`
	OutcomeNotes  string     `json:"outcome_notes,omitempty" gorm:"type:text"`
	FinalizedBy   string     `json:"finalized_by,omitempty"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`

	Timestamps
}

// MatchReport is a participant's self-reported claim about a match outcome.
// Proof paths are private object-store keys returned by the upload endpoint.
type MatchReport struct {
	ID                         string   `json:"id" gorm:"primaryKey"`
	MatchID                    string   `json:"match_id" gorm:"not null;index"`
	TournamentID               string   `json:"tournament_id" gorm:"not null;index"`
	ReporterParticipantID      string   `json:"reporter_participant_id" gorm:"not null;index"`
	ReporterUserID             string   `json:"reporter_user_id" gorm:"not null"`
	ClaimedWinnerParticipantID string   `json:"claimed_winner_participant_id" gorm:"not null"`
	ClaimedScore1              int      `json:"claimed_score1" gorm:"default:0"`
	ClaimedScore2              int      `json:"claimed_score2" gorm:"default:0"`
	ProofPaths                 []string `json:"proof_paths,omitempty" gorm:"serializer:json;type:text"`
	Status                     string   `json:"status" gorm:"type:varchar(16);default:'submitted';index"`

	Timestamps
}
