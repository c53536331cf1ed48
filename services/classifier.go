package services

import (
	"time"

	"gaming-lobby-system/models"
)

// Coarse lifecycle phases exposed on list/detail responses
const (
	PhaseUpcoming  = "upcoming"
	PhaseLive      = "live"
	PhaseCompleted = "completed"
)

// ClassifyPhase maps a tournament's status and timestamps to a display
// phase. Inconsistent states (e.g. a draft whose start time is in the
// past) fall through to upcoming rather than erroring.
func ClassifyPhase(t *models.Tournament, now time.Time) string {
	switch t.Status {
	case models.TournamentStatusCompleted, models.TournamentStatusCancelled:
		return PhaseCompleted
	case models.TournamentStatusInProgress, models.TournamentStatusRegistrationClosed:
		return PhaseLive
	}
	if !now.Before(t.StartAt) {
		return PhaseLive
	}
	return PhaseUpcoming
}
