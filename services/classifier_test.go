package services

import (
	"testing"
	"time"

	"gaming-lobby-system/models"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPhase(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		status  string
		startAt time.Time
		want    string
	}{
		{"completed", models.TournamentStatusCompleted, past, PhaseCompleted},
		{"cancelled", models.TournamentStatusCancelled, future, PhaseCompleted},
		{"in progress", models.TournamentStatusInProgress, future, PhaseLive},
		{"registration closed", models.TournamentStatusRegistrationClosed, future, PhaseLive},
		{"open past start", models.TournamentStatusOpen, past, PhaseLive},
		{"open upcoming", models.TournamentStatusOpen, future, PhaseUpcoming},
		{"draft upcoming", models.TournamentStatusDraft, future, PhaseUpcoming},
		{"draft past start", models.TournamentStatusDraft, past, PhaseLive},
		{"inconsistent status falls back to upcoming", "garbage", future, PhaseUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tournament := &models.Tournament{Status: tt.status, StartAt: tt.startAt}
			assert.Equal(t, tt.want, ClassifyPhase(tournament, now))
		})
	}
}

func TestClassifyPhase_ExactStartBoundary(t *testing.T) {
	now := time.Now()
	tournament := &models.Tournament{Status: models.TournamentStatusOpen, StartAt: now}
	assert.Equal(t, PhaseLive, ClassifyPhase(tournament, now))
}
