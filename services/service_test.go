package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gaming-lobby-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing.
// Each test gets its own named shared-cache DB so transactions and
// follow-up queries see the same data.
func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.Participant{},
		&models.Match{},
		&models.MatchReport{},
		&models.Reward{},
		&models.RewardTask{},
		&models.TierMirror{},
		&models.Badge{},
		&models.LobbyUser{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// createTestTournament inserts an open 8-player tournament with sane
// future deadlines; callers tweak fields afterwards when needed.
func createTestTournament(t *testing.T, db *gorm.DB, maxParticipants int) *models.Tournament {
	now := time.Now()
	tournament := &models.Tournament{
		ID:                   uuid.NewString(),
		Slug:                 "test-" + uuid.NewString()[:8],
		HostID:               "host-1",
		Name:                 "Test Cup",
		GameID:               "game-1",
		GameName:             "Test Game",
		Platform:             "pc",
		MaxParticipants:      maxParticipants,
		Status:               models.TournamentStatusOpen,
		StartAt:              now.Add(2 * time.Hour),
		RegistrationDeadline: now.Add(1 * time.Hour),
	}
	require.NoError(t, db.Create(tournament).Error)
	return tournament
}

// registerUsers registers n users and returns their participant rows in
// registration order.
func registerUsers(t *testing.T, svc *RegistrationService, tournamentID string, n int) []*models.Participant {
	participants := make([]*models.Participant, 0, n)
	for i := 0; i < n; i++ {
		p, err := svc.Register(tournamentID, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		participants = append(participants, p)
		time.Sleep(time.Millisecond) // keep created_at ordering deterministic
	}
	return participants
}

// startedBracket registers n users, starts the tournament and returns
// the participants plus the generated matches keyed by (round, match).
func startedBracket(t *testing.T, db *gorm.DB, n int) (*models.Tournament, []*models.Participant, map[[2]int]*models.Match) {
	tournament := createTestTournament(t, db, n)
	regSvc := NewRegistrationService(db)
	participants := registerUsers(t, regSvc, tournament.ID, n)

	matches, err := regSvc.Start(tournament.ID, tournament.HostID)
	require.NoError(t, err)

	bySlot := make(map[[2]int]*models.Match, len(matches))
	for i := range matches {
		bySlot[[2]int{matches[i].RoundNumber, matches[i].MatchNumber}] = &matches[i]
	}
	return tournament, participants, bySlot
}

func reloadMatch(t *testing.T, db *gorm.DB, id string) *models.Match {
	var m models.Match
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return &m
}

func reloadParticipant(t *testing.T, db *gorm.DB, id string) *models.Participant {
	var p models.Participant
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}
