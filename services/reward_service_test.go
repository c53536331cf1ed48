package services

import (
	"testing"
	"time"

	"gaming-lobby-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// badgeByUser fetches a user's badge for one tournament into a fresh
// struct so primary keys never carry over between lookups.
func badgeByUser(t *testing.T, db *gorm.DB, userID, tournamentID string) *models.Badge {
	t.Helper()
	var badge models.Badge
	require.NoError(t, db.First(&badge, "external_user_id = ? AND tournament_id = ?", userID, tournamentID).Error)
	return &badge
}

// runPendingRewardTasks drives the outbox the way the scheduler does.
func runPendingRewardTasks(t *testing.T, svc *RewardService) {
	var tasks []models.RewardTask
	require.NoError(t, svc.DB.Where("status = ?", models.RewardTaskStatusPending).Find(&tasks).Error)
	for i := range tasks {
		svc.processRewardTask(&tasks[i])
	}
}

func TestEndToEnd_EightPlayers(t *testing.T) {
	db := setupTestDB(t)
	matchSvc := NewMatchService(db)
	rewardSvc := NewRewardService(db)
	tournament, participants, bySlot := startedBracket(t, db, 8)

	// Slot-1 winners all the way: p0 beats p2 in the semifinal and p4 in
	// the final; p6 loses the other semifinal.
	finishBracket(t, matchSvc, bySlot, 3)
	runPendingRewardTasks(t, rewardSvc)

	winner := participants[0]
	runnerUp := participants[4]
	third := participants[2]  // eliminated by the eventual champion
	fourth := participants[6] // the other semifinal loser

	// Placements
	require.NotNil(t, reloadParticipant(t, db, winner.ID).FinalPlacement)
	assert.Equal(t, 1, *reloadParticipant(t, db, winner.ID).FinalPlacement)
	require.NotNil(t, reloadParticipant(t, db, runnerUp.ID).FinalPlacement)
	assert.Equal(t, 2, *reloadParticipant(t, db, runnerUp.ID).FinalPlacement)
	require.NotNil(t, reloadParticipant(t, db, third.ID).FinalPlacement)
	assert.Equal(t, 3, *reloadParticipant(t, db, third.ID).FinalPlacement)
	assert.Nil(t, reloadParticipant(t, db, fourth.ID).FinalPlacement)

	// Badges: a fresh struct per lookup, a populated one would leak its
	// primary key into the next query's WHERE clause
	winnerBadge := badgeByUser(t, db, winner.ExternalUserID, tournament.ID)
	assert.Equal(t, models.BadgeKeyWinner, winnerBadge.BadgeKey)
	assert.Equal(t, "Tournament Winner", winnerBadge.Label)
	assert.Equal(t, models.BadgeKeyFinalist, badgeByUser(t, db, runnerUp.ExternalUserID, tournament.ID).BadgeKey)
	assert.Equal(t, models.BadgeKeyThird, badgeByUser(t, db, third.ExternalUserID, tournament.ID).BadgeKey)
	assert.Equal(t, models.BadgeKeyTop4, badgeByUser(t, db, fourth.ExternalUserID, tournament.ID).BadgeKey)

	// Elevated tier: 7 days for 1st, 3 for 2nd, nothing for 3rd/4th
	var winnerMirror models.TierMirror
	require.NoError(t, db.First(&winnerMirror, "external_user_id = ?", winner.ExternalUserID).Error)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, WinnerTierDays), winnerMirror.ElevatedUntil, time.Minute)

	var runnerUpMirror models.TierMirror
	require.NoError(t, db.First(&runnerUpMirror, "external_user_id = ?", runnerUp.ExternalUserID).Error)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, FinalistTierDays), runnerUpMirror.ElevatedUntil, time.Minute)

	var mirrorCount int64
	db.Model(&models.TierMirror{}).Count(&mirrorCount)
	assert.EqualValues(t, 2, mirrorCount)

	// Visibility boost for 1st only
	var boosts []models.Reward
	require.NoError(t, db.Where("tournament_id = ? AND type = ?", tournament.ID, models.RewardTypeVisibilityBoost).Find(&boosts).Error)
	require.Len(t, boosts, 1)
	assert.Equal(t, winner.ExternalUserID, boosts[0].ExternalUserID)

	// The outbox row is done
	var task models.RewardTask
	require.NoError(t, db.First(&task, "tournament_id = ?", tournament.ID).Error)
	assert.Equal(t, models.RewardTaskStatusDone, task.Status)
	require.NotNil(t, task.ProcessedAt)
}

func TestGrantRewards_Reprocessing(t *testing.T) {
	db := setupTestDB(t)
	matchSvc := NewMatchService(db)
	rewardSvc := NewRewardService(db)
	tournament, participants, bySlot := startedBracket(t, db, 8)

	finishBracket(t, matchSvc, bySlot, 3)
	require.NoError(t, rewardSvc.GrantRewards(tournament.ID))

	var mirrorBefore models.TierMirror
	require.NoError(t, db.First(&mirrorBefore, "external_user_id = ?", participants[0].ExternalUserID).Error)

	// Second run: badge dedup and the tier_days guard make it a no-op
	require.NoError(t, rewardSvc.GrantRewards(tournament.ID))

	var badgeCount int64
	db.Model(&models.Badge{}).Where("tournament_id = ?", tournament.ID).Count(&badgeCount)
	assert.EqualValues(t, 4, badgeCount)

	var rewardCount int64
	db.Model(&models.Reward{}).Where("tournament_id = ?", tournament.ID).Count(&rewardCount)
	assert.EqualValues(t, 7, rewardCount) // 4 badges + 2 tier grants + 1 boost

	var mirrorAfter models.TierMirror
	require.NoError(t, db.First(&mirrorAfter, "external_user_id = ?", participants[0].ExternalUserID).Error)
	assert.Equal(t, mirrorBefore.ElevatedUntil.Unix(), mirrorAfter.ElevatedUntil.Unix())
}

func TestGrantRewards_NeverShortensExistingTier(t *testing.T) {
	db := setupTestDB(t)
	matchSvc := NewMatchService(db)
	rewardSvc := NewRewardService(db)
	tournament, participants, bySlot := startedBracket(t, db, 8)

	farOut := time.Now().AddDate(0, 0, 30)
	require.NoError(t, db.Create(&models.TierMirror{
		ID:             "mirror-1",
		ExternalUserID: participants[0].ExternalUserID,
		ElevatedUntil:  farOut,
	}).Error)

	finishBracket(t, matchSvc, bySlot, 3)
	require.NoError(t, rewardSvc.GrantRewards(tournament.ID))

	var mirror models.TierMirror
	require.NoError(t, db.First(&mirror, "external_user_id = ?", participants[0].ExternalUserID).Error)
	assert.Equal(t, farOut.Unix(), mirror.ElevatedUntil.Unix())
}

func TestGrantRewards_CustomThirdBadgeSuppressesTop4(t *testing.T) {
	db := setupTestDB(t)
	matchSvc := NewMatchService(db)
	rewardSvc := NewRewardService(db)
	tournament, participants, bySlot := startedBracket(t, db, 8)

	require.NoError(t, db.Model(tournament).Updates(map[string]interface{}{
		"first_badge_label": "Apex Champion",
		"third_badge_label": "Bronze Blade",
	}).Error)

	finishBracket(t, matchSvc, bySlot, 3)
	require.NoError(t, rewardSvc.GrantRewards(tournament.ID))

	assert.Equal(t, "Apex Champion", badgeByUser(t, db, participants[0].ExternalUserID, tournament.ID).Label)
	assert.Equal(t, "Bronze Blade", badgeByUser(t, db, participants[2].ExternalUserID, tournament.ID).Label)

	// No Top-4 badge for the other semifinal loser
	var count int64
	db.Model(&models.Badge{}).Where("external_user_id = ? AND tournament_id = ?", participants[6].ExternalUserID, tournament.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestGrantRewards_ForfeitedSemifinal(t *testing.T) {
	db := setupTestDB(t)
	matchSvc := NewMatchService(db)
	rewardSvc := NewRewardService(db)
	tournament, participants, bySlot := startedBracket(t, db, 8)

	// Round 1 by the book
	finishBracket(t, matchSvc, bySlot, 1)

	// Semifinal 1 decided by forfeit: the non-winner is still the loser
	// for placement purposes
	sf1 := reloadMatch(t, db, bySlot[[2]int{2, 1}].ID)
	_, err := matchSvc.Finalize(sf1.ID, *sf1.Participant1ID, 0, 0, models.OutcomeMethodForfeit, "opponent no-show", "host-1")
	require.NoError(t, err)

	sf2 := reloadMatch(t, db, bySlot[[2]int{2, 2}].ID)
	_, err = matchSvc.Finalize(sf2.ID, *sf2.Participant1ID, 2, 1, models.OutcomeMethodManual, "", "host-1")
	require.NoError(t, err)

	final := reloadMatch(t, db, bySlot[[2]int{3, 1}].ID)
	_, err = matchSvc.Finalize(final.ID, *final.Participant1ID, 3, 2, models.OutcomeMethodManual, "", "host-1")
	require.NoError(t, err)

	require.NoError(t, rewardSvc.GrantRewards(tournament.ID))

	// p2 forfeited against the eventual champion p0, so p2 is third
	third := reloadParticipant(t, db, participants[2].ID)
	require.NotNil(t, third.FinalPlacement)
	assert.Equal(t, 3, *third.FinalPlacement)
}

func TestGrantRewards_RequiresCompletedTournament(t *testing.T) {
	db := setupTestDB(t)
	rewardSvc := NewRewardService(db)
	tournament, _, _ := startedBracket(t, db, 8)

	err := rewardSvc.GrantRewards(tournament.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = rewardSvc.GrantRewards("missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestProcessRewardTask_BoundedRetries(t *testing.T) {
	db := setupTestDB(t)
	rewardSvc := NewRewardService(db)

	// Task pointing at a tournament that cannot be processed
	task := models.RewardTask{
		ID:           "task-1",
		TournamentID: "missing",
		Status:       models.RewardTaskStatusPending,
	}
	require.NoError(t, db.Create(&task).Error)

	for i := 0; i < MaxRewardAttempts; i++ {
		var current models.RewardTask
		require.NoError(t, db.First(&current, "id = ?", task.ID).Error)
		rewardSvc.processRewardTask(&current)
	}

	var final models.RewardTask
	require.NoError(t, db.First(&final, "id = ?", task.ID).Error)
	assert.Equal(t, models.RewardTaskStatusFailed, final.Status)
	assert.Equal(t, MaxRewardAttempts, final.Attempts)
	assert.NotEmpty(t, final.LastError)
}
