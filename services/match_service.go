package services

import (
	"errors"
	"log"
	"time"

	"gaming-lobby-system/bracket"
	"gaming-lobby-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoAgreementFinalizer is recorded as finalized_by when two matching
// participant reports complete a match without host involvement.
const AutoAgreementFinalizer = "auto-agreement"

// MatchService drives bracket progression: finalizing matches,
// propagating winners forward and handling participant self-reports.
type MatchService struct {
	DB *gorm.DB
}

func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{DB: db}
}

func isForfeitMethod(method string) bool {
	switch method {
	case models.OutcomeMethodForfeit, models.OutcomeMethodTimeout, models.OutcomeMethodDisconnect:
		return true
	}
	return false
}

// Finalize writes the match result once and propagates the winner into
// the next round's slot. The winner_id IS NULL guard on the result
// update makes finalization write-once: a second call can never
// double-propagate, it fails with ErrAlreadyFinalized.
//
// When the finalized match is the final, the same transaction marks the
// tournament completed and enqueues a RewardTask for the outbox
// processor. Reward granting never blocks or rolls back the result.
func (s *MatchService) Finalize(matchID, winnerID string, score1, score2 int, method, notes, finalizedBy string) (*models.Match, error) {
	var match models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.Status == models.MatchStatusCompleted || match.Status == models.MatchStatusForfeited {
			return ErrAlreadyFinalized
		}
		if match.Participant1ID == nil || match.Participant2ID == nil {
			return ErrMatchNotReady
		}
		if winnerID != *match.Participant1ID && winnerID != *match.Participant2ID {
			return ErrInvalidWinner
		}
		if method == "" {
			method = models.OutcomeMethodManual
		}

		status := models.MatchStatusCompleted
		if isForfeitMethod(method) {
			status = models.MatchStatusForfeited
		}

		now := time.Now()
		res := tx.Model(&models.Match{}).
			Where("id = ? AND winner_id IS NULL", matchID).
			Updates(map[string]interface{}{
				"winner_id":      winnerID,
				"status":         status,
				"score1":         score1,
				"score2":         score2,
				"outcome_method": method,
				"outcome_notes":  notes,
				"finalized_by":   finalizedBy,
				"finalized_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyFinalized
		}

		match.WinnerID = &winnerID
		match.Status = status
		match.Score1 = score1
		match.Score2 = score2
		match.OutcomeMethod = method
		match.OutcomeNotes = notes
		match.FinalizedBy = finalizedBy
		match.FinalizedAt = &now

		// Propagate: matches 2k-1 and 2k of round r feed match k of round r+1.
		// Siblings write disjoint slot columns so they never race each other.
		var next models.Match
		err := tx.First(&next, "tournament_id = ? AND round_number = ? AND match_number = ?",
			match.TournamentID, match.RoundNumber+1, bracket.NextMatchNumber(match.MatchNumber)).Error
		if err == nil {
			slotColumn := "participant1_id"
			if bracket.SlotForMatch(match.MatchNumber) == 2 {
				slotColumn = "participant2_id"
			}
			return tx.Model(&models.Match{}).
				Where("id = ?", next.ID).
				Update(slotColumn, winnerID).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// No next round: this was the final.
		if err := tx.Model(&models.Tournament{}).
			Where("id = ?", match.TournamentID).
			Update("status", models.TournamentStatusCompleted).Error; err != nil {
			return err
		}
		task := models.RewardTask{
			ID:           uuid.NewString(),
			TournamentID: match.TournamentID,
			Status:       models.RewardTaskStatusPending,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// SubmitReport records a participant's claim about a match outcome.
// When both participants' open reports agree on winner and scores the
// match is finalized immediately, without waiting for the host.
func (s *MatchService) SubmitReport(matchID, userID, claimedWinnerID string, score1, score2 int, proofPaths []string) (*models.MatchReport, error) {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.Status == models.MatchStatusCompleted || match.Status == models.MatchStatusForfeited {
		return nil, ErrAlreadyFinalized
	}
	if match.Participant1ID == nil || match.Participant2ID == nil {
		return nil, ErrMatchNotReady
	}

	var reporter models.Participant
	if err := s.DB.First(&reporter, "tournament_id = ? AND external_user_id = ?", match.TournamentID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMatchParticipant
		}
		return nil, err
	}
	if reporter.ID != *match.Participant1ID && reporter.ID != *match.Participant2ID {
		return nil, ErrNotMatchParticipant
	}
	if claimedWinnerID != *match.Participant1ID && claimedWinnerID != *match.Participant2ID {
		return nil, ErrInvalidWinner
	}

	var open int64
	if err := s.DB.Model(&models.MatchReport{}).
		Where("match_id = ? AND reporter_participant_id = ? AND status = ?",
			matchID, reporter.ID, models.ReportStatusSubmitted).
		Count(&open).Error; err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, ErrReportAlreadySubmitted
	}

	report := models.MatchReport{
		ID:                         uuid.NewString(),
		MatchID:                    matchID,
		TournamentID:               match.TournamentID,
		ReporterParticipantID:      reporter.ID,
		ReporterUserID:             userID,
		ClaimedWinnerParticipantID: claimedWinnerID,
		ClaimedScore1:              score1,
		ClaimedScore2:              score2,
		ProofPaths:                 proofPaths,
		Status:                     models.ReportStatusSubmitted,
	}
	if err := s.DB.Create(&report).Error; err != nil {
		return nil, err
	}

	s.tryAutoAccept(&match, &report)
	return &report, nil
}

// tryAutoAccept finalizes the match when the opponent's open report
// matches the new one. Disagreements are left for host adjudication.
func (s *MatchService) tryAutoAccept(match *models.Match, report *models.MatchReport) {
	var other models.MatchReport
	err := s.DB.First(&other,
		"match_id = ? AND reporter_participant_id <> ? AND status = ?",
		match.ID, report.ReporterParticipantID, models.ReportStatusSubmitted).Error
	if err != nil {
		return
	}
	if other.ClaimedWinnerParticipantID != report.ClaimedWinnerParticipantID ||
		other.ClaimedScore1 != report.ClaimedScore1 ||
		other.ClaimedScore2 != report.ClaimedScore2 {
		log.Printf("[MATCH] Conflicting reports for match %s, waiting for host adjudication", match.ID)
		return
	}

	if _, err := s.Finalize(match.ID, report.ClaimedWinnerParticipantID,
		report.ClaimedScore1, report.ClaimedScore2,
		models.OutcomeMethodManual, "", AutoAgreementFinalizer); err != nil {
		log.Printf("[MATCH] Auto-accept finalize failed for match %s: %v", match.ID, err)
		return
	}

	if err := s.DB.Model(&models.MatchReport{}).
		Where("id IN ?", []string{report.ID, other.ID}).
		Update("status", models.ReportStatusAccepted).Error; err != nil {
		log.Printf("[MATCH] Failed to mark reports accepted for match %s: %v", match.ID, err)
	}
	report.Status = models.ReportStatusAccepted
}

// WithdrawReport lets a reporter pull back an open report.
func (s *MatchService) WithdrawReport(reportID, userID string) (*models.MatchReport, error) {
	var report models.MatchReport
	if err := s.DB.First(&report, "id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if report.ReporterUserID != userID {
		return nil, ErrNotMatchParticipant
	}
	if report.Status != models.ReportStatusSubmitted {
		return nil, ErrReportNotOpen
	}
	report.Status = models.ReportStatusWithdrawn
	if err := s.DB.Save(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// AcceptReport is host adjudication: the accepted claim runs through the
// same Finalize path as direct host entry. Competing open reports for
// the match are rejected.
func (s *MatchService) AcceptReport(matchID, reportID, hostID string) (*models.Match, error) {
	var report models.MatchReport
	if err := s.DB.First(&report, "id = ? AND match_id = ?", reportID, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if err := s.requireHost(report.TournamentID, hostID); err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusSubmitted {
		return nil, ErrReportNotOpen
	}

	match, err := s.Finalize(matchID, report.ClaimedWinnerParticipantID,
		report.ClaimedScore1, report.ClaimedScore2,
		models.OutcomeMethodManual, "", hostID)
	if err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.MatchReport{}).
		Where("id = ?", report.ID).
		Update("status", models.ReportStatusAccepted).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.MatchReport{}).
		Where("match_id = ? AND id <> ? AND status = ?", matchID, report.ID, models.ReportStatusSubmitted).
		Update("status", models.ReportStatusRejected).Error; err != nil {
		return nil, err
	}
	return match, nil
}

// RejectReport is host adjudication: mark a claim rejected without
// touching the match.
func (s *MatchService) RejectReport(matchID, reportID, hostID string) (*models.MatchReport, error) {
	var report models.MatchReport
	if err := s.DB.First(&report, "id = ? AND match_id = ?", reportID, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if err := s.requireHost(report.TournamentID, hostID); err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusSubmitted {
		return nil, ErrReportNotOpen
	}
	report.Status = models.ReportStatusRejected
	if err := s.DB.Save(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MatchService) requireHost(tournamentID, userID string) error {
	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.HostID != userID {
		return ErrNotHost
	}
	return nil
}

// --- Fiber endpoints ---

func (s *MatchService) FinalizeEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var req struct {
		WinnerID      string `json:"winner_id"`
		Score1        int    `json:"score1"`
		Score2        int    `json:"score2"`
		OutcomeMethod string `json:"outcome_method"`
		OutcomeNotes  string `json:"outcome_notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.WinnerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "winner_id is required"})
	}

	matchID := c.Params("id")
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondServiceError(c, ErrMatchNotFound)
		}
		return respondServiceError(c, err)
	}
	if err := s.requireHost(match.TournamentID, userID); err != nil {
		return respondServiceError(c, err)
	}

	finalized, err := s.Finalize(matchID, req.WinnerID, req.Score1, req.Score2, req.OutcomeMethod, req.OutcomeNotes, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(finalized)
}

func (s *MatchService) SubmitReportEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var req struct {
		ClaimedWinnerParticipantID string   `json:"claimed_winner_participant_id"`
		ClaimedScore1              int      `json:"claimed_score1"`
		ClaimedScore2              int      `json:"claimed_score2"`
		ProofPaths                 []string `json:"proof_paths"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ClaimedWinnerParticipantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "claimed_winner_participant_id is required"})
	}

	report, err := s.SubmitReport(c.Params("id"), userID,
		req.ClaimedWinnerParticipantID, req.ClaimedScore1, req.ClaimedScore2, req.ProofPaths)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (s *MatchService) WithdrawReportEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	report, err := s.WithdrawReport(c.Params("id"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(report)
}

func (s *MatchService) AcceptReportEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	match, err := s.AcceptReport(c.Params("id"), c.Params("report_id"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(match)
}

func (s *MatchService) RejectReportEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	report, err := s.RejectReport(c.Params("id"), c.Params("report_id"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(report)
}
