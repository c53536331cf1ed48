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
)

// RegistrationService enforces the registration → check-in → start flow.
// Core operations are plain methods so the bracket rules stay testable;
// the fiber endpoints below are thin wrappers.
type RegistrationService struct {
	DB *gorm.DB
}

func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{DB: db}
}

// Register creates a Participant row and increments the tournament's
// participant counter. Capacity is enforced with a single conditional
// UPDATE so concurrent registrations can never overbook.
func (s *RegistrationService) Register(tournamentID, userID string) (*models.Participant, error) {
	var participant models.Participant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.Status != models.TournamentStatusOpen {
			return ErrRegistrationClosed
		}
		if time.Now().After(t.RegistrationDeadline) {
			return ErrDeadlinePassed
		}

		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("tournament_id = ? AND external_user_id = ?", tournamentID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyRegistered
		}

		// Atomic capacity check: increment only while below max
		res := tx.Model(&models.Tournament{}).
			Where("id = ? AND current_participants < max_participants", tournamentID).
			UpdateColumn("current_participants", gorm.Expr("current_participants + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTournamentFull
		}

		participant = models.Participant{
			ID:             uuid.NewString(),
			TournamentID:   tournamentID,
			ExternalUserID: userID,
			Status:         models.ParticipantStatusRegistered,
		}

		// Denormalize the profile snapshot if the sync worker has it
		var lobbyUser models.LobbyUser
		if err := tx.First(&lobbyUser, "external_user_id = ?", userID).Error; err == nil {
			participant.UserName = lobbyUser.Username
			participant.UserAvatarURL = lobbyUser.ProfilePictureURL
		}

		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// CheckIn confirms attendance inside the check-in window.
func (s *RegistrationService) CheckIn(tournamentID, userID string) (*models.Participant, error) {
	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !t.CheckInRequired {
		return nil, ErrCheckInNotRequired
	}
	if t.CheckInDeadline != nil && time.Now().After(*t.CheckInDeadline) {
		return nil, ErrDeadlinePassed
	}

	var participant models.Participant
	if err := s.DB.First(&participant, "tournament_id = ? AND external_user_id = ?", tournamentID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	switch participant.Status {
	case models.ParticipantStatusWithdrawn:
		return nil, ErrWithdrawn
	case models.ParticipantStatusCheckedIn:
		return nil, ErrAlreadyCheckedIn
	}

	now := time.Now()
	participant.Status = models.ParticipantStatusCheckedIn
	participant.CheckedInAt = &now
	if err := s.DB.Save(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

// Withdraw releases a registration slot. Locked once the bracket starts.
func (s *RegistrationService) Withdraw(tournamentID, userID string) (*models.Participant, error) {
	var participant models.Participant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.Status == models.TournamentStatusInProgress || t.Status == models.TournamentStatusCompleted {
			return ErrTournamentInProgress
		}

		if err := tx.First(&participant, "tournament_id = ? AND external_user_id = ?", tournamentID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotRegistered
			}
			return err
		}
		if participant.Status == models.ParticipantStatusWithdrawn {
			return ErrWithdrawn
		}

		participant.Status = models.ParticipantStatusWithdrawn
		if err := tx.Save(&participant).Error; err != nil {
			return err
		}

		return tx.Model(&models.Tournament{}).
			Where("id = ? AND current_participants > 0", tournamentID).
			UpdateColumn("current_participants", gorm.Expr("current_participants - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// Start generates and persists the bracket and flips the tournament to
// in_progress, all in one transaction. Host only; the eligible
// participant count must be exactly 8 or 16, no other value works.
func (s *RegistrationService) Start(tournamentID, hostID string) ([]models.Match, error) {
	var matches []models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if t.HostID != hostID {
			return ErrNotHost
		}
		if t.Status != models.TournamentStatusOpen && t.Status != models.TournamentStatusRegistrationClosed {
			return ErrInvalidStatus
		}

		// With check-in enabled only checked-in players enter the bracket;
		// without it every non-withdrawn registration counts.
		eligible := []string{models.ParticipantStatusCheckedIn}
		if !t.CheckInRequired {
			eligible = append(eligible, models.ParticipantStatusRegistered)
		}

		var participants []models.Participant
		if err := tx.Where("tournament_id = ? AND status IN ?", tournamentID, eligible).
			Order("created_at ASC").
			Find(&participants).Error; err != nil {
			return err
		}
		if len(participants) != 8 && len(participants) != 16 {
			return ErrWrongCheckedInCount
		}

		generated, err := bracket.Generate(tournamentID, participants)
		if err != nil {
			return err
		}
		if err := tx.Create(&generated).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Tournament{}).
			Where("id = ?", tournamentID).
			Update("status", models.TournamentStatusInProgress).Error; err != nil {
			return err
		}

		matches = generated
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[REGISTRATION] Tournament %s started with %d matches", tournamentID, len(matches))
	return matches, nil
}

// --- Fiber endpoints ---

func (s *RegistrationService) RegisterEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	participant, err := s.Register(c.Params("id"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(participant)
}

func (s *RegistrationService) CheckInEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	participant, err := s.CheckIn(c.Params("id"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(participant)
}

func (s *RegistrationService) WithdrawEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	participant, err := s.Withdraw(c.Params("id"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(participant)
}

func (s *RegistrationService) StartEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	matches, err := s.Start(c.Params("id"), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"tournament_id": c.Params("id"),
		"status":        models.TournamentStatusInProgress,
		"matches":       matches,
	})
}
