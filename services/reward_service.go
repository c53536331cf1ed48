package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gaming-lobby-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Elevated-tier day grants per placement
const (
	WinnerTierDays   = 7
	FinalistTierDays = 3
	WinnerBoostDays  = 7
)

var badgeLabelCaser = cases.Title(language.English)

// RewardService computes placements once a bracket completes and grants
// badges, elevated-tier days and visibility boosts. It only ever runs
// from the RewardTask outbox processor, never from a request handler.
type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

// placements holds resolved participant IDs per tier
type placements struct {
	First  string
	Second string
	Third  string // semifinal loser eliminated by the eventual champion
	Fourth string // the other semifinal loser, unplaced 4th tier
}

// computePlacements walks the final and semifinal rounds. A forfeited
// match still has a recorded winner, so the non-winner is the loser for
// placement purposes.
func computePlacements(matches []models.Match) (*placements, error) {
	var final *models.Match
	for i := range matches {
		if final == nil || matches[i].RoundNumber > final.RoundNumber {
			final = &matches[i]
		}
	}
	if final == nil || final.WinnerID == nil {
		return nil, fmt.Errorf("final match not finalized")
	}
	if final.Participant1ID == nil || final.Participant2ID == nil {
		return nil, fmt.Errorf("final match has empty slots")
	}

	p := &placements{First: *final.WinnerID}
	if p.First == *final.Participant1ID {
		p.Second = *final.Participant2ID
	} else {
		p.Second = *final.Participant1ID
	}

	semifinalRound := final.RoundNumber - 1
	for i := range matches {
		m := &matches[i]
		if m.RoundNumber != semifinalRound {
			continue
		}
		if m.WinnerID == nil || m.Participant1ID == nil || m.Participant2ID == nil {
			return nil, fmt.Errorf("semifinal %d not finalized", m.MatchNumber)
		}
		loser := *m.Participant1ID
		if loser == *m.WinnerID {
			loser = *m.Participant2ID
		}
		// Third place is the loser knocked out by the eventual champion
		if *m.WinnerID == p.First {
			p.Third = loser
		} else {
			p.Fourth = loser
		}
	}
	if p.Third == "" || p.Fourth == "" {
		return nil, fmt.Errorf("semifinal placements incomplete")
	}
	return p, nil
}

// GrantRewards grants all placement rewards for a completed tournament.
// Every write is deduplicated by unique constraint, so reprocessing the
// same tournament is a no-op rather than a double grant.
func (s *RewardService) GrantRewards(tournamentID string) error {
	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.Status != models.TournamentStatusCompleted {
		return ErrInvalidStatus
	}

	var matches []models.Match
	if err := s.DB.Where("tournament_id = ?", tournamentID).Find(&matches).Error; err != nil {
		return err
	}
	placed, err := computePlacements(matches)
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		winner, err := s.participantUser(tx, placed.First)
		if err != nil {
			return err
		}
		runnerUp, err := s.participantUser(tx, placed.Second)
		if err != nil {
			return err
		}
		third, err := s.participantUser(tx, placed.Third)
		if err != nil {
			return err
		}
		fourth, err := s.participantUser(tx, placed.Fourth)
		if err != nil {
			return err
		}

		// 1st: badge, 7 tier days, visibility boost
		if err := s.grantBadge(tx, &t, winner, models.BadgeKeyWinner, t.FirstBadgeLabel, t.FirstBadgeImageURL); err != nil {
			return err
		}
		if err := s.grantTierDays(tx, &t, winner, 1, WinnerTierDays); err != nil {
			return err
		}
		if err := s.grantReward(tx, &t, winner, models.RewardTypeVisibilityBoost, 1,
			map[string]interface{}{"boost_days": WinnerBoostDays}); err != nil {
			return err
		}

		// 2nd: badge, 3 tier days
		if err := s.grantBadge(tx, &t, runnerUp, models.BadgeKeyFinalist, t.SecondBadgeLabel, t.SecondBadgeImageURL); err != nil {
			return err
		}
		if err := s.grantTierDays(tx, &t, runnerUp, 2, FinalistTierDays); err != nil {
			return err
		}

		// 3rd: badge only. A custom 3rd-place badge suppresses the 4th-tier badge.
		if err := s.grantBadge(tx, &t, third, models.BadgeKeyThird, t.ThirdBadgeLabel, t.ThirdBadgeImageURL); err != nil {
			return err
		}
		if t.ThirdBadgeLabel == "" {
			if err := s.grantBadge(tx, &t, fourth, models.BadgeKeyTop4, "", ""); err != nil {
				return err
			}
		}

		if err := s.writePlacement(tx, placed.First, 1); err != nil {
			return err
		}
		if err := s.writePlacement(tx, placed.Second, 2); err != nil {
			return err
		}
		if err := s.writePlacement(tx, placed.Third, 3); err != nil {
			return err
		}

		log.Printf("[REWARDS] Granted placements for tournament %s (winner=%s)", t.ID, winner)
		return nil
	})
}

func (s *RewardService) participantUser(tx *gorm.DB, participantID string) (string, error) {
	var p models.Participant
	if err := tx.First(&p, "id = ?", participantID).Error; err != nil {
		return "", fmt.Errorf("participant %s: %w", participantID, err)
	}
	return p.ExternalUserID, nil
}

func defaultBadgeLabel(badgeKey string) string {
	switch badgeKey {
	case models.BadgeKeyWinner:
		return badgeLabelCaser.String("tournament winner")
	case models.BadgeKeyFinalist:
		return badgeLabelCaser.String("tournament finalist")
	case models.BadgeKeyThird:
		return badgeLabelCaser.String("third place")
	default:
		return badgeLabelCaser.String("top four")
	}
}

func (s *RewardService) grantBadge(tx *gorm.DB, t *models.Tournament, userID, badgeKey, customLabel, customImage string) error {
	label := customLabel
	if label == "" {
		label = defaultBadgeLabel(badgeKey)
	}
	badge := models.Badge{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		BadgeKey:       badgeKey,
		TournamentID:   t.ID,
		Label:          label,
		ImageURL:       customImage,
		GameID:         t.GameID,
	}
	// Duplicate (user, badge_key, tournament) grants are silent no-ops
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&badge).Error; err != nil {
		return err
	}
	return s.grantReward(tx, t, userID, models.RewardTypeBadge, 0,
		map[string]interface{}{"badge_key": badgeKey, "label": label})
}

// grantTierDays moves the user's elevated-tier expiry to now+days
// unless the current expiry is already further out. Reprocessing is a
// no-op once the tier_days reward row exists.
func (s *RewardService) grantTierDays(tx *gorm.DB, t *models.Tournament, userID string, placement, days int) error {
	var granted int64
	if err := tx.Model(&models.Reward{}).
		Where("tournament_id = ? AND external_user_id = ? AND type = ?", t.ID, userID, models.RewardTypeTierDays).
		Count(&granted).Error; err != nil {
		return err
	}
	if granted > 0 {
		return nil
	}

	candidate := time.Now().AddDate(0, 0, days)

	var mirror models.TierMirror
	err := tx.First(&mirror, "external_user_id = ?", userID).Error
	switch {
	case err == nil:
		if candidate.After(mirror.ElevatedUntil) {
			mirror.ElevatedUntil = candidate
			if err := tx.Save(&mirror).Error; err != nil {
				return err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		mirror = models.TierMirror{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			ElevatedUntil:  candidate,
		}
		if err := tx.Create(&mirror).Error; err != nil {
			return err
		}
	default:
		return err
	}

	return s.grantReward(tx, t, userID, models.RewardTypeTierDays, placement,
		map[string]interface{}{"days": days, "elevated_until": mirror.ElevatedUntil.Format(time.RFC3339)})
}

func (s *RewardService) grantReward(tx *gorm.DB, t *models.Tournament, userID string, rewardType models.RewardType, placement int, payload map[string]interface{}) error {
	raw, _ := json.Marshal(payload)
	reward := models.Reward{
		ID:             uuid.NewString(),
		TournamentID:   t.ID,
		ExternalUserID: userID,
		Type:           rewardType,
		Placement:      placement,
		Payload:        string(raw),
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reward).Error
}

// writePlacement sets final_placement once; reruns leave the first value.
func (s *RewardService) writePlacement(tx *gorm.DB, participantID string, placement int) error {
	return tx.Model(&models.Participant{}).
		Where("id = ? AND final_placement IS NULL", participantID).
		Update("final_placement", placement).Error
}

// --- Fiber endpoints ---

// GetMyRewards returns the caller's tournament rewards, newest first.
func (s *RewardService) GetMyRewards(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	var rewards []models.Reward
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("created_at DESC").
		Find(&rewards).Error; err != nil {
		log.Printf("[REWARDS] Failed to fetch rewards for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch rewards"})
	}
	return c.JSON(rewards)
}

// GetMyBadges returns the caller's durable badges, newest first.
func (s *RewardService) GetMyBadges(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	var badges []models.Badge
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&badges).Error; err != nil {
		log.Printf("[REWARDS] Failed to fetch badges for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch badges"})
	}
	return c.JSON(badges)
}
