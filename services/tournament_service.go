package services

import (
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gaming-lobby-system/models"
	"gaming-lobby-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB           *gorm.DB
	Entitlements *EntitlementClient // nil disables the host capability check
}

func NewTournamentService(db *gorm.DB, entitlements *EntitlementClient) *TournamentService {
	return &TournamentService{DB: db, Entitlements: entitlements}
}

// CreateTournament creates a bracket tournament. Hosting is gated on the
// elevated-tier capability held by the entitlement service.
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var req struct {
		Name                 string     `json:"name"`
		Description          string     `json:"description"`
		GameID               string     `json:"game_id"`
		GameName             string     `json:"game_name"`
		Platform             string     `json:"platform"`
		MaxParticipants      int        `json:"max_participants"`
		StartAt              time.Time  `json:"start_at"`
		RegistrationDeadline time.Time  `json:"registration_deadline"`
		CheckInRequired      bool       `json:"check_in_required"`
		CheckInDeadline      *time.Time `json:"check_in_deadline"`
		Draft                bool       `json:"draft"`

		FirstBadgeLabel     string `json:"first_badge_label"`
		FirstBadgeImageURL  string `json:"first_badge_image_url"`
		SecondBadgeLabel    string `json:"second_badge_label"`
		SecondBadgeImageURL string `json:"second_badge_image_url"`
		ThirdBadgeLabel     string `json:"third_badge_label"`
		ThirdBadgeImageURL  string `json:"third_badge_image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// --- Validation ---
	if req.Name == "" || req.GameID == "" || req.StartAt.IsZero() || req.RegistrationDeadline.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name, game_id, start_at and registration_deadline are required",
		})
	}
	if req.MaxParticipants != 8 && req.MaxParticipants != 16 {
		return respondServiceError(c, ErrInvalidBracketBounds)
	}
	if !req.RegistrationDeadline.Before(req.StartAt) {
		return respondServiceError(c, ErrInvalidSchedule)
	}
	if req.CheckInRequired {
		if req.CheckInDeadline == nil ||
			!req.RegistrationDeadline.Before(*req.CheckInDeadline) ||
			!req.CheckInDeadline.Before(req.StartAt) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "check_in_deadline must fall between registration_deadline and start_at",
			})
		}
	}

	// --- Entitlement gate ---
	if s.Entitlements != nil {
		allowed, err := s.Entitlements.CanHostTournaments(userID)
		if err != nil {
			log.Printf("[TOURNAMENT] Entitlement check failed for %s: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "entitlement check unavailable"})
		}
		if !allowed {
			return respondServiceError(c, ErrHostNotEntitled)
		}
	}

	status := models.TournamentStatusOpen
	if req.Draft {
		status = models.TournamentStatusDraft
	}

	tournament := &models.Tournament{
		ID:                   uuid.NewString(),
		Slug:                 s.uniqueSlug(req.Name),
		HostID:               userID,
		Name:                 req.Name,
		Description:          req.Description,
		GameID:               req.GameID,
		GameName:             req.GameName,
		Platform:             req.Platform,
		MaxParticipants:      req.MaxParticipants,
		Status:               status,
		StartAt:              req.StartAt,
		RegistrationDeadline: req.RegistrationDeadline,
		CheckInRequired:      req.CheckInRequired,
		CheckInDeadline:      req.CheckInDeadline,
		FirstBadgeLabel:      req.FirstBadgeLabel,
		FirstBadgeImageURL:   req.FirstBadgeImageURL,
		SecondBadgeLabel:     req.SecondBadgeLabel,
		SecondBadgeImageURL:  req.SecondBadgeImageURL,
		ThirdBadgeLabel:      req.ThirdBadgeLabel,
		ThirdBadgeImageURL:   req.ThirdBadgeImageURL,
	}

	if err := s.DB.Create(tournament).Error; err != nil {
		log.Printf("[TOURNAMENT] DB insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB insert failed"})
	}

	tournament.Phase = ClassifyPhase(tournament, time.Now())
	return c.Status(fiber.StatusCreated).JSON(tournament)
}

// uniqueSlug builds a URL slug from the name, suffixing a uuid fragment
// on collision.
func (s *TournamentService) uniqueSlug(name string) string {
	base := slug.Make(name)
	var count int64
	s.DB.Model(&models.Tournament{}).Where("slug = ?", base).Count(&count)
	if count == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

// GetTournaments lists tournaments with an optional computed-phase
// filter (upcoming|live|completed) and limit/offset pagination.
func (s *TournamentService) GetTournaments(c *fiber.Ctx) error {
	phase := c.Query("phase", "")
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	var tournaments []models.Tournament
	if err := s.DB.Order("start_at ASC").Find(&tournaments).Error; err != nil {
		log.Printf("[TOURNAMENT] Failed to list tournaments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}

	now := time.Now()
	filtered := make([]models.Tournament, 0, len(tournaments))
	for i := range tournaments {
		tournaments[i].Phase = ClassifyPhase(&tournaments[i], now)
		if phase == "" || tournaments[i].Phase == phase {
			filtered = append(filtered, tournaments[i])
		}
	}

	// Paginate after the phase filter so pages stay stable per phase
	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return c.JSON(fiber.Map{
		"tournaments": filtered[offset:end],
		"total":       total,
	})
}

// GetTournamentByID returns the tournament with participants, matches
// and the caller's own participation row if any.
func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var tournament models.Tournament
	err := s.DB.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Matches", func(db *gorm.DB) *gorm.DB {
			return db.Order("round_number ASC, match_number ASC")
		}).
		First(&tournament, "id = ? OR slug = ?", id, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondServiceError(c, ErrTournamentNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch tournament"})
	}

	tournament.Phase = ClassifyPhase(&tournament, time.Now())

	// Detail is public; participation only resolves when the gateway
	// forwarded an identity.
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		userID = c.Get("X-User-ID")
	}
	var participation *models.Participant
	if userID != "" {
		for i := range tournament.Participants {
			if tournament.Participants[i].ExternalUserID == userID {
				participation = &tournament.Participants[i]
				break
			}
		}
	}

	return c.JSON(fiber.Map{
		"tournament":    tournament,
		"participation": participation,
	})
}

// GetBracket returns the tournament's matches grouped per round.
func (s *TournamentService) GetBracket(c *fiber.Ctx) error {
	id := c.Params("id")

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondServiceError(c, ErrTournamentNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch tournament"})
	}

	var matches []models.Match
	if err := s.DB.Where("tournament_id = ?", id).
		Order("round_number ASC, match_number ASC").
		Find(&matches).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch bracket"})
	}

	type round struct {
		RoundNumber int            `json:"round_number"`
		Matches     []models.Match `json:"matches"`
	}
	var rounds []round
	for _, m := range matches {
		if len(rounds) == 0 || rounds[len(rounds)-1].RoundNumber != m.RoundNumber {
			rounds = append(rounds, round{RoundNumber: m.RoundNumber})
		}
		last := len(rounds) - 1
		rounds[last].Matches = append(rounds[last].Matches, m)
	}

	return c.JSON(fiber.Map{
		"tournament_id": tournament.ID,
		"status":        tournament.Status,
		"rounds":        rounds,
	})
}

// CancelTournament lets the host cancel any tournament that has not
// completed yet.
func (s *TournamentService) CancelTournament(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondServiceError(c, ErrTournamentNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch tournament"})
	}
	if tournament.HostID != userID {
		return respondServiceError(c, ErrNotHost)
	}
	if tournament.Status == models.TournamentStatusCompleted || tournament.Status == models.TournamentStatusCancelled {
		return respondServiceError(c, ErrInvalidStatus)
	}

	tournament.Status = models.TournamentStatusCancelled
	if err := s.DB.Save(&tournament).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to cancel tournament"})
	}
	log.Printf("[TOURNAMENT] Tournament %s cancelled by host %s", tournament.ID, userID)
	return c.JSON(tournament)
}

// SearchUsers searches the local LobbyUser snapshots kept fresh by the
// profile sync worker.
func (s *TournamentService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.LobbyUser{}).Where("is_banned = ?", false).Limit(limit)
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(username) LIKE ?", searchTerm)
	}

	var users []models.LobbyUser
	if err := db.Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "search failed"})
	}

	type userSummary struct {
		ExternalUserID    string  `json:"external_user_id"`
		Username          string  `json:"username"`
		ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	}
	res := make([]userSummary, len(users))
	for i, u := range users {
		res[i] = userSummary{
			ExternalUserID:    u.ExternalUserID,
			Username:          u.Username,
			ProfilePictureURL: u.ProfilePictureURL,
		}
	}
	return c.JSON(res)
}

// UploadProof stores a proof-of-match screenshot and returns its object
// key. The bucket is private, so the key (not a URL) goes into match
// reports; local disk is the fallback when R2 is not configured.
func (s *TournamentService) UploadProof(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	file, err := c.FormFile("file")
	if err != nil || file.Size == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "proofs/" + uuid.NewString() + ext

	if utils.R2Enabled() {
		if err := utils.UploadProofToR2(file, key); err != nil {
			log.Printf("[UPLOAD] R2 upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
		}
	} else {
		if err := utils.SaveFile(file, utils.GetUploadPath(key)); err != nil {
			log.Printf("[UPLOAD] Local save failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"path": key})
}

// DownloadProof streams a stored proof back by object key, for host
// review during adjudication.
func (s *TournamentService) DownloadProof(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	key := strings.TrimPrefix(c.Params("*"), "/")
	if key == "" || strings.Contains(key, "..") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid proof path"})
	}
	key = "proofs/" + strings.TrimPrefix(key, "proofs/")

	if utils.R2Enabled() {
		data, contentType, err := utils.FetchProofFromR2(key)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "proof not found"})
		}
		c.Set("Content-Type", contentType)
		return c.Send(data)
	}

	data, err := utils.ReadUpload(key)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "proof not found"})
	}
	return c.Send(data)
}
