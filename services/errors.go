package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"gaming-lobby-system/bracket"
)

// Service errors
var (
	// Tournament lifecycle errors
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrNotHost              = errors.New("only the tournament host can perform this action")
	ErrInvalidStatus        = errors.New("tournament is not in a valid status for this action")
	ErrTournamentInProgress = errors.New("tournament has already started")
	ErrInvalidBracketBounds = errors.New("max participants must be exactly 8 or 16")
	ErrInvalidSchedule      = errors.New("registration deadline must come before start time")
	ErrHostNotEntitled      = errors.New("user is not allowed to host tournaments")

	// Registration and check-in errors
	ErrRegistrationClosed  = errors.New("tournament is not accepting registrations")
	ErrDeadlinePassed      = errors.New("deadline has passed")
	ErrAlreadyRegistered   = errors.New("already registered for this tournament")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrCheckInNotRequired  = errors.New("tournament does not require check-in")
	ErrNotRegistered       = errors.New("not registered for this tournament")
	ErrAlreadyCheckedIn    = errors.New("already checked in")
	ErrWithdrawn           = errors.New("participant has withdrawn")
	ErrWrongCheckedInCount = errors.New("checked-in participant count must be exactly 8 or 16")

	// Match finalization errors
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchNotReady    = errors.New("both participant slots must be filled before finalizing")
	ErrInvalidWinner    = errors.New("winner must be one of the match participants")
	ErrAlreadyFinalized = errors.New("match has already been finalized")

	// Match report errors
	ErrReportNotFound         = errors.New("match report not found")
	ErrReportNotOpen          = errors.New("match report is no longer open")
	ErrReportAlreadySubmitted = errors.New("an open report for this match already exists")
	ErrNotMatchParticipant    = errors.New("only match participants can report results")
)

// respondServiceError maps sentinel errors onto the JSON error shape the
// gateway expects. Anything unrecognized is a store failure (500).
func respondServiceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrTournamentNotFound),
		errors.Is(err, ErrMatchNotFound),
		errors.Is(err, ErrReportNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrNotHost),
		errors.Is(err, ErrHostNotEntitled),
		errors.Is(err, ErrNotMatchParticipant):
		status = fiber.StatusForbidden
	case errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrAlreadyCheckedIn),
		errors.Is(err, ErrAlreadyFinalized),
		errors.Is(err, ErrTournamentFull),
		errors.Is(err, ErrReportAlreadySubmitted):
		status = fiber.StatusConflict
	case errors.Is(err, ErrRegistrationClosed),
		errors.Is(err, ErrDeadlinePassed),
		errors.Is(err, ErrCheckInNotRequired),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrWithdrawn),
		errors.Is(err, ErrWrongCheckedInCount),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrTournamentInProgress),
		errors.Is(err, ErrMatchNotReady),
		errors.Is(err, ErrInvalidWinner),
		errors.Is(err, ErrReportNotOpen),
		errors.Is(err, ErrInvalidBracketBounds),
		errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, bracket.ErrInvalidBracketSize):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
