package handlers

import (
	"gaming-lobby-system/middleware"
	"gaming-lobby-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(
	app *fiber.App,
	tournamentService *services.TournamentService,
	registrationService *services.RegistrationService,
	matchService *services.MatchService,
	rewardService *services.RewardService,
) {
	// 🔓 Public reads (gateway-authenticated, user context optional)
	app.Get("/tournaments", tournamentService.GetTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Get("/tournaments/:id/bracket", tournamentService.GetBracket)
	app.Get("/users/search", tournamentService.SearchUsers)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Tournament lifecycle (host)
	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Post("/tournaments/:id/start", registrationService.StartEndpoint)
	secured.Post("/tournaments/:id/cancel", tournamentService.CancelTournament)

	// Registration & check-in
	secured.Post("/tournaments/:id/register", registrationService.RegisterEndpoint)
	secured.Post("/tournaments/:id/check-in", registrationService.CheckInEndpoint)
	secured.Post("/tournaments/:id/withdraw", registrationService.WithdrawEndpoint)

	// Match progression
	secured.Post("/matches/:id/finalize", matchService.FinalizeEndpoint)
	secured.Post("/matches/:id/reports", matchService.SubmitReportEndpoint)
	secured.Post("/reports/:id/withdraw", matchService.WithdrawReportEndpoint)
	secured.Post("/matches/:id/reports/:report_id/accept", matchService.AcceptReportEndpoint)
	secured.Post("/matches/:id/reports/:report_id/reject", matchService.RejectReportEndpoint)

	// Proof screenshots (private object keys, no public URLs)
	secured.Post("/uploads/proof", tournamentService.UploadProof)
	secured.Get("/uploads/proof/*", tournamentService.DownloadProof)

	// Rewards & badges
	secured.Get("/users/me/rewards", rewardService.GetMyRewards)
	secured.Get("/users/me/badges", rewardService.GetMyBadges)
}
