package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gaming-lobby-system/handlers"
	"gaming-lobby-system/middleware"
	"gaming-lobby-system/models"
	"gaming-lobby-system/services"
	"gaming-lobby-system/utils"
	"gaming-lobby-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // proof screenshots
	})

	// 🔐 GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	allowedOrigins = strings.Join(origins, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
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
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	// --- Entitlement service (host capability check) ---
	var entitlements *services.EntitlementClient
	entitlementURL := os.Getenv("ENTITLEMENT_SERVICE_URL")
	if entitlementURL != "" {
		entitlements = services.NewEntitlementClient(entitlementURL, os.Getenv("GATEWAY_SERVICE_TOKEN"))
	} else {
		log.Println("⚠️  ENTITLEMENT_SERVICE_URL not set — host capability check disabled")
	}

	tournamentService := services.NewTournamentService(db, entitlements)
	registrationService := services.NewRegistrationService(db)
	matchService := services.NewMatchService(db)
	rewardService := services.NewRewardService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Profile snapshot sync ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL != "" {
		syncWorker := workers.NewLobbyUserSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", os.Getenv("GATEWAY_SERVICE_TOKEN"))
		syncWorker.Start(ctx)
	} else {
		log.Println("⚠️  PROFILE_SERVICE_URL not set — lobby user sync disabled")
	}

	// --- Reward outbox processor ---
	rewardService.StartRewardTaskScheduler()

	handlers.SetupTournamentRoutes(app, tournamentService, registrationService, matchService, rewardService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Reward outbox processor running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
