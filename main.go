package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"referral-rewards-system/handlers"
	"referral-rewards-system/middleware"
	"referral-rewards-system/models"
	"referral-rewards-system/services"
	"referral-rewards-system/utils"
	"referral-rewards-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // attachments are invoices/receipts, not game builds
	})

	app.Use(recover.New())

	// 🔐❗ GLOBAL: Only gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
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
		&models.Profile{},
		&models.Referral{},
		&models.Job{},
		&models.RewardRule{},
		&models.LedgerEntry{},
		&models.AccountBalance{},
		&models.CatalogItem{},
		&models.RedemptionRequest{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	profileService := services.NewProfileService(db)
	ledgerService := services.NewLedgerService(db)
	ruleService := services.NewRuleService(db)
	referralService := services.NewReferralService(db, ruleService, ledgerService, profileService)
	catalogService := services.NewCatalogService(db)
	redemptionService := services.NewRedemptionService(db, ledgerService, profileService)

	identityServiceURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityServiceURL == "" {
		log.Fatal("IDENTITY_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("PORTAL_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("PORTAL_SERVICE_TOKEN environment variable not set")
	}

	syncWorker := workers.NewProfileSyncWorker(db, identityServiceURL, "/api/v1/public/profiles", serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Profile Sync Worker...")
		syncWorker.Start(ctx)
	}()

	ledgerService.StartReconciliationScheduler(10 * time.Minute)

	handlers.SetupReferralRoutes(app, db, referralService)
	handlers.SetupRewardsRoutes(app, db, profileService, ledgerService, ruleService)
	handlers.SetupRedemptionRoutes(app, db, catalogService, redemptionService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Ledger reconciliation running (every 10m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come through the gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
