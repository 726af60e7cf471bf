package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/tablevox/phone-agent-be/internal/core/jobs"
	"github.com/tablevox/phone-agent-be/internal/core/llm"
	"github.com/tablevox/phone-agent-be/internal/core/payment"
	"github.com/tablevox/phone-agent-be/internal/core/scheduler"
	"github.com/tablevox/phone-agent-be/internal/core/telephony"
	"github.com/tablevox/phone-agent-be/internal/core/tenant"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/handlers"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/repositories"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/services"
	"github.com/tablevox/phone-agent-be/internal/shared/config"
	"github.com/tablevox/phone-agent-be/internal/shared/database"
	"github.com/tablevox/phone-agent-be/internal/shared/utils"
)

func main() {
	utils.InitLogger()
	cfg := config.LoadConfig()
	utils.LogInfo("starting phone-agent-be", map[string]interface{}{"env": cfg.Env, "port": cfg.Port})

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	if err := db.GORM.AutoMigrate(
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.Booking{},
		&models.PaymentSession{},
		&models.ConversationLog{},
		&jobs.Job{},
	); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Repositories
	restaurantRepo := repositories.NewRestaurantRepo(db.GORM)
	orderRepo := repositories.NewOrderRepo(db.GORM)
	bookingRepo := repositories.NewBookingRepo(db.GORM)
	paymentRepo := repositories.NewPaymentRepo(db.GORM)
	conversationRepo := repositories.NewConversationRepo(db.GORM)

	// Core services
	llmService := llm.NewService()
	telephonyService := telephony.NewService()
	loader := tenant.NewLoader(restaurantRepo)

	gateway, err := payment.NewGateway(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create payment gateway: %v", err)
	}

	cipher, err := services.NewCardCipher(cardKey(cfg))
	if err != nil {
		log.Fatalf("❌ Failed to init card encryption: %v", err)
	}

	// Ordering services
	sessions := services.NewSessionStore(cfg.TextSessionTTL)
	matcher := services.NewMatcher(cfg.ItemMatchThreshold)
	availability := services.NewAvailabilityService(bookingRepo)
	queue := jobs.NewQueue(db.GORM)
	finalize := services.NewFinalizeService(orderRepo, bookingRepo, availability, queue)
	payments := services.NewPaymentService(paymentRepo, orderRepo, gateway, cipher, cfg.KeypadRetryLimit, cfg.PaymentSessionTTL)
	turns := services.NewTurnService(llmService, sessions, matcher, availability, finalize, loader, conversationRepo, cfg.LLMTimeout)

	// Background worker for confirmation texts
	ctx := context.Background()
	worker := jobs.NewWorker(queue, jobs.DefaultWorkerConfig())
	worker.RegisterHandler(jobs.NewSMSNotificationHandler(telephonyService))
	if err := worker.Start(ctx); err != nil {
		log.Fatalf("❌ Failed to start job worker: %v", err)
	}

	// Maintenance scheduler
	sched := scheduler.NewScheduler()
	schedule := func(name, spec string, job func()) {
		if err := sched.AddJob(name, spec, job); err != nil {
			utils.LogFatal("failed to schedule "+name, err)
		}
	}
	schedule("payment-session-purge", "0 * * * * *", payments.PurgeExpired)
	schedule("text-session-sweep", "0 */10 * * * *", func() {
		sessions.Sweep(time.Now())
	})
	schedule("old-job-cleanup", "0 0 3 * * *", func() {
		if _, err := queue.DeleteOldJobs(ctx, 7*24*time.Hour); err != nil {
			utils.LogError("job cleanup failed", err, nil)
		}
	})
	sched.Start()
	defer sched.Stop()

	// Handlers
	voiceHandler := handlers.NewVoiceHandler(turns, payments)
	smsHandler := handlers.NewSMSHandler(turns)
	healthHandler := handlers.NewHealthHandler(db)

	app := fiber.New(fiber.Config{
		AppName: "phone-agent-be",
	})
	app.Use(cors.New())

	app.Get("/health", healthHandler.Check)

	webhooks := app.Group("/webhooks", telephony.ValidateTwilioSignature(cfg.TwilioAuthToken, cfg.PublicBaseURL))
	webhooks.Post("/voice", voiceHandler.Incoming)
	webhooks.Post("/voice/gather", voiceHandler.Gather)
	webhooks.Post("/voice/keypad", voiceHandler.Keypad)
	webhooks.Post("/voice/status", voiceHandler.Status)
	webhooks.Post("/sms", smsHandler.Incoming)

	log.Printf("🚀 API running at :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// cardKey returns the configured encryption key, or an ephemeral one in
// development so the keypad flow still works without setup. Processor
// mode always requires a real key.
func cardKey(cfg *config.Config) string {
	if cfg.CardEncryptionKey != "" {
		return cfg.CardEncryptionKey
	}
	if cfg.PaymentMode == "processor" {
		log.Fatal("❌ CARD_ENCRYPTION_KEY is required in processor payment mode")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("❌ Failed to generate ephemeral card key: %v", err)
	}
	utils.LogWarn("CARD_ENCRYPTION_KEY not set, using ephemeral key", map[string]interface{}{"mode": cfg.PaymentMode})
	return hex.EncodeToString(buf)
}
