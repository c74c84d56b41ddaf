package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"beertracker/internal/handlers"
	"beertracker/internal/middleware"
	"beertracker/internal/models"
	"beertracker/internal/repositories"
	"beertracker/internal/services"
	"beertracker/pkg/openai"
	"beertracker/pkg/rabbitmq"

	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_URL", "beertracker.db")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("BEER_GOAL", 1000000)
	viper.SetDefault("ADMIN_INVITE_CODE", "ADMINBEER")
	viper.SetDefault("OPENAI_API_KEY", "")
	viper.SetDefault("OPENAI_BASE_URL", "")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("VERIFY_REQUIRED", false)
	viper.SetDefault("VERIFY_FAIL_OPEN", false) // fail-closed by default
	viper.SetDefault("VERIFY_TIMEOUT_SECONDS", 15)
	viper.SetDefault("ROAST_ENABLED", true)
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	databaseURL := viper.GetString("DATABASE_URL")

	// --- Database ---
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}
	// TranslateError turns driver duplicate-key errors into gorm.ErrDuplicatedKey.
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Invite{}, &models.Session{}, &models.Drink{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Ledger ---
	ledger := repositories.NewGORMLedger(db)
	seedAdminInvite(ledger, viper.GetString("ADMIN_INVITE_CODE"))

	// --- Optional RabbitMQ client ---
	// Drink events are best-effort; a missing broker disables publishing
	// instead of failing startup.
	var mqClient *rabbitmq.Client
	if mqURL := viper.GetString("RABBITMQ_URL"); mqURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: mqURL})
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, drink events disabled: %v", err)
			mqClient = nil
		} else {
			defer mqClient.Close()
		}
	}

	// --- Optional AI collaborators ---
	var drinkVerifier services.Verifier
	var roaster services.Roaster
	if apiKey := viper.GetString("OPENAI_API_KEY"); apiKey != "" {
		aiClient := openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: viper.GetString("OPENAI_BASE_URL"),
			Model:   viper.GetString("OPENAI_MODEL"),
			Timeout: time.Duration(viper.GetInt("VERIFY_TIMEOUT_SECONDS")) * time.Second,
		})
		drinkVerifier = aiClient
		if viper.GetBool("ROAST_ENABLED") {
			roaster = aiClient
		}
	} else {
		log.Println("OPENAI_API_KEY not set; drink verification and roasts disabled")
	}

	// --- Services ---
	authService := services.NewAuthService(ledger)
	inviteService := services.NewInviteService(ledger, viper.GetString("BASE_URL"))
	drinkService := services.NewDrinkService(ledger, drinkVerifier, roaster, mqClient, services.DrinkConfig{
		RequirePhoto:        viper.GetBool("VERIFY_REQUIRED"),
		FailOpen:            viper.GetBool("VERIFY_FAIL_OPEN"),
		Goal:                viper.GetInt("BEER_GOAL"),
		CollaboratorTimeout: time.Duration(viper.GetInt("VERIFY_TIMEOUT_SECONDS")) * time.Second,
	})
	statsService := services.NewStatsService(ledger, viper.GetInt("BEER_GOAL"))

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	drinkHandler := handlers.NewDrinkHandler(drinkService)
	statsHandler := handlers.NewStatsHandler(statsService)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(logger.New())

	// --- API Routes ---
	api := app.Group("/api")

	authHandler.RegisterPublicRoutes(api)
	inviteHandler.RegisterPublicRoutes(api)
	statsHandler.RegisterPublicRoutes(api)

	protected := api.Group("", middleware.SessionAuth(authService))
	authHandler.RegisterProtectedRoutes(protected)
	inviteHandler.RegisterProtectedRoutes(protected)
	drinkHandler.RegisterProtectedRoutes(protected)

	admin := protected.Group("/admin", middleware.AdminRequired())
	drinkHandler.RegisterAdminRoutes(admin)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Drink-event consumer ---
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for drink events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received Drink Event (Tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumeDrinkEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// seedAdminInvite makes sure the bootstrap admin invite exists. The first
// registration with it becomes the admin account.
func seedAdminInvite(ledger repositories.Ledger, code string) {
	if code == "" {
		return
	}
	if _, err := ledger.GetInvite(code); err == nil {
		return
	}
	invite := &models.Invite{
		Code:    code,
		IsAdmin: true,
	}
	if err := ledger.CreateInvite(invite); err != nil {
		log.Printf("Error seeding admin invite: %v", err)
		return
	}
	log.Println("========================================")
	log.Printf("ADMIN INVITE CODE: %s", code)
	log.Println("Use this to create the admin account!")
	log.Println("========================================")
}
