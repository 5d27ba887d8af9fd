package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mailroom/internal/handlers"
	"mailroom/internal/middleware"
	"mailroom/internal/models"
	"mailroom/internal/repositories"
	"mailroom/internal/services"
	"mailroom/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	// A local .env is a development convenience; the environment wins.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load .env file: %v", err)
		}
	}

	viper.SetDefault("APP_PORT", ":8080")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	databaseURL := viper.GetString("DATABASE_URL")
	token := viper.GetString("TOKEN")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")

	// Both are startup-time requirements, never per-request errors.
	if databaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}
	if token == "" {
		log.Fatal("TOKEN must be set")
	}

	// --- Initialize Database (GORM) ---
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Initialize RabbitMQ Client (optional) ---
	var mqClient *rabbitmq.Client
	if rabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set, message events will not be published")
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	messageRepo := repositories.NewGORMMessageRepository(db)

	// --- Initialize Services ---
	authService := services.NewAuthService(userRepo)

	var publisher services.MessageEventPublisher
	if mqClient != nil {
		publisher = mqClient
	}
	messageService := services.NewMessageService(messageRepo, userRepo, token, publisher)

	// Seed the bootstrap admin account if one is configured.
	seedAdminUser(authService, userRepo)

	// --- Initialize Handlers ---
	messageHandler := handlers.NewMessageHandler(messageService)
	userHandler := handlers.NewUserHandler(authService)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- API Routes ---
	// Every /api route sits behind Basic Auth.
	api := app.Group("/api", middleware.BasicAuthRequired(authService))
	messageHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start RabbitMQ Consumer ---
	// The consumer just logs the message event stream; downstream audit
	// tooling attaches to the same queue.
	if mqClient != nil {
		if err := mqClient.ConsumeMessageEvents(func(msg amqp.Delivery) error {
			log.Printf("Received message event (tag %d): %s", msg.DeliveryTag, string(msg.Body))
			return nil
		}); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
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

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// seedAdminUser provisions the initial privileged account from the
// environment when it does not exist yet. Without it a fresh deployment
// has no caller able to reach the provisioning endpoint.
func seedAdminUser(authService *services.AuthService, userRepo repositories.UserRepository) {
	username := viper.GetString("ADMIN_USERNAME")
	password := viper.GetString("ADMIN_PASSWORD")
	email := viper.GetString("ADMIN_EMAIL")
	if username == "" || password == "" || email == "" {
		return
	}

	if _, err := userRepo.GetByUsername(username); err == nil {
		return // already provisioned
	}

	admin := models.User{
		Username:     username,
		Password:     password,
		Email:        email,
		HasPrivilege: true,
	}
	if err := authService.RegisterUser(&admin); err != nil {
		log.Printf("Error seeding admin user %s: %v", username, err)
		return
	}
	log.Printf("Seeded admin user: %s (ID: %d)", admin.Username, admin.ID)
}
