package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fantasy-sports-system/events"
	"fantasy-sports-system/handlers"
	"fantasy-sports-system/metrics"
	"fantasy-sports-system/models"
	"fantasy-sports-system/services"
	"fantasy-sports-system/utils"
	"fantasy-sports-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}
	utils.InitLogger(getenv("APP_ENV", "development"))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		utils.Log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		utils.Log.Fatalw("failed to connect to database", "error", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.Player{},
		&models.Scorecard{},
		&models.InningsScore{},
		&models.PlayerPerformance{},
		&models.ContestEntry{},
		&models.WalletTransaction{},
		&models.Notification{},
	); err != nil {
		utils.Log.Fatalw("failed to migrate database", "error", err)
	}

	// Optional infrastructure: kafka and redis are enabled only when
	// configured, and the services treat nil as "disabled".
	var publisher *events.KafkaPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		publisher = events.NewKafkaPublisher(brokers)
		defer publisher.Close()
	}
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
	}

	walletService := services.NewWalletService(db)
	notificationService := services.NewNotificationService(db)
	matchService := services.NewMatchService(db, walletService)
	contestService := services.NewContestService(db, walletService, notificationService)
	leaderboardService := services.NewLeaderboardService(db, redisClient)
	settlementService := services.NewSettlementService(db, contestService, walletService, notificationService, leaderboardService, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := matchService.StartAutoLockScheduler()
	if scheduler != nil {
		defer func() { _ = scheduler.Shutdown() }()
	}

	liveWorker := workers.NewLiveScoreWorker(db, matchService, contestService, leaderboardService, 30*time.Second)
	go liveWorker.Run(ctx)

	metricsServer := metrics.StartServer(getenv("METRICS_PORT", "9100"), func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	defer func() { _ = metricsServer.Close() }()

	app := fiber.New(fiber.Config{
		AppName: "fantasy-sports-system",
	})

	allowedOrigins := getenv("ALLOWED_ORIGINS", "http://localhost:3000")
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.SetupWalletRoutes(app, walletService)
	handlers.SetupContestRoutes(app, contestService, leaderboardService)
	handlers.SetupMatchRoutes(app, matchService, leaderboardService, settlementService)
	handlers.SetupNotificationRoutes(app, notificationService)

	port := getenv("PORT", "5200")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			utils.Log.Errorw("server error", "error", err)
		}
	}()
	utils.Log.Infow("server running", "port", port, "metrics_port", getenv("METRICS_PORT", "9100"))

	<-ctx.Done()
	utils.Log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		utils.Log.Errorw("shutdown error", "error", err)
	}
}
