package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"vanishly/backend/internal/api/handler"
	"vanishly/backend/internal/config"
	"vanishly/backend/internal/lifecycle"
	"vanishly/backend/internal/models"
	"vanishly/backend/internal/scheduler"
	"vanishly/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=user password=password dbname=vanishlydb port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Chat{},
		&models.Message{},
		&models.MessageView{},
		&models.ChatPresence{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Vanishly Lifecycle Engine...")

	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	// 1. Dependencies
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	// 2. Lifecycle engine
	facade := lifecycle.NewFacade(s)

	// 3. Periodic cleanup. Clients also trigger scoped cleanups through the
	// API after view/presence changes; the reaper tolerates the overlap.
	cronExpr := os.Getenv("CLEANUP_CRON")
	if cronExpr == "" {
		cronExpr = config.DefaultCleanupCron
	}
	stopScheduler, err := scheduler.Start(context.Background(), cronExpr, config.CleanupTimeout,
		func(ctx context.Context) (models.CleanupReport, error) {
			return facade.RunCleanup(ctx, "")
		})
	if err != nil {
		log.Fatalf("Failed to start cleanup scheduler: %v", err)
	}
	defer stopScheduler()

	// 4. Gin routing
	r := gin.Default()
	h := handler.NewHandler(facade, s)

	r.GET("/token", h.GetToken)
	r.POST("/chats", h.CreateChat)
	r.POST("/chats/:id/messages", h.CreateMessage)
	r.DELETE("/chats/:id/members/:user_id", h.RemoveChatMember)
	r.POST("/messages/:id/view", h.RecordView)
	r.GET("/messages/:id/pending-viewers", h.GetPendingViewers)
	r.POST("/chats/:id/presence", h.SetPresence)
	r.GET("/chats/:id/stats", h.GetChatStats)
	r.POST("/cleanup", h.RunCleanup)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:           ":8080",
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
