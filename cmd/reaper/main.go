package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"vanishly/backend/internal/config"
	"vanishly/backend/internal/lifecycle"
	"vanishly/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// One-shot cleanup pass for operators and external schedulers:
//
//	reaper [chat_id]
//
// Runs a single bounded RunCleanup (optionally scoped to one chat) and
// prints the report as JSON.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		fmt.Println("DATABASE_DSN is required")
		os.Exit(1)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	facade := lifecycle.NewFacade(storage.NewStorageService(db, rdb))

	chatID := ""
	if len(os.Args) > 1 {
		chatID = os.Args[1]
	}

	timeout := config.CleanupTimeout
	if raw := os.Getenv("CLEANUP_TIMEOUT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Println("Invalid CLEANUP_TIMEOUT. Please provide a duration like 90s.")
			os.Exit(1)
		}
		timeout = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := facade.RunCleanup(ctx, chatID)
	out, _ := json.Marshal(report)
	fmt.Println(string(out))
	if err != nil {
		log.Fatalf("Cleanup pass aborted: %v", err)
	}
}
