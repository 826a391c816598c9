package config

import "time"

const (
	// Retention
	PresenceTTL = 24 * time.Hour
	ViewTTL     = 30 * 24 * time.Hour

	// Cleanup scheduling
	DefaultCleanupCron = "*/2 * * * *"
	CleanupTimeout     = time.Minute

	// Auth
	TokenTTL  = 72 * time.Hour
	JWTIssuer = "vanishly-service"

	// WebSocket presence gateway
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)
