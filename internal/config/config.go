package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pillflow-service/internal/db"
	"pillflow-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr    string
	CORSOrigins []string

	// Storage
	Postgres  db.PostgresConfig
	RedisAddr string
	RedisPass string

	// JWT
	JWT jwt.Config

	// Logging
	LogLevel string
	LogDev   bool

	// Scheduling and aggregation
	ExpectedCadence  int
	ScheduleInterval time.Duration
	DueHorizon       time.Duration
	AggregateTTL     time.Duration
	Location         *time.Location
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),

		Postgres: db.PostgresConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		},
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", "/app/secrets/jwt_private.pem"),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem"),
			Issuer:   getEnv("JWT_ISSUER", "pillflow"),
			Audience: getEnv("JWT_AUDIENCE", "pillflow-api"),
			TTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
			KID:      getEnv("JWT_KID", "pillflow-key"),
		},

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDev:   getEnvBool("LOG_DEV", false),

		ExpectedCadence:  getEnvInt("EXPECTED_CADENCE", 4),
		ScheduleInterval: time.Duration(getEnvInt("SCHEDULE_INTERVAL_DAYS", 7)) * 24 * time.Hour,
		DueHorizon:       time.Duration(getEnvInt("DUE_HORIZON_DAYS", 7)) * 24 * time.Hour,
		AggregateTTL:     getEnvDuration("AGGREGATE_CACHE_TTL", 5*time.Minute),
		Location:         getEnvLocation("TIMEZONE", time.UTC),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// getEnvInt falls back on missing, malformed or non-positive values.
func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvLocation(key string, fallback *time.Location) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}
