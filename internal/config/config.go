// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the pipeline service.
type Config struct {
	HTTPPort    string
	GRPCPort    string
	DatabaseURL string
	RedisURL    string
	AppURL      string

	ScorerProvider string // "gemini" or "openai"
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string

	GoogleClientID     string
	GoogleClientSecret string

	ResendAPIKey string
	EmailFrom    string

	S3Bucket   string
	AWSRegion  string
	S3Endpoint string // optional, for MinIO or LocalStack

	ReconcileSchedule   string // cron spec; empty disables the sweep
	CollaboratorTimeout time.Duration
	MaxDocumentBytes    int

	LogLevel  slog.Level
	LogFormat string // "json" or "text"
}

// Load reads a .env file when present, then environment variables, and
// returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	provider := strings.ToLower(getEnv("SCORER_PROVIDER", "gemini"))
	if provider != "gemini" && provider != "openai" {
		return nil, fmt.Errorf("SCORER_PROVIDER must be gemini or openai, got %q", provider)
	}

	timeout := 30 * time.Second
	if s := os.Getenv("COLLABORATOR_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("COLLABORATOR_TIMEOUT must be a positive duration, got %q", s)
		}
		timeout = d
	}

	maxDoc := 20 << 20
	if s := os.Getenv("MAX_DOCUMENT_BYTES"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("MAX_DOCUMENT_BYTES must be a positive integer, got %q", s)
		}
		maxDoc = v
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	format := strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", format)
	}

	return &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8082"),
		GRPCPort:            getEnv("GRPC_PORT", "9092"),
		DatabaseURL:         dbURL,
		RedisURL:            redisURL,
		AppURL:              getEnv("APP_URL", "http://localhost:3000"),
		ScorerProvider:      provider,
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         os.Getenv("OPENAI_MODEL"),
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		EmailFrom:           getEnv("EMAIL_FROM", "Hiring Team <onboarding@resend.dev>"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		ReconcileSchedule:   os.Getenv("RECONCILE_SCHEDULE"),
		CollaboratorTimeout: timeout,
		MaxDocumentBytes:    maxDoc,
		LogLevel:            level,
		LogFormat:           format,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
