package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode     string // Set via flag, not env
	Environment string

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret      string
	JwtTTL         time.Duration
	AuthCookieName string

	// Server
	ApiPort        string
	ServiceApiPort string
	AllowedOrigins []string

	// Realtime
	RealtimeChannel string // Redis pub/sub channel shared by all API instances

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool   // Capture mail in Redis instead of sending it
	LogEmailsPath   string // Also append every message to this file when set

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string
	ImageMaxDimension  int
	ImageMaxSizeMB     int

	// App Defaults
	AppName            string
	DefaultLocale      string
	AcceptDealRetries  int
	PasswordMinLength  int
	DefaultPageLimit   int
	DefaultSearchLimit int
	DefaultRentLimit   int
	MaxPageLimit       int

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second

	// Tracing
	OtelServiceName string
	OtelEndpoint    string // Tracing is disabled when empty
	OtelSampleRatio float64
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "zolo")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.AuthCookieName = getEnv("AUTH_COOKIE_NAME", "token")
	cfg.Environment = getEnv("APP_ENV", "development")
	cfg.ApiPort = getEnv("API_PORT", "5000")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
	cfg.RealtimeChannel = getEnv("REALTIME_CHANNEL", "zolo:events")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@zolo.example.com")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.LogEmailsPath = getEnv("LOG_EMAILS", "")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseS3URL = getEnv("IMAGE_BASE_S3_URL", "")
	cfg.AppName = getEnv("APP_NAME", "Zolo")
	cfg.DefaultLocale = getEnv("DEFAULT_LOCALE", "en-US")
	cfg.OtelServiceName = getEnv("OTEL_SERVICE_NAME", "zolo-api")
	cfg.OtelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg.OtelSampleRatio, err = strconv.ParseFloat(getEnv("OTEL_SAMPLE_RATIO", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_SAMPLE_RATIO: %w", err)
	}

	cfg.RedisDB, err = getInt("REDIS_DB", "0")
	if err != nil {
		return nil, err
	}

	// Tokens are valid for 30 days unless configured otherwise.
	jwtTTLHours, err := strconv.ParseInt(getEnv("JWT_TTL_HOURS", "720"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_HOURS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLHours) * time.Hour

	cfg.SmtpPort, err = getInt("SMTP_PORT", "587")
	if err != nil {
		return nil, err
	}
	cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "2048")
	if err != nil {
		return nil, err
	}
	cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "10")
	if err != nil {
		return nil, err
	}
	cfg.AcceptDealRetries, err = getInt("ACCEPT_DEAL_RETRIES", "3")
	if err != nil {
		return nil, err
	}
	cfg.PasswordMinLength, err = getInt("PASSWORD_MIN_LENGTH", "6")
	if err != nil {
		return nil, err
	}
	cfg.DefaultPageLimit, err = getInt("DEFAULT_PAGE_LIMIT", "20")
	if err != nil {
		return nil, err
	}
	cfg.DefaultSearchLimit, err = getInt("DEFAULT_SEARCH_LIMIT", "20")
	if err != nil {
		return nil, err
	}
	cfg.DefaultRentLimit, err = getInt("DEFAULT_RENT_LIMIT", "10")
	if err != nil {
		return nil, err
	}
	cfg.MaxPageLimit, err = getInt("MAX_PAGE_LIMIT", "200")
	if err != nil {
		return nil, err
	}

	// Rate Limiting
	cfg.RateLimitBucketSize, err = getInt("RATE_LIMIT_BUCKET_SIZE", "40")
	if err != nil {
		return nil, err
	}
	cfg.RateLimitRefillRate, err = getInt("RATE_LIMIT_REFILL_RATE", "20")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
