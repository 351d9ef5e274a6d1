package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Remote booking API
	APIBaseURL   string
	APIAgencyID  int64
	APIKey       string
	APILanguage  string
	APITimeout   time.Duration
	APIRateLimit float64
	UseMockAPI   bool

	// Quote delivery
	DefaultTemplateID   string
	DeliveryMaxAttempts int
	DeliveryBaseDelay   time.Duration

	// Optional Postgres activity log
	DatabaseURL string

	// Optional MinIO quote PDF archive
	MinioEndpoint        string
	MinioAccessKey       string
	MinioSecretKey       string
	MinioUseSSL          bool
	MinioBucketQuotePDFs string

	CORSAllowAll bool
	CORSOrigins  []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		APIBaseURL:   getEnv("BOOKING_API_BASE_URL", ""),
		APIAgencyID:  mustInt64(getEnv("BOOKING_API_AGENCY_ID", "0")),
		APIKey:       getEnv("BOOKING_API_KEY", ""),
		APILanguage:  getEnv("BOOKING_API_LANGUAGE", "en"),
		APITimeout:   mustDuration(getEnv("BOOKING_API_TIMEOUT", "30s")),
		APIRateLimit: mustFloat(getEnv("BOOKING_API_RATE_LIMIT", "5")),
		UseMockAPI:   strings.EqualFold(getEnv("USE_MOCK_API", "false"), "true"),

		DefaultTemplateID:   getEnv("QUOTE_DEFAULT_TEMPLATE_ID", "2"),
		DeliveryMaxAttempts: mustInt(getEnv("QUOTE_DELIVERY_MAX_ATTEMPTS", "3")),
		DeliveryBaseDelay:   mustDuration(getEnv("QUOTE_DELIVERY_BASE_DELAY", "1s")),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		MinioEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:          strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketQuotePDFs: getEnv("MINIO_BUCKET_QUOTE_PDFS", "quote-pdfs"),

		CORSAllowAll: corsAllowAll,
		CORSOrigins:  corsOrigins,
	}

	if !cfg.UseMockAPI {
		if cfg.APIBaseURL == "" {
			return nil, fmt.Errorf("BOOKING_API_BASE_URL is required when USE_MOCK_API is false")
		}
		if cfg.APIAgencyID == 0 || cfg.APIKey == "" {
			return nil, fmt.Errorf("BOOKING_API_AGENCY_ID and BOOKING_API_KEY are required when USE_MOCK_API is false")
		}
	}
	if cfg.DeliveryMaxAttempts < 1 {
		return nil, fmt.Errorf("QUOTE_DELIVERY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.DefaultTemplateID == "" {
		return nil, fmt.Errorf("QUOTE_DEFAULT_TEMPLATE_ID is required")
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustInt64(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func mustFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
