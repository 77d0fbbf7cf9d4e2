package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration.
type Config struct {
	APIKey           string        `validate:"required"`
	BaseURL          string        `validate:"omitempty,url"`
	Timeout          time.Duration `validate:"gte=0"`
	Port             string
	Env              string        `validate:"oneof=dev local staging production"`
	DatabaseURL      string        `validate:"required_if=UsageStore postgres"`
	UsageStore       string        `validate:"oneof=memory postgres sqlite"`
	SQLitePath       string        `validate:"required_if=UsageStore sqlite"`
	PollInterval     time.Duration `validate:"gte=1s"`
	Retention        time.Duration `validate:"gte=0"`
	AlertThreshold   float64       `validate:"gte=0,lte=100"`
	AlertQueueURL    string        `validate:"omitempty,url"`
	AWSRegion        string
	ReportStoreType  string `validate:"oneof=local s3"`
	ReportDir        string `validate:"required_if=ReportStoreType local"`
	S3Bucket         string `validate:"required_if=ReportStoreType s3"`
	S3Prefix         string
	SSEKMSKeyID      string
	MonitorToken     string `validate:"required_if=Env production"`
	CORSAllowOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	store := normalizeUsageStore(getEnv("USAGE_STORE", ""), dbURL)
	if env == "production" && store == "memory" {
		log.Printf("USAGE_STORE=memory in production; snapshots will not survive restarts")
	}

	return Config{
		APIKey:           strings.TrimSpace(os.Getenv("KIMOLA_API_KEY")),
		BaseURL:          getEnv("KIMOLA_BASE_URL", ""),
		Timeout:          time.Duration(getEnvInt("KIMOLA_TIMEOUT_SECONDS", 60)) * time.Second,
		Port:             getEnv("PORT", "8080"),
		Env:              env,
		DatabaseURL:      dbURL,
		UsageStore:       store,
		SQLitePath:       getEnv("SQLITE_PATH", "./data/usage.db"),
		PollInterval:     getEnvDuration("POLL_INTERVAL", 15*time.Minute),
		Retention:        getEnvDuration("SNAPSHOT_RETENTION", 90*24*time.Hour),
		AlertThreshold:   getEnvFloat("ALERT_THRESHOLD_PERCENT", 80),
		AlertQueueURL:    getEnv("ALERT_QUEUE_URL", ""),
		AWSRegion:        getEnv("AWS_REGION", ""),
		ReportStoreType:  normalizeStoreType(getEnv("REPORT_STORE", "local")),
		ReportDir:        getEnv("REPORT_DIR", "./data/reports"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:      getEnv("SSE_KMS_KEY_ID", ""),
		MonitorToken:     strings.TrimSpace(os.Getenv("MONITOR_TOKEN")),
		CORSAllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "")),
	}
}

var validate = validator.New()

// Validate checks the configuration required by the usage monitor.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		log.Printf("config %s invalid int %q; using %d", key, raw, def)
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float %q; using %v", key, raw, def)
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration %q; using %s", key, raw, def)
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

// normalizeUsageStore picks postgres when a DATABASE_URL is present and no
// store was requested explicitly.
func normalizeUsageStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "sqlite":
		return "sqlite"
	case "memory":
		return "memory"
	}
	if strings.TrimSpace(dbURL) != "" {
		return "postgres"
	}
	return "memory"
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
