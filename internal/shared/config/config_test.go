package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KIMOLA_API_KEY", "KIMOLA_BASE_URL", "KIMOLA_TIMEOUT_SECONDS", "PORT", "ENV",
		"DATABASE_URL", "USAGE_STORE", "SQLITE_PATH", "POLL_INTERVAL", "SNAPSHOT_RETENTION",
		"ALERT_THRESHOLD_PERCENT", "ALERT_QUEUE_URL", "AWS_REGION", "REPORT_STORE",
		"REPORT_DIR", "S3_BUCKET", "S3_PREFIX", "SSE_KMS_KEY_ID", "MONITOR_TOKEN",
		"CORS_ALLOW_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("KIMOLA_API_KEY", " secret ")

	cfg := Load()
	if cfg.APIKey != "secret" {
		t.Fatalf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Port != "8080" || cfg.Env != "dev" || cfg.UsageStore != "memory" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Timeout != 60*time.Second || cfg.PollInterval != 15*time.Minute {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.AlertThreshold != 80 || cfg.ReportStoreType != "local" {
		t.Fatalf("unexpected alert/report defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KIMOLA_API_KEY", "k")
	t.Setenv("ENV", "prod")
	t.Setenv("DATABASE_URL", "postgres://localhost/kimola")
	t.Setenv("POLL_INTERVAL", "90s")
	t.Setenv("KIMOLA_TIMEOUT_SECONDS", "nope")
	t.Setenv("ALERT_THRESHOLD_PERCENT", "92.5")
	t.Setenv("REPORT_STORE", "S3")
	t.Setenv("S3_BUCKET", "reports")
	t.Setenv("MONITOR_TOKEN", "op-token")

	cfg := Load()
	if cfg.Env != "production" || cfg.UsageStore != "postgres" {
		t.Fatalf("unexpected env/store: %+v", cfg)
	}
	if cfg.PollInterval != 90*time.Second || cfg.Timeout != 60*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.AlertThreshold != 92.5 || cfg.ReportStoreType != "s3" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestExplicitStoreWinsOverDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/kimola")
	t.Setenv("USAGE_STORE", "sqlite")
	if got := Load().UsageStore; got != "sqlite" {
		t.Fatalf("UsageStore = %q", got)
	}
}

func TestValidateReportsFields(t *testing.T) {
	cfg := Config{
		Env:             "dev",
		UsageStore:      "postgres",
		PollInterval:    time.Millisecond,
		AlertThreshold:  120,
		ReportStoreType: "s3",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APIKey (required)", "DatabaseURL (required_if)", "PollInterval (gte)", "AlertThreshold (lte)", "S3Bucket (required_if)"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestMonitorTokenRequiredInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("KIMOLA_API_KEY", "k")
	t.Setenv("ENV", "production")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Fatalf("CORSAllowOrigins = %q", cfg.CORSAllowOrigins)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MonitorToken (required_if)") {
		t.Fatalf("expected MonitorToken error, got %v", err)
	}

	t.Setenv("MONITOR_TOKEN", "op-token")
	if err := Load().Validate(); err != nil {
		t.Fatalf("Validate with token: %v", err)
	}
}
