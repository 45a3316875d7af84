package config

import (
	"os"
	"testing"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-jwt-secret-key")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901") // 32 bytes
	t.Setenv("AGGREGATOR_CLIENT_ID", "test-client-id")
	t.Setenv("AGGREGATOR_SECRET", "test-secret")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.JWT.Secret != "test-jwt-secret-key" {
		t.Errorf("JWT.Secret = %q, want %q", cfg.JWT.Secret, "test-jwt-secret-key")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Aggregator.Environment != "sandbox" {
		t.Errorf("Aggregator.Environment = %q, want %q", cfg.Aggregator.Environment, "sandbox")
	}
	if cfg.Sync.InvestmentWindowDays != 90 {
		t.Errorf("Sync.InvestmentWindowDays = %d, want 90", cfg.Sync.InvestmentWindowDays)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing JWT_SECRET, got nil")
	}
}

func TestLoad_ShortEncryptionKey(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for short ENCRYPTION_KEY, got nil")
	}
}

func TestLoad_MissingAggregatorCredentials(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("AGGREGATOR_SECRET", "")
	os.Unsetenv("AGGREGATOR_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing AGGREGATOR_SECRET, got nil")
	}
}

func TestLoad_InvalidAggregatorEnvironment(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("AGGREGATOR_ENV", "staging")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid AGGREGATOR_ENV, got nil")
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_InvalidInvestmentWindow(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SYNC_INVESTMENT_WINDOW_DAYS", "0")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for non-positive SYNC_INVESTMENT_WINDOW_DAYS, got nil")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without cert paths, got nil")
	}
}

func TestLoad_SchedulerDefaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled = false, want true")
	}
	if len(cfg.Scheduler.ScheduleTimes) != 4 {
		t.Errorf("Scheduler.ScheduleTimes = %v, want 4 entries", cfg.Scheduler.ScheduleTimes)
	}
	if cfg.Scheduler.WorkerCount != 5 {
		t.Errorf("Scheduler.WorkerCount = %d, want 5", cfg.Scheduler.WorkerCount)
	}
}
