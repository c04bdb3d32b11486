package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("DATABASE_URL", "postgres://localhost/comptes")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.ArchivingJobSchedule != "0 * * * *" {
		t.Fatalf("expected hourly default schedule, got %q", cfg.ArchivingJobSchedule)
	}
	if cfg.SweepBudgetSeconds != 300 {
		t.Fatalf("expected default sweep budget 300, got %d", cfg.SweepBudgetSeconds)
	}
}

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected an error without DATABASE_URL")
	}
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("DATABASE_URL", "postgres://localhost/comptes")
	t.Setenv("ARCHIVE_DATABASE_URL", "postgres://localhost/comptes_archives")
	t.Setenv("ARCHIVING_JOB_SCHEDULE", "*/5 * * * *")
	t.Setenv("SWEEP_BUDGET_SECONDS", "60")
	t.Setenv("INTERNAL_API_KEY", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ArchiveDatabaseURL != "postgres://localhost/comptes_archives" {
		t.Fatalf("unexpected archive database URL %q", cfg.ArchiveDatabaseURL)
	}
	if cfg.ArchivingJobSchedule != "*/5 * * * *" {
		t.Fatalf("unexpected schedule %q", cfg.ArchivingJobSchedule)
	}
	if cfg.SweepBudgetSeconds != 60 {
		t.Fatalf("unexpected sweep budget %d", cfg.SweepBudgetSeconds)
	}
	if cfg.InternalAPIKey != "secret" {
		t.Fatalf("unexpected internal API key %q", cfg.InternalAPIKey)
	}
}
