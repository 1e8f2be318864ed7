package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_IDS", "10,20")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || !cfg.Telegram.IsAdmin(20) {
		t.Fatalf("admin ids = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Storage.Driver != StorageFile || cfg.Storage.ProblemsFile != "problems.json" {
		t.Fatalf("storage defaults = %+v", cfg.Storage)
	}
	if cfg.Timezone != "Europe/Moscow" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}
}

func TestLoadYAMLDefaultsAdminAllowList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("telegram:\n  token: file-token\nstorage:\n  dir: /var/lib/nexpr\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Dir != "/var/lib/nexpr" {
		t.Fatalf("dir = %q", cfg.Storage.Dir)
	}
	if !cfg.Telegram.IsAdmin(DefaultAdminIDs[0]) {
		t.Fatalf("expected built-in admin in %v", cfg.Telegram.AdminIDs)
	}
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	cases := map[string]Config{
		"no token":         {},
		"bad run mode":     {Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}},
		"webhook no url":   {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		"bad driver":       {Telegram: TelegramConfig{Token: "t"}, Storage: StorageConfig{Driver: "redis"}},
		"postgres no host": {
			Telegram: TelegramConfig{Token: "t"},
			Storage:  StorageConfig{Driver: StoragePostgres},
		},
		"backup no bucket": {
			Telegram: TelegramConfig{Token: "t"},
			Backup:   BackupConfig{Schedule: "@daily"},
		},
		"bad exclusion": {
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}},
		},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "polling"},
		Storage:  StorageConfig{Driver: "Postgres"},
		Database: DatabaseConfig{Host: "db", Name: "nexpr"},
	}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Storage.Driver != StoragePostgres {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Database.Port != "5432" || cfg.Database.SSLMode != "disable" || cfg.Database.MaxConnections != 4 {
		t.Fatalf("database defaults = %+v", cfg.Database)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("polling alias not normalized: %q", cfg.Telegram.RunMode)
	}
}
