package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.StoreDriver)
	}
	if cfg.Factory.Account != "events.near" {
		t.Fatalf("expected events.near, got %q", cfg.Factory.Account)
	}
	if !cfg.Factory.MinDeposit.IsZero() {
		t.Fatalf("expected zero min deposit, got %s", cfg.Factory.MinDeposit)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.DBName != "eventfactory" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Retry.InitialDelay != 50*time.Millisecond {
		t.Fatalf("expected 50ms initial delay, got %v", cfg.Retry.InitialDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/events.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FACTORY_ACCOUNT", "events.test.near")
	t.Setenv("FACTORY_MIN_DEPOSIT", "3000000000000000000000000")
	t.Setenv("FACTORY_PENDING_TIMEOUT", "10m")
	t.Setenv("DEPLOY_WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "/tmp/events.db" {
		t.Fatalf("unexpected store config: %q %q", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.Factory.MinDeposit.String() != "3000000000000000000000000" {
		t.Fatalf("unexpected min deposit %s", cfg.Factory.MinDeposit)
	}
	if cfg.Factory.PendingTimeout != 10*time.Minute {
		t.Fatalf("unexpected pending timeout %v", cfg.Factory.PendingTimeout)
	}
	if cfg.Runtime.DeployWorkers != 2 {
		t.Fatalf("unexpected worker count %d", cfg.Runtime.DeployWorkers)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{name: "driver", key: "STORE_DRIVER", val: "mongo", want: "unknown STORE_DRIVER"},
		{name: "factory account", key: "FACTORY_ACCOUNT", val: "Not Valid", want: "FACTORY_ACCOUNT"},
		{name: "workers", key: "DEPLOY_WORKERS", val: "0", want: "DEPLOY_WORKERS"},
		{name: "deposit", key: "FACTORY_MIN_DEPOSIT", val: "-5", want: "parse env:"},
		{name: "port type", key: "DEPLOY_QUEUE", val: "lots", want: "parse env:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}
