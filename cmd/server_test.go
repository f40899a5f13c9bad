package main

import (
	"os"
	"path/filepath"
	"testing"

	"resume-tailor/internal/bus"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  addr: ":9090"
database:
  path: "test.db"
bus:
  kind: "kafka"
  kafka:
    brokers: ["localhost:9092"]
    group_id: "tailor"
admin:
  user_id: "admin"
scraper:
  timeout: "10s"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config error: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %s", cfg.Server.Addr)
	}
	if cfg.Database.Path != "test.db" {
		t.Fatalf("expected db path test.db, got %s", cfg.Database.Path)
	}
	if cfg.Bus.Kind != "kafka" || len(cfg.Bus.Kafka.Brokers) != 1 {
		t.Fatalf("unexpected bus config %+v", cfg.Bus)
	}
	if cfg.Admin.UserID != "admin" {
		t.Fatalf("expected admin user id, got %s", cfg.Admin.UserID)
	}
	if cfg.Scraper.Timeout != "10s" {
		t.Fatalf("expected scraper timeout 10s, got %s", cfg.Scraper.Timeout)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := loadConfig(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestBuildBusFallsBackToMemory(t *testing.T) {
	t.Parallel()

	b := buildBus(BusConfig{Kind: "kafka"})
	if _, ok := b.(*bus.MemoryBus); !ok {
		t.Fatalf("expected memory bus fallback without brokers, got %T", b)
	}

	b = buildBus(BusConfig{Kind: "memory"})
	if _, ok := b.(*bus.MemoryBus); !ok {
		t.Fatalf("expected memory bus, got %T", b)
	}
}
