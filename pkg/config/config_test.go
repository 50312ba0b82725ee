package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Analytics.WindowCapacity != 1000 {
		t.Errorf("window capacity = %d, want 1000", cfg.Analytics.WindowCapacity)
	}
	if cfg.Analytics.SlowThresholdMs != 1000 {
		t.Errorf("slow threshold = %d, want 1000", cfg.Analytics.SlowThresholdMs)
	}
	if cfg.Elasticsearch.ProbeTimeout != 5*time.Second {
		t.Errorf("probe timeout = %s, want 5s", cfg.Elasticsearch.ProbeTimeout)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9999
elasticsearch:
  indexName: custom-index
analytics:
  windowCapacity: 50
  recentWindow: 15m
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Elasticsearch.IndexName != "custom-index" {
		t.Errorf("index = %q", cfg.Elasticsearch.IndexName)
	}
	if cfg.Analytics.WindowCapacity != 50 {
		t.Errorf("window capacity = %d, want 50", cfg.Analytics.WindowCapacity)
	}
	if cfg.Analytics.RecentWindow != 15*time.Minute {
		t.Errorf("recent window = %s, want 15m", cfg.Analytics.RecentWindow)
	}
	// Untouched sections keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d, want default 5432", cfg.Postgres.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SO_SERVER_PORT", "7070")
	t.Setenv("SO_ELASTICSEARCH_INDEX", "env-index")
	t.Setenv("SO_ANALYTICS_WINDOW_CAPACITY", "250")
	t.Setenv("SO_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Elasticsearch.IndexName != "env-index" {
		t.Errorf("index = %q, want env-index", cfg.Elasticsearch.IndexName)
	}
	if cfg.Analytics.WindowCapacity != 250 {
		t.Errorf("window capacity = %d, want 250", cfg.Analytics.WindowCapacity)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5433, Database: "obs", User: "u", Password: "p", SSLMode: "disable",
	}
	want := "host=db port=5433 user=u password=p dbname=obs sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
