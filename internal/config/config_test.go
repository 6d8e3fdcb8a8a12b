package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.HTTP.Port)
	}
	if cfg.Cache.Fresh != 2*time.Hour || cfg.Cache.Stale != 12*time.Hour {
		t.Errorf("expected 2h/12h cache TTLs, got %s/%s", cfg.Cache.Fresh, cfg.Cache.Stale)
	}
	if cfg.Redis.Enabled() || cfg.Kafka.Enabled() || cfg.Database.Enabled() {
		t.Error("expected optional backends disabled by default")
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Errorf("expected wildcard CORS, got %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SUNNYSIPS_PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("CACHE_FRESH_TTL", "30m")
	t.Setenv("RANKING_WORKERS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr() != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.HTTP.Addr())
	}
	if !cfg.Redis.Enabled() {
		t.Error("expected redis enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("expected 2 trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Cache.Fresh != 30*time.Minute {
		t.Errorf("expected 30m, got %s", cfg.Cache.Fresh)
	}
	if cfg.Ranking.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Ranking.Workers)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port out of range", "SUNNYSIPS_PORT", "70000"},
		{"stale below fresh", "CACHE_STALE_TTL", "1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("RANKING_WORKERS", "many")
	t.Setenv("WEATHER_TIMEOUT", "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ranking.Workers != 1 || cfg.Weather.Timeout != 20*time.Second {
		t.Errorf("expected defaults, got %d workers, %s timeout", cfg.Ranking.Workers, cfg.Weather.Timeout)
	}
}
