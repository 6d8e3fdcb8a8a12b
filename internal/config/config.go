// Package config reads process settings from the environment.
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
	HTTP     HTTPConfig
	Project  string
	Log      LogConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Weather  WeatherConfig
	Ranking  RankingConfig
}

type HTTPConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AdminToken   string
	CORSOrigins  []string
}

// Addr is the listen address for Port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

type LogConfig struct {
	Level string
	Dir   string
}

// CacheConfig sets the age limits of cached weather and responses.
type CacheConfig struct {
	Fresh time.Duration
	Stale time.Duration
}

// RedisConfig enables the shared cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// KafkaConfig enables snapshot publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// DatabaseConfig enables the Postgres café source when DSN is set.
type DatabaseConfig struct {
	DSN   string
	Table string
}

func (d DatabaseConfig) Enabled() bool { return d.DSN != "" }

type WeatherConfig struct {
	Timeout   time.Duration
	UserAgent string
	DMIKey    string
}

type RankingConfig struct {
	Workers int
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTP: HTTPConfig{
			Port:         getEnvAsInt("SUNNYSIPS_PORT", 8000),
			ReadTimeout:  getEnvAsDuration("SUNNYSIPS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SUNNYSIPS_WRITE_TIMEOUT", 60*time.Second),
			AdminToken:   getEnv("SUNNYSIPS_ADMIN_TOKEN", ""),
			CORSOrigins:  getEnvAsList("SUNNYSIPS_CORS_ORIGINS", []string{"*"}),
		},
		Project: getEnv("SUNNYSIPS_PROJECT", ""),
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Dir:   getEnv("LOG_DIR", ""),
		},
		Cache: CacheConfig{
			Fresh: getEnvAsDuration("CACHE_FRESH_TTL", 2*time.Hour),
			Stale: getEnvAsDuration("CACHE_STALE_TTL", 12*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "sunnysips:"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_SNAPSHOTS", "sunnysips.snapshots"),
		},
		Database: DatabaseConfig{
			DSN:   getEnv("DATABASE_URL", ""),
			Table: getEnv("DATABASE_CAFES_TABLE", "cafes"),
		},
		Weather: WeatherConfig{
			Timeout:   getEnvAsDuration("WEATHER_TIMEOUT", 20*time.Second),
			UserAgent: getEnv("WEATHER_USER_AGENT", "sunnysips/0.1 (contact: dev@example.com)"),
			DMIKey:    getEnv("DMI_API_KEY", ""),
		},
		Ranking: RankingConfig{
			Workers: getEnvAsInt("RANKING_WORKERS", 1),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid SUNNYSIPS_PORT %d", c.HTTP.Port)
	}
	if c.Cache.Fresh <= 0 || c.Cache.Stale < c.Cache.Fresh {
		return fmt.Errorf("cache TTLs must satisfy 0 < fresh (%s) <= stale (%s)", c.Cache.Fresh, c.Cache.Stale)
	}
	if c.Ranking.Workers < 1 {
		c.Ranking.Workers = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
