package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort      string
	LogLevel      string
	PositionsFile string

	DBDriver    string
	SQLitePath  string
	PostgresDSN string

	InternalAPIKey string

	BotGatewayBaseURL     string
	BotGatewayInternalKey string

	RedisURL       string
	AMQPURL        string
	EventsExchange string

	SweepInterval  time.Duration
	RequestTimeout time.Duration

	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxIdle  time.Duration
	DBConnMaxLife  time.Duration
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		PositionsFile:         getEnv("POSITIONS_FILE", "positions.yaml"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite"),
		SQLitePath:            getEnv("SQLITE_PATH", "storage/applybot.db"),
		PostgresDSN:           getEnv("DATABASE_URL", ""),
		InternalAPIKey:        getEnv("INTERNAL_API_KEY", ""),
		BotGatewayBaseURL:     getEnv("BOT_GATEWAY_BASE_URL", ""),
		BotGatewayInternalKey: getEnv("BOT_GATEWAY_INTERNAL_KEY", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		AMQPURL:               getEnv("AMQP_URL", ""),
		EventsExchange:        getEnv("EVENTS_EXCHANGE", "applybot.events"),
		SweepInterval:         getDuration("EXPIRY_SWEEP_INTERVAL", 30*time.Second),
		RequestTimeout:        getDuration("REQUEST_TIMEOUT", 10*time.Second),
		DBMaxOpenConns:        getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:        getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxIdle:         getDuration("DB_CONN_MAX_IDLE", 5*time.Minute),
		DBConnMaxLife:         getDuration("DB_CONN_MAX_LIFE", 30*time.Minute),
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		log.Fatalf("unsupported DB_DRIVER %q (expected sqlite or postgres)", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" && cfg.PostgresDSN == "" {
		log.Fatal("DATABASE_URL is required when DB_DRIVER=postgres")
	}
	if cfg.InternalAPIKey == "" {
		log.Fatal("INTERNAL_API_KEY is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
