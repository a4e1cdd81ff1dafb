// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config agrega todos os parâmetros necessários para API e worker.
type Config struct {
	HTTPAddress string
	LogLevel    slog.Level

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NotificationQueueKey string
	ResultsCachePrefix   string
	ResultsCacheTTLSecs  int

	RateLimitEnabled       bool
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	AutoMigrate bool

	WorkerMetricsAddress string
	JudgeHeader          string
}

func Load() (Config, error) {
	// .env é opcional; em Docker/K8s as variáveis já chegam pelo ambiente.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "pageant"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "pageant"),
		PostgresDB:             getEnv("POSTGRES_DB", "pageant_scoring"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		RedisEnabled:           getEnvAsBool("REDIS_ENABLED", true),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		NotificationQueueKey:   getEnv("REDIS_NOTIFICATION_QUEUE", "fila:notificacoes"),
		ResultsCachePrefix:     getEnv("REDIS_RESULTS_PREFIX", "resultados"),
		ResultsCacheTTLSecs:    getEnvAsInt("REDIS_RESULTS_TTL", 300),
		RateLimitEnabled:       getEnvAsBool("SCORE_RATE_LIMIT_ENABLED", true),
		RateLimitMaxActions:    getEnvAsInt("SCORE_RATE_LIMIT_MAX", 120),
		RateLimitWindowSeconds: getEnvAsInt("SCORE_RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:     getEnv("SCORE_RATE_LIMIT_PREFIX", "ratelimit"),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:   getEnv("WORKER_METRICS_ADDRESS", ":9090"),
		JudgeHeader:            getEnv("JUDGE_HEADER", "X-Judge-ID"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: LOG_LEVEL invalido: %w", err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
