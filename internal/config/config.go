package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Storage   StorageConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Platform  PlatformConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig selects and parameterizes the document store backend.
type StorageConfig struct {
	Backend      string // "file" or "postgres"
	DataDir      string
	ActivityFile string
	MessagesFile string
	ConfigFile   string
}

// PostgresConfig holds DB connection values for the postgres backend.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values for the display-name cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	NameTTL  time.Duration
}

// PlatformConfig points at the chat platform gateway. An empty base URL
// disables outbound platform calls.
type PlatformConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SchedulerConfig holds the cadences of the background tasks.
type SchedulerConfig struct {
	TickInterval      time.Duration
	ReconcileInterval time.Duration
	SourcesInterval   time.Duration
	WipeConfirmWindow time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := getEnv("STORE_BACKEND", "file")
	if backend != "file" && backend != "postgres" {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be file or postgres", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-activity-tracker"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Backend:      backend,
			DataDir:      getEnv("STORE_DATA_DIR", "data"),
			ActivityFile: getEnv("STORE_ACTIVITY_FILE", "activity_data.json"),
			MessagesFile: getEnv("STORE_MESSAGES_FILE", "ticket_messages.json"),
			ConfigFile:   getEnv("STORE_CONFIG_FILE", "config.json"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			NameTTL:  time.Duration(getEnvAsInt("REDIS_NAME_TTL_MINUTES", 60)) * time.Minute,
		},
		Platform: PlatformConfig{
			BaseURL:        os.Getenv("PLATFORM_BASE_URL"),
			Token:          os.Getenv("PLATFORM_TOKEN"),
			TimeoutSeconds: getEnvAsInt("PLATFORM_TIMEOUT_SECONDS", 10),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Scheduler: SchedulerConfig{
			TickInterval:      time.Duration(getEnvAsInt("SCHEDULER_TICK_SECONDS", 60)) * time.Second,
			ReconcileInterval: time.Duration(getEnvAsInt("SCHEDULER_RECONCILE_HOURS", 12)) * time.Hour,
			SourcesInterval:   time.Duration(getEnvAsInt("SCHEDULER_SOURCES_HOURS", 1)) * time.Hour,
			WipeConfirmWindow: time.Duration(getEnvAsInt("WIPE_CONFIRM_SECONDS", 30)) * time.Second,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
