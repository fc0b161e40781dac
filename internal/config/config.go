package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Completion   CompletionConfig
	Support      SupportConfig
	Subscription SubscriptionConfig
	Ticket       TicketConfig
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

// PostgresConfig holds DB connection values for the optional audit trail.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// OutboundChannel is the pub/sub channel the gateway listens on.
	OutboundChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines gateway token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// CompletionConfig configures the language-model endpoint.
type CompletionConfig struct {
	BaseURL          string
	Model            string
	APIKey           string
	MaxTokens        int
	Temperature      float64
	TimeoutSeconds   int
	Referer          string
	Title            string
	BreakerMinCalls  int
	BreakerFailRatio float64
}

// SupportConfig lists the identities allowed to act as staff or admins.
type SupportConfig struct {
	StaffIDs []string
	AdminIDs []string
}

// SubscriptionConfig controls the grant/revoke loop.
type SubscriptionConfig struct {
	ActivationDelaySeconds int
	SweepIntervalSeconds   int
	DurationMonths         int
}

// TicketConfig controls ticket lifecycle timings.
type TicketConfig struct {
	CloseGraceSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	temperature, err := strconv.ParseFloat(getEnv("COMPLETION_TEMPERATURE", "0.7"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_TEMPERATURE: %w", err)
	}
	failRatio, err := strconv.ParseFloat(getEnv("COMPLETION_BREAKER_FAIL_RATIO", "0.6"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_BREAKER_FAIL_RATIO: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "garden-support-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 5)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			OutboundChannel: getEnv("REDIS_OUTBOUND_CHANNEL", "support-bot:outbound"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Completion: CompletionConfig{
			BaseURL:          getEnv("COMPLETION_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:            getEnv("COMPLETION_MODEL", "mistralai/mistral-7b-instruct:free"),
			APIKey:           os.Getenv("COMPLETION_API_KEY"),
			MaxTokens:        getEnvAsInt("COMPLETION_MAX_TOKENS", 500),
			Temperature:      temperature,
			TimeoutSeconds:   getEnvAsInt("COMPLETION_TIMEOUT_SECONDS", 30),
			Referer:          getEnv("COMPLETION_REFERER", "https://your-domain.com"),
			Title:            getEnv("COMPLETION_TITLE", "Garden Marketplace Bot"),
			BreakerMinCalls:  getEnvAsInt("COMPLETION_BREAKER_MIN_CALLS", 5),
			BreakerFailRatio: failRatio,
		},
		Support: SupportConfig{
			StaffIDs: getEnvAsList("SUPPORT_STAFF_IDS"),
			AdminIDs: getEnvAsList("SUPPORT_ADMIN_IDS"),
		},
		Subscription: SubscriptionConfig{
			ActivationDelaySeconds: getEnvAsInt("SUBSCRIPTION_ACTIVATION_DELAY_SECONDS", 60),
			SweepIntervalSeconds:   getEnvAsInt("SUBSCRIPTION_SWEEP_INTERVAL_SECONDS", 60),
			DurationMonths:         getEnvAsInt("SUBSCRIPTION_DURATION_MONTHS", 1),
		},
		Ticket: TicketConfig{
			CloseGraceSeconds: getEnvAsInt("TICKET_CLOSE_GRACE_SECONDS", 5),
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

// Timeout bounds a single completion call.
func (c CompletionConfig) Timeout() time.Duration {
	return secondsOr(c.TimeoutSeconds, 30*time.Second)
}

// ActivationDelay is how long a purchase waits before the grant is applied.
func (s SubscriptionConfig) ActivationDelay() time.Duration {
	return secondsOr(s.ActivationDelaySeconds, time.Minute)
}

// SweepInterval is the period of the expiry sweep.
func (s SubscriptionConfig) SweepInterval() time.Duration {
	return secondsOr(s.SweepIntervalSeconds, time.Minute)
}

// CloseGrace is the delay between closing a ticket and deleting its channel.
func (t TicketConfig) CloseGrace() time.Duration {
	if t.CloseGraceSeconds < 0 {
		return 0
	}
	return time.Duration(t.CloseGraceSeconds) * time.Second
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
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

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
