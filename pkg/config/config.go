package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// DATABASE_URL is the runtime connection (may go through a pooler),
	// DIRECT_URL is used for migrations when set.
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// StoreDriver selects the persistence backend: "postgres" (default) or "memory".
	StoreDriver string

	LogLevel  string
	LogFormat string

	Auth          AuthConfig
	Booking       BookingConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	RabbitMQ      RabbitMQConfig
	Elasticsearch ElasticsearchConfig
	NoShow        NoShowConfig

	// AvailabilityCacheTTL bounds how stale a cached availability matrix may be.
	AvailabilityCacheTTL time.Duration

	// ChannelSecrets maps a channel partner code to its webhook signing secret.
	ChannelSecrets map[string]string

	StorefrontAllowedOrigins []string
	ConsoleAllowedOrigins    []string

	MetricsEnabled bool
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret         string
	CustomerTokenTTL  time.Duration
	AdminSessionTTL   time.Duration
	SessionCookieName string
	CookieSecure      bool

	// Seeded on startup when both are set and no user with that email exists.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

type BookingConfig struct {
	// RequireAccount makes POST /public/reservations require a customer bearer token.
	RequireAccount      bool
	MaxStayNights       int
	MaxAvailabilityDays int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty means the peer address is always the client.
	TrustedProxies []string
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
	Queue    string
}

func (c RabbitMQConfig) Enabled() bool { return strings.TrimSpace(c.URL) != "" }

type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
}

func (c ElasticsearchConfig) Enabled() bool { return strings.TrimSpace(c.URL) != "" }

type NoShowConfig struct {
	// Interval of 0 disables the sweep.
	Interval  time.Duration
	GraceDays int
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	appEnv := env("APP_ENV", "dev")
	logFormat := "text"
	if appEnv == "prod" {
		logFormat = "json"
	}

	return Config{
		AppEnv:         appEnv,
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "hotelsuite"),
			User:     env("DB_USER", "hotelsuite"),
			Password: env("DB_PASSWORD", "hotelsuite"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		StoreDriver: strings.ToLower(env("STORE_DRIVER", "postgres")),
		LogLevel:    env("LOG_LEVEL", "INFO"),
		LogFormat:   env("LOG_FORMAT", logFormat),
		Auth: AuthConfig{
			JWTSecret:              env("JWT_SECRET", "dev-only-secret-change-me"),
			CustomerTokenTTL:       envDuration("CUSTOMER_TOKEN_TTL", 24*time.Hour),
			AdminSessionTTL:        envDuration("ADMIN_SESSION_TTL", 12*time.Hour),
			SessionCookieName:      env("SESSION_COOKIE_NAME", "hs_session"),
			CookieSecure:           envBool("SESSION_COOKIE_SECURE", appEnv == "prod"),
			BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Booking: BookingConfig{
			RequireAccount:      envBool("BOOKING_REQUIRE_ACCOUNT", false),
			MaxStayNights:       envInt("BOOKING_MAX_STAY_NIGHTS", 30),
			MaxAvailabilityDays: envInt("BOOKING_MAX_AVAILABILITY_DAYS", 366),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
			TLS:      envBool("REDIS_TLS", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:        envBool("RATE_LIMIT_ENABLED", true),
			Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
			RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 5),
			RefillInterval: envDuration("RATE_LIMIT_REFILL_INTERVAL", 10*time.Second),
			TTL:            envDuration("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         env("RATE_LIMIT_PREFIX", "rl"),
			TrustedProxies: envList("RATE_LIMIT_TRUSTED_PROXIES", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: env("RABBITMQ_EXCHANGE", "hotel.reservations"),
			Queue:    env("RABBITMQ_QUEUE", "reservation.notifications"),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:        os.Getenv("ELASTICSEARCH_URL"),
			Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
			Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
			Index:      env("ELASTICSEARCH_INDEX", "room_types"),
			MaxRetries: envInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},
		NoShow: NoShowConfig{
			Interval:  envDuration("NO_SHOW_SWEEP_INTERVAL", 15*time.Minute),
			GraceDays: envInt("NO_SHOW_GRACE_DAYS", 1),
		},
		AvailabilityCacheTTL: envDuration("AVAILABILITY_CACHE_TTL", 30*time.Second),
		ChannelSecrets:       envMap("CHANNEL_SECRETS"),

		StorefrontAllowedOrigins: envList("STOREFRONT_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		ConsoleAllowedOrigins:    envList("CONSOLE_ALLOWED_ORIGINS", "http://localhost:3001"),

		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envDuration accepts Go duration strings ("30s", "15m") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envMap parses "a:1,b:2" pairs. Entries without a colon are skipped.
func envMap(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range envList(key, "") {
		k, v, ok := strings.Cut(pair, ":")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[strings.ToLower(k)] = v
	}
	return out
}
