package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	RoutePrefix string

	// storage
	StoreDriver    string
	StoreKeyPrefix string
	DBURL          string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// admission
	EventCapacity      int
	AdmissionSerialize bool

	// newsletter
	MailchimpAPIKey       string
	MailchimpServerPrefix string
	MailchimpAudienceID   string
	NewsletterTimeout     time.Duration

	// http
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	QueryCacheTTL      time.Duration

	OTelEndpoint string
}

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

func Load() Config {
	// a missing .env file is the normal case outside local development
	_ = godotenv.Load()

	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		RoutePrefix: strings.TrimRight(getEnv("ROUTE_PREFIX", ""), "/"),

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		StoreKeyPrefix: getEnv("STORE_KEY_PREFIX", "conference_registration:"),
		DBURL:          buildDBURL(),
		RedisAddr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		EventCapacity:      getEnvInt("EVENT_CAPACITY", 150),
		AdmissionSerialize: getEnvBool("ADMISSION_SERIALIZE", false),

		MailchimpAPIKey:       getEnv("MAILCHIMP_API_KEY", ""),
		MailchimpServerPrefix: getEnv("MAILCHIMP_SERVER_PREFIX", ""),
		MailchimpAudienceID:   getEnv("MAILCHIMP_AUDIENCE_ID", ""),
		NewsletterTimeout:     time.Duration(getEnvInt("NEWSLETTER_TIMEOUT_MS", 3000)) * time.Millisecond,

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		QueryCacheTTL:      time.Duration(getEnvInt("QUERY_CACHE_TTL_MS", 1000)) * time.Millisecond,

		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// MailchimpConfigured reports whether all three newsletter secrets are present.
func (c Config) MailchimpConfigured() bool {
	return c.MailchimpAPIKey != "" && c.MailchimpServerPrefix != "" && c.MailchimpAudienceID != ""
}

func buildDBURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "confreg")
	pass := getEnv("DB_PASSWORD", "confreg")
	name := getEnv("DB_NAME", "confreg")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean in environment, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
