package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration pulled from the environment.
type Server struct {
	Addr        string
	DatabaseURL string
	RedisAddr   string

	JWTSigningKey string
	TokenTTL      time.Duration

	// AML screening provider.
	ScreeningBaseURL string
	ScreeningAPIKey  string
	ScreeningTimeout time.Duration

	// Country whose identity documents are "domestic" for the ILR rule.
	DomesticProvider string

	// Audit relay. Empty broker list disables the relay.
	KafkaBrokers []string
	AuditTopic   string

	LoginMaxAttempts int
	LoginWindow      time.Duration

	// Bootstrap admin, created at startup when no user with that name
	// exists yet. Empty username disables bootstrapping.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:             envOr("MEMBERD_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		JWTSigningKey:    envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:         envDurationOr("TOKEN_TTL", 24*time.Hour),
		ScreeningBaseURL: envOr("SCREENING_BASE_URL", "https://api.smartsearch.com"),
		ScreeningAPIKey:  os.Getenv("SCREENING_API_KEY"),
		ScreeningTimeout: envDurationOr("SCREENING_TIMEOUT", 5*time.Second),
		DomesticProvider: envOr("DOMESTIC_PROVIDER", "United Kingdom"),
		KafkaBrokers:     envList("KAFKA_BROKERS"),
		AuditTopic:       envOr("AUDIT_TOPIC", "memberd.audit"),
		LoginMaxAttempts: envIntOr("LOGIN_MAX_ATTEMPTS", 10),
		LoginWindow:      envDurationOr("LOGIN_WINDOW", time.Minute),
		AdminUsername:    os.Getenv("ADMIN_USERNAME"),
		AdminEmail:       envOr("ADMIN_EMAIL", "admin@example.org"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
