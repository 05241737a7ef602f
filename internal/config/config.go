package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings for the gateway process.
type Config struct {
	Port              string        // HTTP listen port
	DBDriver          string        // "sqlite" or "postgres"
	DatabaseURL       string        // DSN for the identity/feeds store
	RedisURL          string        // Redis URL for tokens, sessions and entries
	SessionCookieName string        // name of the cookie carrying the session id
	SessionKey        string        // signing key for the session cookie
	SessionTTL        time.Duration // server-side session lifetime
	TokenTTL          time.Duration // API token lifetime, independent of the user record
	StoreTimeout      time.Duration // upper bound on any single backing-store call
	CookieSecure      bool          // Secure flag on the session cookie
	AllowedOrigins    []string      // CORS origins for /api
	AuthRateLimitRPM  int           // per-client limit on register/login
	APIRateLimitRPM   int           // per-client limit on the rest of /api
	TemplateDir       string        // directory holding .hbs templates
	AssetDir          string        // directory served under /assets
	LoginPage         string        // redirect target for unauthenticated page loads
	ServiceName       string        // OTel service name
	OTelEnabled       bool          // export metrics/traces over OTLP gRPC
	OTLPEndpoint      string        // collector endpoint when OTelEnabled
}

// Load populates Config from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:              firstNonEmpty(os.Getenv("PORT"), "9000"),
		DBDriver:          firstNonEmpty(os.Getenv("DB_DRIVER"), "sqlite"),
		DatabaseURL:       firstNonEmpty(os.Getenv("DATABASE_URL"), "feedgate.db"),
		RedisURL:          firstNonEmpty(os.Getenv("REDIS_URL"), "redis://localhost:6379/0"),
		SessionCookieName: firstNonEmpty(os.Getenv("SESSION_COOKIE_NAME"), "feedgate_session"),
		SessionKey:        os.Getenv("SESSION_KEY"),
		SessionTTL:        durationFromEnv("SESSION_TTL", 12*time.Hour),
		TokenTTL:          durationFromEnv("TOKEN_TTL", 24*time.Hour),
		StoreTimeout:      durationFromEnv("STORE_TIMEOUT", 3*time.Second),
		CookieSecure:      boolFromEnv("COOKIE_SECURE", false),
		AllowedOrigins:    parseCSV(os.Getenv("ALLOWED_ORIGINS")),
		AuthRateLimitRPM:  intFromEnv("AUTH_RATE_LIMIT_RPM", 30),
		APIRateLimitRPM:   intFromEnv("API_RATE_LIMIT_RPM", 600),
		TemplateDir:       firstNonEmpty(os.Getenv("TEMPLATE_DIR"), "templates"),
		AssetDir:          firstNonEmpty(os.Getenv("ASSET_DIR"), "assets"),
		LoginPage:         firstNonEmpty(os.Getenv("LOGIN_PAGE"), "/login.hbs"),
		ServiceName:       firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "feedgate"),
		OTelEnabled:       boolFromEnv("OTEL_ENABLED", false),
		OTLPEndpoint:      firstNonEmpty(os.Getenv("OTLP_ENDPOINT"), "localhost:4317"),
	}
}

// Validate rejects configurations the gateway cannot run with safely.
func (c Config) Validate() error {
	if len(c.SessionKey) < 32 {
		return fmt.Errorf("validate config: SESSION_KEY must be at least 32 bytes, got %d", len(c.SessionKey))
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("validate config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("validate config: STORE_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 || c.TokenTTL <= 0 {
		return fmt.Errorf("validate config: session and token TTLs must be positive")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolFromEnv(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func intFromEnv(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func durationFromEnv(name string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
