// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/and161185/rollbook/internal/contact"
	"github.com/and161185/rollbook/internal/insight"
	"github.com/and161185/rollbook/internal/limiter"
	"github.com/and161185/rollbook/internal/store"
	"github.com/and161185/rollbook/internal/token"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// App holds the runtime configuration.
type App struct {
	Env      string
	HTTPAddr string
	GRPCAddr string

	// TrustedProxies are the addresses or CIDRs allowed to set X-Forwarded-For. Empty trusts none.
	TrustedProxies []string

	StoreBackend string
	DataDir      string
	QuotaBytes   int64
	RedisAddr    string
	RedisPrefix  string
	DatabaseURL  string

	JWTSigningKey string
	AccessTTL     time.Duration

	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	CompletionTimeout time.Duration

	ContactEndpoint string
	ContactDelay    time.Duration

	Login limiter.Policy
}

// Dev reports whether the process runs in development mode. It must be opted into with APP_ENV=dev.
func (a App) Dev() bool { return a.Env == "dev" }

const devSigningKey = "dev-signing-secret-change"

// RequireSigningKey makes sure a token signing key is configured. Only dev with the memory
// backend may fall back to the built-in key, since nothing it signs outlives the process.
func (a *App) RequireSigningKey() error {
	if a.JWTSigningKey != "" {
		return nil
	}
	if !a.Dev() || a.StoreBackend != BackendMemory {
		return errors.New("JWT_SIGNING_KEY is required unless APP_ENV=dev and STORE_BACKEND=memory")
	}
	a.JWTSigningKey = devSigningKey
	return nil
}

// Load reads .env (if present) and then the process environment. Values already set in the
// environment win over .env. Malformed values are reported together.
func Load(envFiles ...string) (App, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return App{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var p parser
	a := App{
		Env:      getEnv("APP_ENV", "prod"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr: getEnv("GRPC_ADDR", ":9090"),

		TrustedProxies: p.proxiesEnv("TRUSTED_PROXIES"),

		StoreBackend: getEnv("STORE_BACKEND", BackendFile),
		DataDir:      getEnv("DATA_DIR", "./data"),
		QuotaBytes:   p.int64Env("STORE_QUOTA_BYTES", store.DefaultFileQuota),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:  getEnv("REDIS_PREFIX", "rollbook:"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSigningKey: getEnv("JWT_SIGNING_KEY", ""),
		AccessTTL:     p.durationEnv("ACCESS_TTL", token.DefaultTTL),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", insight.DefaultModel),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", ""),
		CompletionTimeout: p.durationEnv("COMPLETION_TIMEOUT", 30*time.Second),

		ContactEndpoint: getEnv("CONTACT_ENDPOINT", ""),
		ContactDelay:    p.durationEnv("CONTACT_DELAY", contact.DefaultDelay),

		Login: limiter.Policy{
			MaxFails: p.intEnv("LOGIN_MAX_FAILS", limiter.DefaultPolicy.MaxFails),
			Window:   p.durationEnv("LOGIN_WINDOW", limiter.DefaultPolicy.Window),
			BlockFor: p.durationEnv("LOGIN_BLOCK_FOR", limiter.DefaultPolicy.BlockFor),
		},
	}

	switch a.StoreBackend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendPostgres:
		if a.DatabaseURL == "" {
			p.errs = append(p.errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		p.errs = append(p.errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", a.StoreBackend))
	}
	return a, errors.Join(p.errs...)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

type parser struct{ errs []error }

func (p *parser) durationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, val))
		return fallback
	}
	return d
}

func (p *parser) intEnv(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid int %q", key, val))
		return fallback
	}
	return n
}

func (p *parser) int64Env(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid int %q", key, val))
		return fallback
	}
	return n
}

// proxiesEnv reads a comma-separated list of IPs or CIDRs.
func (p *parser) proxiesEnv(key string) []string {
	var out []string
	for _, f := range strings.Split(os.Getenv(key), ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		var err error
		if strings.Contains(f, "/") {
			_, err = netip.ParsePrefix(f)
		} else {
			_, err = netip.ParseAddr(f)
		}
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: invalid proxy %q", key, f))
			continue
		}
		out = append(out, f)
	}
	return out
}
