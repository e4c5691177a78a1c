package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Default gateway endpoints. Overridable for tests and self-hosted mocks.
const (
	DefaultSandboxURL    = "https://gw.sandbox.gopay.com/api"
	DefaultProductionURL = "https://gate.gopay.cz/api"
)

// PresetCredential is an environment-held gateway credential triple.
type PresetCredential struct {
	GoID         string
	ClientID     string
	ClientSecret string
}

// Complete reports whether all three parts of the triple are present.
func (p PresetCredential) Complete() bool {
	return strings.TrimSpace(p.GoID) != "" &&
		strings.TrimSpace(p.ClientID) != "" &&
		strings.TrimSpace(p.ClientSecret) != ""
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	SandboxURL    string
	ProductionURL string

	// Playground preset resolves against the sandbox gateway, TechSupport
	// against production. Both must be complete at startup; a partial preset
	// is an operational misconfiguration, not a caller error.
	Playground  PresetCredential
	TechSupport PresetCredential

	SessionTTL     time.Duration
	GatewayTimeout time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int

	MaxBodyBytes int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		SandboxURL:         valueOrDefault(k.String("GATEWAY_SANDBOX_URL"), DefaultSandboxURL),
		ProductionURL:      valueOrDefault(k.String("GATEWAY_PRODUCTION_URL"), DefaultProductionURL),
		Playground: PresetCredential{
			GoID:         k.String("GOPAYGROUND_GOID"),
			ClientID:     k.String("GOPAYGROUND_CLIENT_ID"),
			ClientSecret: k.String("GOPAYGROUND_CLIENT_SECRET"),
		},
		TechSupport: PresetCredential{
			GoID:         k.String("TECHSUPPORT_GOID"),
			ClientID:     k.String("TECHSUPPORT_CLIENT_ID"),
			ClientSecret: k.String("TECHSUPPORT_CLIENT_SECRET"),
		},
		SessionTTL:      parseDuration(k.String("SESSION_TTL"), "30m"),
		GatewayTimeout:  parseDuration(k.String("GATEWAY_TIMEOUT"), "30s"),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    intOrDefault(k, "RATE_LIMIT_MAX", 120),
		MaxBodyBytes:    int64(intOrDefault(k, "MAX_BODY_BYTES", 1<<20)),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if !cfg.Playground.Complete() {
		return nil, errors.New("GOPAYGROUND_GOID, GOPAYGROUND_CLIENT_ID and GOPAYGROUND_CLIENT_SECRET are required")
	}
	if !cfg.TechSupport.Complete() {
		return nil, errors.New("TECHSUPPORT_GOID, TECHSUPPORT_CLIENT_ID and TECHSUPPORT_CLIENT_SECRET are required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	return k.Int(key)
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
