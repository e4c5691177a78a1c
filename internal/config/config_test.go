package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fullEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":                 "redis://localhost:6379/0",
		"GOPAYGROUND_GOID":          "8111111111",
		"GOPAYGROUND_CLIENT_ID":     "demo",
		"GOPAYGROUND_CLIENT_SECRET": "demo-secret",
		"TECHSUPPORT_GOID":          "8222222222",
		"TECHSUPPORT_CLIENT_ID":     "tech",
		"TECHSUPPORT_CLIENT_SECRET": "tech-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(fullEnv())
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, DefaultSandboxURL, cfg.SandboxURL)
	require.Equal(t, DefaultProductionURL, cfg.ProductionURL)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, 30*time.Second, cfg.GatewayTimeout)
}

func TestLoadRequiresRedis(t *testing.T) {
	env := fullEnv()
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoadRejectsPartialPreset(t *testing.T) {
	env := fullEnv()
	env["TECHSUPPORT_CLIENT_SECRET"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TECHSUPPORT")
}

func TestLoadOverrides(t *testing.T) {
	env := fullEnv()
	env["PORT"] = "9191"
	env["SESSION_TTL"] = "5m"
	env["GATEWAY_SANDBOX_URL"] = "http://127.0.0.1:9999/api"
	env["CORS_ALLOWED_ORIGINS"] = "http://localhost:5173, https://pay.example.com"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9191", cfg.HTTPAddr())
	require.Equal(t, 5*time.Minute, cfg.SessionTTL)
	require.Equal(t, "http://127.0.0.1:9999/api", cfg.SandboxURL)
	require.Equal(t, []string{"http://localhost:5173", "https://pay.example.com"}, cfg.CORSAllowedOrigins)
}
