package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadNoEnvFiles(t *testing.T, file string) (Config, error) {
	t.Helper()
	return Load(LoadOptions{ConfigFile: file, EnvFiles: []string{}})
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadNoEnvFiles(t, "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, MetricsExporterPrometheus, cfg.Metrics.Exporter)
	assert.Equal(t, ChatProviderEcho, cfg.Chat.Provider)
	assert.Equal(t, 60*time.Second, cfg.Intake.RateLimitWindow)
	assert.Equal(t, 15, cfg.Intake.RateLimitCapacity)
	assert.False(t, cfg.Server.TrustProxyHeaders, "forwarded headers must be opt-in")

	ec, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, goIntake.DefaultConfig().Passcode, ec.Passcode)
	assert.True(t, ec.Security.AtomicFinalize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GOINTAKE_SERVER_PORT", "9091")
	t.Setenv("GOINTAKE_INTAKE_RATE_LIMIT_CAPACITY", "5")
	t.Setenv("GOINTAKE_INTAKE_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("GOINTAKE_REDIS_EMBEDDED", "true")
	t.Setenv("GEMINI_API_KEY", "from-provider-env")
	t.Setenv("GOINTAKE_CHAT_PROVIDER", "gemini")
	t.Setenv("GOINTAKE_SERVER_TRUST_PROXY_HEADERS", "true")

	cfg, err := loadNoEnvFiles(t, "")
	require.NoError(t, err)
	assert.Equal(t, 9091, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Intake.RateLimitCapacity)
	assert.Equal(t, 30*time.Second, cfg.Intake.RateLimitWindow)
	assert.True(t, cfg.Redis.Embedded)
	assert.Equal(t, "from-provider-env", cfg.Chat.APIKey)
	assert.Equal(t, "0.0.0.0:9091", cfg.Server.Address())
	assert.True(t, cfg.Server.TrustProxyHeaders)
}

func TestLoadConfigFileAndDotenv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gointake.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 7000
intake:
  case_id_prefix: LAW
  session_token_enabled: true
  session_token_secret: "0123456789abcdef0123456789abcdef"
metrics:
  exporter: otel
`), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GOINTAKE_LOGGING_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("GOINTAKE_LOGGING_LEVEL") })

	cfg, err := Load(LoadOptions{ConfigFile: file, EnvFiles: []string{envFile, filepath.Join(dir, "missing.env")}})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, MetricsExporterOTel, cfg.Metrics.Exporter)

	ec, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, "LAW", ec.Credential.CaseIDPrefix)
	assert.True(t, ec.SessionToken.Enabled)
	assert.Len(t, ec.SessionToken.PrivateKey, 32)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"GOINTAKE_SERVER_PORT": "70000"}},
		{"bad exporter", map[string]string{"GOINTAKE_METRICS_EXPORTER": "statsd"}},
		{"gemini without key", map[string]string{"GOINTAKE_CHAT_PROVIDER": "gemini", "GEMINI_API_KEY": ""}},
		{"unknown provider", map[string]string{"GOINTAKE_CHAT_PROVIDER": "llama"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := loadNoEnvFiles(t, "")
			assert.Error(t, err)
		})
	}

	_, err := loadNoEnvFiles(t, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEngineRejectsInvalidIntake(t *testing.T) {
	t.Setenv("GOINTAKE_INTAKE_SESSION_TOKEN_ENABLED", "true")

	cfg, err := loadNoEnvFiles(t, "")
	require.NoError(t, err)

	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "intake config")
}
