package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/MrEthical07/goIntake/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", ""))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2024-01-01")

	out, err := run(t, "version", "--extended")
	require.NoError(t, err)
	assert.Contains(t, out, "goIntake 1.2.3")
	assert.Contains(t, out, "Commit: abc123")
}

func TestIssueAndDeactivateAgainstRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	url := "redis://" + mr.Addr() + "/0"

	out, err := run(t, "issue", "--redis-url", url, "--log-level", "error")
	require.NoError(t, err)

	var cred goIntake.IssuedCredential
	require.NoError(t, json.Unmarshal([]byte(out), &cred))
	assert.Regexp(t, `^CI-\d{8}-[A-Z0-9]{4}$`, cred.CaseID)
	assert.NotEmpty(t, cred.Passcode)

	out, err = run(t, "deactivate", cred.CaseID, "--redis-url", url, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "deactivated")

	_, err = run(t, "deactivate", "CI-20240101-NONE", "--redis-url", url, "--log-level", "error")
	assert.ErrorIs(t, err, goIntake.ErrCredentialNotFound)
}

func TestIssueEmbeddedRedis(t *testing.T) {
	out, err := run(t, "issue", "--embedded-redis", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, `"caseId"`)
}

func TestOpenRedisFailsWithoutServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, _, err = openRedis(context.Background(), config.RedisConfig{URL: "redis://" + addr}, zap.NewNop())
	assert.ErrorContains(t, err, "redis ping")

	_, _, err = openRedis(context.Background(), config.RedisConfig{URL: "://bad"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRegisterEngineMetrics(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, closeRedis, err := openRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(closeRedis)

	cfg, err := config.Load(config.LoadOptions{EnvFiles: []string{}})
	require.NoError(t, err)
	engine, err := buildEngine(cfg, client, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	_, err = engine.IssueCredential(context.Background())
	require.NoError(t, err)

	for _, exporter := range []string{config.MetricsExporterPrometheus, config.MetricsExporterOTel} {
		t.Run(exporter, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			closeFn, err := registerEngineMetrics(exporter, reg, engine)
			require.NoError(t, err)
			defer closeFn()

			families, err := reg.Gather()
			require.NoError(t, err)
			found := false
			for _, mf := range families {
				if strings.HasPrefix(mf.GetName(), "gointake_credential_issued") {
					found = true
				}
			}
			assert.True(t, found, "issued counter missing")
		})
	}

	_, err = registerEngineMetrics("statsd", prometheus.NewRegistry(), engine)
	assert.Error(t, err)
}
