package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, lvl := range []string{"", "debug", "info", "warn", "error"} {
		l, err := NewLogger(lvl, false)
		require.NoError(t, err, lvl)
		require.NotNil(t, l)
	}
	_, err := NewLogger("loud", true)
	assert.Error(t, err)
}

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(RequestLogger(zap.New(core), m))
	r.Get("/api/reports/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "/api/reports/{id}", ctx["route"])
	assert.EqualValues(t, http.StatusNotFound, ctx["status"])

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/reports/{id}", "404"))
	assert.Equal(t, 1.0, got)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestNewHTTPMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewHTTPMetrics(reg)
	require.NoError(t, err)
	_, err = NewHTTPMetrics(reg)
	assert.Error(t, err)
}

func TestMeterProviderExposesOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	mp, err := NewMeterProvider(reg)
	require.NoError(t, err)
	defer ShutdownMeterProvider(context.Background(), mp)

	counter, err := mp.Meter("test").Int64Counter("gointake_test_events", metric.WithDescription("test"))
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "gointake_test_events_total" {
			found = true
		}
	}
	assert.True(t, found, "expected otel counter on the registry")

	assert.NoError(t, ShutdownMeterProvider(context.Background(), nil))
}

func TestAuditLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewAuditLogger(zap.New(core))

	sink.Emit(context.Background(), goIntake.AuditEvent{
		Timestamp: time.Now(),
		EventType: "credential_validated",
		CaseID:    "CI-20240101-AB12",
		Success:   false,
		Error:     "invalid_credentials",
		Metadata:  map[string]string{"scope": "x"},
	})
	sink.Emit(context.Background(), goIntake.AuditEvent{EventType: "credential_issued", Success: true})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "invalid_credentials", entries[0].ContextMap()["error_code"])
	assert.Equal(t, "CI-20240101-AB12", entries[0].ContextMap()["case_id"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)

	var _ goIntake.AuditSink = sink
}
