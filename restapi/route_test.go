package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/telemetrydev/propdefs/health"
	_ "github.com/telemetrydev/propdefs/prom" // register pipeline metrics
)

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.Nil(t, err)
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	server := NewServer(health.NewRegistry())
	rec := get(t, server, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "property definitions service", rec.Body.String())
}

func TestReadiness(t *testing.T) {
	server := NewServer(health.NewRegistry())
	require.Equal(t, http.StatusOK, get(t, server, "/_readiness").Code)
}

func TestLiveness(t *testing.T) {
	registry := health.NewRegistry()
	handle := registry.Register("coordinator", 30*time.Millisecond)
	server := NewServer(registry)

	rec := get(t, server, "/_liveness")
	require.Equal(t, http.StatusOK, rec.Code)

	var status health.Status
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.Healthy)
	require.True(t, status.Components["coordinator"])

	// a stalled component turns the probe into a 503
	time.Sleep(60 * time.Millisecond)
	rec = get(t, server, "/_liveness")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	handle.ReportHealthy()
	require.Equal(t, http.StatusOK, get(t, server, "/_liveness").Code)
}

func TestMetrics(t *testing.T) {
	server := NewServer(health.NewRegistry())
	rec := get(t, server, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "propdefs_")
}
