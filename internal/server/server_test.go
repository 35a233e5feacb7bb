package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqimap/aqimap/internal/server"
)

func newTestServer(t *testing.T, cfg server.Config) *httptest.Server {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	ts := httptest.NewServer(server.NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, server.Config{Version: "1.2.3"})

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"healthy"`)
	assert.Contains(t, body, `"1.2.3"`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestIndexLinksArtifacts(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `/map`)
	assert.Contains(t, body, `/report.csv`)
}

func TestArtifactsMissing(t *testing.T) {
	dir := t.TempDir()
	ts := newTestServer(t, server.Config{
		MapPath:    filepath.Join(dir, "aqi_map.html"),
		ReportPath: filepath.Join(dir, "aqi_report.csv"),
	})

	resp, _ := get(t, ts.URL+"/map")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/report.csv")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestArtifactsServed(t *testing.T) {
	dir := t.TempDir()
	mapPath := filepath.Join(dir, "aqi_map.html")
	reportPath := filepath.Join(dir, "aqi_report.csv")
	require.NoError(t, os.WriteFile(mapPath, []byte("<html>map 中山</html>"), 0o644))
	require.NoError(t, os.WriteFile(reportPath, []byte("sitename\n中山\n"), 0o644))

	ts := newTestServer(t, server.Config{MapPath: mapPath, ReportPath: reportPath})

	resp, body := get(t, ts.URL+"/map")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "中山")

	resp, body = get(t, ts.URL+"/report.csv")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, body, "中山")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, server.Config{RateLimit: 3})

	for i := 0; i < 3; i++ {
		resp, _ := get(t, ts.URL+"/healthz")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "rate limit exceeded")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp, _ := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
