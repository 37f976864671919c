package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/couchcryptid/sheet-ladder-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
	"github.com/couchcryptid/sheet-ladder-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRun struct {
	err     error
	summary pipeline.Summary
}

func (m *mockRun) CheckReadiness(_ context.Context) error { return m.err }
func (m *mockRun) Snapshot() pipeline.Summary            { return m.summary }

func newTestServer(run *mockRun) *httpadapter.Server {
	return httpadapter.NewServer(":0", run, prometheus.DefaultGatherer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(&mockRun{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(&mockRun{}), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(&mockRun{err: fmt.Errorf("source table not loaded yet")}), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusReturnsSnapshot(t *testing.T) {
	run := &mockRun{summary: pipeline.Summary{
		RunID:        "run-1",
		RowsLoaded:   2,
		RowsExpanded: 3,
		Features:     3,
		Upload:       domain.UploadOutcome{Total: 3, Succeeded: 2, Failed: 1, Batches: 2},
	}}
	rec := serve(newTestServer(run), "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body pipeline.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, run.summary, body)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(&mockRun{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPostNotAllowed(t *testing.T) {
	srv := newTestServer(&mockRun{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
