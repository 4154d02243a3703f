package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/jobs"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/metrics"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/orchestrator"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/queue"
)

var testDefaults = Defaults{
	Queries:  []string{"iphone 13", "samsung s22"},
	Sites:    []string{"dubizzle", "opensooq"},
	MaxPages: 2,
}

func newTestServer(t *testing.T, run jobs.RunFunc, capacity int) (*httptest.Server, *jobs.Manager, *queue.InMemoryQueue) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := queue.NewInMemoryQueue(capacity)
	manager := jobs.NewManager(q, run, logger)
	m := metrics.New()
	srv := httptest.NewServer(NewRouter(NewHandlers(manager, testDefaults, logger), m.Registry, nil))
	t.Cleanup(srv.Close)
	return srv, manager, q
}

func postRun(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, nil, 0)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, nil, 0)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "scraper_run_duration_seconds")
}

func TestCreateRunAppliesDefaults(t *testing.T) {
	srv, manager, _ := newTestServer(t, nil, 0)

	resp := postRun(t, srv, `{}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created CreateRunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, jobs.StatusPending, created.Status)

	run, err := manager.Get(created.RunID)
	require.NoError(t, err)
	assert.Equal(t, testDefaults.Queries, run.Queries)
	assert.Equal(t, testDefaults.Sites, run.Sites)
	assert.Equal(t, 2, run.MaxPages)
}

func TestCreateRunValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed body", body: `{"queries":`},
		{name: "unknown site", body: `{"queries":["iphone"],"sites":["olx"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t, nil, 0)
			resp := postRun(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCreateRunQueueFull(t *testing.T) {
	srv, _, _ := newTestServer(t, nil, 1)

	first := postRun(t, srv, `{"queries":["a"]}`)
	require.Equal(t, http.StatusAccepted, first.StatusCode)

	second := postRun(t, srv, `{"queries":["b"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, second.StatusCode)
}

func TestGetUnknownRun(t *testing.T) {
	srv, _, _ := newTestServer(t, nil, 0)

	for _, path := range []string{"/api/v1/runs/nope", "/api/v1/runs/nope/records"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestRunLifecycle(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	record := models.NewRecord("Dubizzle", "https://www.dubizzle.com.eg/en/ad/1", ts)
	record.ProductTitle = "iPhone 13"
	run := func(ctx context.Context, req *queue.RunRequest) (*orchestrator.Result, error) {
		return &orchestrator.Result{Records: []models.Record{record}}, nil
	}

	srv, manager, _ := newTestServer(t, run, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.StartWorker(ctx)

	resp := postRun(t, srv, `{"queries":["iphone 13"],"sites":["Dubizzle"],"max_pages":1}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var created CreateRunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	require.Eventually(t, func() bool {
		r, err := manager.Get(created.RunID)
		return err == nil && r.Status == jobs.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	got, err := http.Get(srv.URL + "/api/v1/runs/" + created.RunID)
	require.NoError(t, err)
	defer got.Body.Close()
	var view jobs.Run
	require.NoError(t, json.NewDecoder(got.Body).Decode(&view))
	assert.Equal(t, jobs.StatusCompleted, view.Status)
	assert.Equal(t, 1, view.RecordCount)

	recs, err := http.Get(srv.URL + "/api/v1/runs/" + created.RunID + "/records")
	require.NoError(t, err)
	defer recs.Body.Close()
	var records []models.Record
	require.NoError(t, json.NewDecoder(recs.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "iPhone 13", records[0].ProductTitle)

	list, err := http.Get(srv.URL + "/api/v1/runs")
	require.NoError(t, err)
	defer list.Body.Close()
	var runs []jobs.Run
	require.NoError(t, json.NewDecoder(list.Body).Decode(&runs))
	assert.Len(t, runs, 1)

	stats, err := http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer stats.Body.Close()
	var s jobs.Stats
	require.NoError(t, json.NewDecoder(stats.Body).Decode(&s))
	assert.Equal(t, 1, s.CompletedRuns)
}
