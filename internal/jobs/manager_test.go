package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/orchestrator"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/queue"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func waitFor(t *testing.T, m *Manager, id string, status Status) *Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := m.Get(id)
		require.NoError(t, err)
		if run.Status == status {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s never reached %s", id, status)
	return nil
}

func TestSubmitAndProcess(t *testing.T) {
	records := []models.Record{
		models.NewRecord("Dubizzle", "u1", time.Now()),
		models.Degraded("Dubizzle", "u2", errors.New("page load failed")),
	}
	var got *queue.RunRequest
	run := func(ctx context.Context, req *queue.RunRequest) (*orchestrator.Result, error) {
		got = req
		return &orchestrator.Result{
			Records:  records,
			Variants: []orchestrator.VariantReport{{Site: "Dubizzle", State: orchestrator.Closed, Outcome: orchestrator.Finished}},
		}, nil
	}

	q := queue.NewInMemoryQueue(10)
	m := NewManager(q, run, quietLogger())

	submitted, err := m.Submit([]string{"iphone 13"}, []string{"dubizzle"}, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, submitted.Status)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.StartWorker(ctx)
	}()

	done := waitFor(t, m, submitted.ID, StatusCompleted)
	cancel()
	wg.Wait()

	require.NotNil(t, got)
	assert.Equal(t, []string{"iphone 13"}, got.Queries)
	assert.Equal(t, 2, got.MaxPages)

	assert.Equal(t, 2, done.RecordCount)
	assert.Equal(t, 1, done.DegradedCount)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	require.Len(t, done.Variants, 1)

	recs, err := m.Records(submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, records, recs)

	assert.Equal(t, Stats{TotalRuns: 1, CompletedRuns: 1}, m.Stats())
}

func TestFailedRunKeepsPartialResult(t *testing.T) {
	run := func(ctx context.Context, req *queue.RunRequest) (*orchestrator.Result, error) {
		return &orchestrator.Result{Records: []models.Record{models.NewRecord("OpenSooq", "u1", time.Now())}},
			errors.New("failed to write results: disk full")
	}
	q := queue.NewInMemoryQueue(0)
	m := NewManager(q, run, quietLogger())

	submitted, err := m.Submit([]string{"q"}, []string{"opensooq"}, 1)
	require.NoError(t, err)

	req, err := q.Pop(context.Background())
	require.NoError(t, err)
	m.process(context.Background(), req)

	failed, err := m.Get(submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "disk full")
	assert.Equal(t, 1, failed.RecordCount)
}

func TestPanickingRunFails(t *testing.T) {
	run := func(ctx context.Context, req *queue.RunRequest) (*orchestrator.Result, error) {
		panic("boom")
	}
	q := queue.NewInMemoryQueue(0)
	m := NewManager(q, run, quietLogger())

	submitted, err := m.Submit([]string{"q"}, []string{"dubizzle"}, 1)
	require.NoError(t, err)

	req, err := q.Pop(context.Background())
	require.NoError(t, err)
	m.process(context.Background(), req)

	failed, err := m.Get(submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "panic: boom", failed.Error)
}

func TestQueueFull(t *testing.T) {
	m := NewManager(queue.NewInMemoryQueue(1), nil, quietLogger())

	_, err := m.Submit([]string{"a"}, []string{"dubizzle"}, 1)
	require.NoError(t, err)

	_, err = m.Submit([]string{"b"}, []string{"dubizzle"}, 1)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Len(t, m.List(), 1)
}

func TestGetUnknown(t *testing.T) {
	m := NewManager(queue.NewInMemoryQueue(0), nil, quietLogger())

	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = m.Records("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListNewestFirst(t *testing.T) {
	m := NewManager(queue.NewInMemoryQueue(0), nil, quietLogger())
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := m.Submit([]string{"a"}, []string{"dubizzle"}, 1)
	require.NoError(t, err)
	second, err := m.Submit([]string{"b"}, []string{"dubizzle"}, 1)
	require.NoError(t, err)

	runs := m.List()
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestWorkerStopsWhenQueueCloses(t *testing.T) {
	q := queue.NewInMemoryQueue(0)
	m := NewManager(q, nil, quietLogger())

	done := make(chan struct{})
	go func() {
		m.StartWorker(context.Background())
		close(done)
	}()

	require.NoError(t, q.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
