// Package jobs queues scrape runs submitted over the API and executes them
// one at a time.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/orchestrator"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/queue"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrQueueFull   = errors.New("run queue is full")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the API view of one submitted scrape run.
type Run struct {
	ID            string                       `json:"id"`
	Queries       []string                     `json:"queries"`
	Sites         []string                     `json:"sites"`
	MaxPages      int                          `json:"max_pages"`
	Status        Status                       `json:"status"`
	RecordCount   int                          `json:"record_count"`
	DegradedCount int                          `json:"degraded_count"`
	Variants      []orchestrator.VariantReport `json:"variants,omitempty"`
	CreatedAt     time.Time                    `json:"created_at"`
	StartedAt     *time.Time                   `json:"started_at,omitempty"`
	CompletedAt   *time.Time                   `json:"completed_at,omitempty"`
	Error         string                       `json:"error,omitempty"`

	records []models.Record
}

// Stats counts runs by status.
type Stats struct {
	TotalRuns     int `json:"total_runs"`
	PendingRuns   int `json:"pending_runs"`
	RunningRuns   int `json:"running_runs"`
	CompletedRuns int `json:"completed_runs"`
	FailedRuns    int `json:"failed_runs"`
}

// RunFunc executes one request. A non-nil result is kept even when an error
// is returned.
type RunFunc func(ctx context.Context, req *queue.RunRequest) (*orchestrator.Result, error)

type Manager struct {
	queue  queue.Queue
	run    RunFunc
	logger *slog.Logger

	mu   sync.RWMutex
	runs map[string]*Run
	now  func() time.Time
}

func NewManager(q queue.Queue, run RunFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		queue:  q,
		run:    run,
		logger: logger.With("component", "job_manager"),
		runs:   make(map[string]*Run),
		now:    time.Now,
	}
}

// Submit registers a pending run and queues it.
func (m *Manager) Submit(queries, sites []string, maxPages int) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Queries:   append([]string(nil), queries...),
		Sites:     append([]string(nil), sites...),
		MaxPages:  maxPages,
		Status:    StatusPending,
		CreatedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	snapshot := run.clone()
	m.mu.Unlock()

	err := m.queue.Push(&queue.RunRequest{
		ID:        run.ID,
		Queries:   run.Queries,
		Sites:     run.Sites,
		MaxPages:  maxPages,
		CreatedAt: run.CreatedAt,
	})
	if err != nil {
		m.mu.Lock()
		delete(m.runs, run.ID)
		m.mu.Unlock()
		if errors.Is(err, queue.ErrQueueFull) {
			return nil, ErrQueueFull
		}
		return nil, fmt.Errorf("failed to queue run: %w", err)
	}

	m.logger.Info("run submitted", "id", run.ID, "queries", len(queries), "sites", sites)
	return snapshot, nil
}

// StartWorker processes queued runs sequentially until ctx ends or the queue
// is closed.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("run worker started")

	for {
		req, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				m.logger.Info("run worker stopping")
				return
			}
			m.logger.Error("failed to take next run", "error", err)
			continue
		}
		m.process(ctx, req)
	}
}

func (m *Manager) process(ctx context.Context, req *queue.RunRequest) {
	started := m.now().UTC()
	if !m.update(req.ID, func(r *Run) {
		r.Status = StatusRunning
		r.StartedAt = &started
	}) {
		m.logger.Warn("dropping unknown run", "id", req.ID)
		return
	}

	m.logger.Info("processing run", "id", req.ID)
	res, err := m.execute(ctx, req)

	completed := m.now().UTC()
	m.update(req.ID, func(r *Run) {
		r.CompletedAt = &completed
		if res != nil {
			r.records = res.Records
			r.Variants = res.Variants
			r.RecordCount = len(res.Records)
			r.DegradedCount = models.CountDegraded(res.Records)
		}
		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
			return
		}
		r.Status = StatusCompleted
	})

	if err != nil {
		m.logger.Error("run failed", "id", req.ID, "error", err)
		return
	}
	m.logger.Info("run completed", "id", req.ID)
}

func (m *Manager) execute(ctx context.Context, req *queue.RunRequest) (res *orchestrator.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.run(ctx, req)
}

func (m *Manager) update(id string, fn func(*Run)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return false
	}
	fn(run)
	return true
}

func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run.clone(), nil
}

// List returns every run, newest first.
func (m *Manager) List() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *Manager) Records(id string) ([]models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := make([]models.Record, len(run.records))
	copy(out, run.records)
	return out, nil
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{TotalRuns: len(m.runs)}
	for _, run := range m.runs {
		switch run.Status {
		case StatusPending:
			stats.PendingRuns++
		case StatusRunning:
			stats.RunningRuns++
		case StatusCompleted:
			stats.CompletedRuns++
		case StatusFailed:
			stats.FailedRuns++
		}
	}
	return stats
}

func (r *Run) clone() *Run {
	c := *r
	c.Queries = append([]string(nil), r.Queries...)
	c.Sites = append([]string(nil), r.Sites...)
	c.Variants = append([]orchestrator.VariantReport(nil), r.Variants...)
	c.records = nil
	return &c
}
