// Package queue holds pending scrape run requests for serve mode.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueFull   = errors.New("queue is full")
)

// RunRequest asks for one orchestrator run.
type RunRequest struct {
	ID        string
	Queries   []string
	Sites     []string
	MaxPages  int
	CreatedAt time.Time
}

type Queue interface {
	Push(req *RunRequest) error
	Pop(ctx context.Context) (*RunRequest, error)
	TryPop() (*RunRequest, error)
	Size() int
	Close() error
}

// InMemoryQueue is a FIFO with an optional capacity. Capacity 0 means
// unbounded.
type InMemoryQueue struct {
	items    []*RunRequest
	capacity int
	mu       sync.Mutex
	notify   chan struct{}
	done     chan struct{}
	closed   bool
}

func NewInMemoryQueue(capacity int) *InMemoryQueue {
	return &InMemoryQueue{
		items:    make([]*RunRequest, 0),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (q *InMemoryQueue) Push(req *RunRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return ErrQueueFull
	}

	q.items = append(q.items, req)
	q.signal()
	return nil
}

// Pop blocks until a request is available, the queue is closed or ctx ends.
func (q *InMemoryQueue) Pop(ctx context.Context) (*RunRequest, error) {
	for {
		req, err := q.TryPop()
		if !errors.Is(err, ErrQueueEmpty) {
			return req, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.done:
		case <-q.notify:
		}
	}
}

// TryPop returns the oldest request without blocking.
func (q *InMemoryQueue) TryPop() (*RunRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		return nil, ErrQueueEmpty
	}

	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return req, nil
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops new pushes. Requests already queued can still be popped.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

func (q *InMemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
