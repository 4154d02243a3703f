package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout marks a navigation or wait that ran past its deadline.
var ErrTimeout = errors.New("browser timeout")

// Fetcher is a single browser page that scrapers drive.
type Fetcher interface {
	// Navigate loads url and returns the rendered HTML at that point.
	Navigate(ctx context.Context, url string) (string, error)
	// WaitForReady reports whether the page finished loading within timeout.
	WaitForReady(timeout time.Duration) bool
	// WaitForSelector reports whether any of the selectors became visible
	// within timeout. Selectors are tried in order.
	WaitForSelector(selectors []string, timeout time.Duration) bool
	FindAll(selector string) ([]Element, error)
	Content() (string, error)
	// Release frees the underlying browser resources.
	Release() error
}

// Element is a handle to a node on the live page.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	Click() error
}

// Factory opens a new, exclusively owned Fetcher.
type Factory func(ctx context.Context) (Fetcher, error)
