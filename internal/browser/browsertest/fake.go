// Package browsertest provides a scripted browser.Fetcher for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
)

// Page is the scripted state served for one URL.
type Page struct {
	HTML string
	// NavErr is returned from Navigate instead of loading the page.
	NavErr error
	// Panic, when set, makes Navigate panic with this value.
	Panic any
	// NotReady makes WaitForReady report false.
	NotReady bool
	// Covered hides every selector from WaitForSelector until one of the
	// page's elements has been clicked, like a consent overlay.
	Covered bool
	// Visible lists selectors that WaitForSelector should find even
	// without scripted elements.
	Visible  []string
	Elements map[string][]*Element
}

type Element struct {
	TextValue string
	Attrs     map[string]string
	ClickErr  error

	mu     sync.Mutex
	clicks int
}

func (e *Element) Text() (string, error) {
	return e.TextValue, nil
}

func (e *Element) Attribute(name string) (string, error) {
	return e.Attrs[name], nil
}

func (e *Element) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	return nil
}

func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (p *Page) clicked() bool {
	for _, els := range p.Elements {
		for _, el := range els {
			if el.Clicks() > 0 {
				return true
			}
		}
	}
	return false
}

// Link is shorthand for an anchor element with an href.
func Link(href string) *Element {
	return &Element{Attrs: map[string]string{"href": href}}
}

// Button is shorthand for a clickable element with visible text.
func Button(text string) *Element {
	return &Element{TextValue: text}
}

type Fetcher struct {
	Pages      map[string]*Page
	ReleaseErr error

	mu       sync.Mutex
	current  *Page
	visited  []string
	releases int
}

var _ browser.Fetcher = (*Fetcher)(nil)

func New(pages map[string]*Page) *Fetcher {
	if pages == nil {
		pages = make(map[string]*Page)
	}
	return &Fetcher{Pages: pages}
}

// Factory returns a browser.Factory that always hands out f.
func (f *Fetcher) Factory() browser.Factory {
	return func(ctx context.Context) (browser.Fetcher, error) {
		return f, nil
	}
}

func (f *Fetcher) Navigate(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.visited = append(f.visited, url)
	page, ok := f.Pages[url]
	if ok {
		f.current = page
	} else {
		f.current = nil
	}
	f.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("browsertest: no page scripted for %s", url)
	}
	if page.Panic != nil {
		panic(page.Panic)
	}
	if page.NavErr != nil {
		return "", page.NavErr
	}
	return page.HTML, nil
}

func (f *Fetcher) WaitForReady(timeout time.Duration) bool {
	page := f.page()
	return page != nil && !page.NotReady
}

func (f *Fetcher) WaitForSelector(selectors []string, timeout time.Duration) bool {
	page := f.page()
	if page == nil || (page.Covered && !page.clicked()) {
		return false
	}
	for _, sel := range selectors {
		if len(page.Elements[sel]) > 0 {
			return true
		}
		for _, v := range page.Visible {
			if v == sel {
				return true
			}
		}
	}
	return false
}

func (f *Fetcher) FindAll(selector string) ([]browser.Element, error) {
	page := f.page()
	if page == nil {
		return nil, nil
	}
	scripted := page.Elements[selector]
	out := make([]browser.Element, 0, len(scripted))
	for _, el := range scripted {
		out = append(out, el)
	}
	return out, nil
}

func (f *Fetcher) Content() (string, error) {
	page := f.page()
	if page == nil {
		return "", nil
	}
	return page.HTML, nil
}

func (f *Fetcher) Release() error {
	f.mu.Lock()
	f.releases++
	f.mu.Unlock()
	return f.ReleaseErr
}

// Releases reports how many times Release was called.
func (f *Fetcher) Releases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

// Visited returns every URL passed to Navigate, in order.
func (f *Fetcher) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visited...)
}

func (f *Fetcher) page() *Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}
