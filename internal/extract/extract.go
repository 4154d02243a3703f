// Package extract locates labelled attribute values in listing pages whose
// markup schema is not known up front.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

var (
	// ErrNoMatch is returned by a Strategy that does not apply to the document.
	ErrNoMatch = errors.New("no match")
	// ErrNotFound is returned by Lookup when every label and strategy missed.
	ErrNotFound    = errors.New("attribute not found")
	ErrNilDocument = errors.New("nil document")
)

// Strategy is one structural heuristic. Find returns the trimmed value for
// label, or ErrNoMatch.
type Strategy struct {
	Name string
	Find func(doc *goquery.Document, label string) (string, error)
}

// Match describes which label and strategy produced a value.
type Match struct {
	Value    string
	Label    string
	Strategy string
}

type Extractor struct {
	strategies []Strategy
}

// Generic is the fallback cascade, strongest assumption first.
func Generic() []Strategy {
	return []Strategy{LabelSibling, EmphasizedLabel, SubstringSplit}
}

// New returns an Extractor that tries the site specific strategies before the
// generic cascade.
func New(specific ...Strategy) *Extractor {
	strategies := make([]Strategy, 0, len(specific)+3)
	strategies = append(strategies, specific...)
	strategies = append(strategies, Generic()...)
	return &Extractor{strategies: strategies}
}

func (e *Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name
	}
	return names
}

// Lookup tries each label in order, running the full cascade for one label
// before moving on to the next.
func (e *Extractor) Lookup(doc *goquery.Document, labels ...string) (Match, error) {
	if doc == nil || doc.Selection == nil {
		return Match{}, ErrNilDocument
	}

	var errs []error
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		for _, s := range e.strategies {
			value, err := s.Find(doc, label)
			if err != nil {
				if !errors.Is(err, ErrNoMatch) {
					errs = append(errs, fmt.Errorf("%s(%q): %w", s.Name, label, err))
				}
				continue
			}
			if value = strings.TrimSpace(value); value != "" {
				return Match{Value: value, Label: label, Strategy: s.Name}, nil
			}
		}
	}

	if len(errs) > 0 {
		return Match{}, fmt.Errorf("%w: %w", ErrNotFound, errors.Join(errs...))
	}
	return Match{}, ErrNotFound
}

// Extract returns the value for the first matching label, or the sentinel.
func (e *Extractor) Extract(doc *goquery.Document, labels ...string) string {
	m, err := e.Lookup(doc, labels...)
	if err != nil {
		return models.NotAvailable
	}
	return m.Value
}

// Selector returns the trimmed text of the first element matching css, or the
// sentinel.
func Selector(doc *goquery.Document, css string) string {
	if doc == nil || doc.Selection == nil {
		return models.NotAvailable
	}
	text := strings.TrimSpace(doc.Find(css).First().Text())
	if text == "" {
		return models.NotAvailable
	}
	return text
}

func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
