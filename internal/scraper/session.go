package scraper

import (
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

// Session owns one Fetcher and the records a single site scraper has
// produced so far. It is never shared between scrapers.
type Session struct {
	fetcher  browser.Fetcher
	records  []models.Record
	released bool
}

func NewSession(f browser.Fetcher) *Session {
	return &Session{fetcher: f}
}

func (s *Session) Fetcher() browser.Fetcher {
	return s.fetcher
}

func (s *Session) Append(records ...models.Record) {
	s.records = append(s.records, records...)
}

// Records returns a copy of the accumulated records.
func (s *Session) Records() []models.Record {
	out := make([]models.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Release frees the fetcher. Only the first call reaches the fetcher.
func (s *Session) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	if s.fetcher == nil {
		return nil
	}
	return s.fetcher.Release()
}

func (s *Session) Released() bool {
	return s.released
}
