// Package storage persists the combined records of a run.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

// Sink receives the combined result of a run. A returned error is fatal for
// the run since there is no fallback destination.
type Sink interface {
	Write(ctx context.Context, records []models.Record) error
}

type multiSink struct {
	sinks []Sink
}

// Multi writes to every sink in order, even after one fails, and joins the
// errors.
func Multi(sinks ...Sink) Sink {
	return &multiSink{sinks: sinks}
}

func (m *multiSink) Write(ctx context.Context, records []models.Record) error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Write(ctx, records); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
