package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

// JSONFile writes records as one indented JSON array, leaving HTML and
// non-ASCII characters unescaped.
type JSONFile struct {
	path   string
	logger *slog.Logger
}

func NewJSONFile(path string, logger *slog.Logger) *JSONFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONFile{
		path:   path,
		logger: logger.With("component", "json_sink"),
	}
}

func (j *JSONFile) Path() string {
	return j.path
}

func (j *JSONFile) Write(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		j.logger.Warn("no data was collected, no file will be saved", "path", j.path)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(records)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Write to temp file first for atomicity
	tmpFile := j.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpFile, err)
	}
	if err := os.Rename(tmpFile, j.path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	j.logger.Info("saved combined records", "path", j.path, "count", len(records))
	return nil
}

// Encode renders records the way JSONFile stores them.
func Encode(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}
