package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

// RedisClient is the subset of the go-redis client the stream sink needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisStream appends one stream entry per record.
type RedisStream struct {
	client RedisClient
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewRedisStream(client RedisClient, stream string, maxLen int64, logger *slog.Logger) *RedisStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStream{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger.With("component", "redis_sink", "stream", stream),
	}
}

func (r *RedisStream) Write(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		r.logger.Warn("no records to publish")
		return nil
	}

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		args := &redis.XAddArgs{
			Stream: r.stream,
			Values: map[string]any{
				"data":        string(data),
				"source":      rec.Source,
				"listing_url": rec.ListingURL,
				"degraded":    strconv.FormatBool(rec.IsDegraded()),
			},
		}
		if r.maxLen > 0 {
			args.MaxLen = r.maxLen
			args.Approx = true
		}

		if _, err := r.client.XAdd(ctx, args).Result(); err != nil {
			return fmt.Errorf("failed to publish to redis: %w", err)
		}
	}

	r.logger.Info("published records", "count", len(records))
	return nil
}

func (r *RedisStream) Close() error {
	return r.client.Close()
}
