package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

func sampleRecords() []models.Record {
	full := models.NewRecord("OpenSooq", "https://eg.opensooq.com/en/search/1?a=1&b=2", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	full.ProductTitle = "ايفون 13 <مستعمل>"
	full.Location = "القاهرة"
	full.Price = models.NotAvailable
	return []models.Record{
		full,
		models.Degraded("OpenSooq", "https://eg.opensooq.com/en/search/2", errors.New("page load failed")),
	}
}

func TestJSONFileWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "used_phones_scraped_data.json")
	sink := NewJSONFile(path, nil)

	records := sampleRecords()
	require.NoError(t, sink.Write(context.Background(), records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "ايفون 13 <مستعمل>")
	assert.Contains(t, text, "?a=1&b=2")
	assert.Contains(t, text, "\n    {\n        \"source\": \"OpenSooq\"")

	var decoded []models.Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(records, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONFileEmptyWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	sink := NewJSONFile(path, nil)

	require.NoError(t, sink.Write(context.Background(), nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestJSONFileUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	sink := NewJSONFile(filepath.Join(blocker, "out.json"), nil)
	err := sink.Write(context.Background(), sampleRecords())
	require.Error(t, err)
}

func TestEncodeShapes(t *testing.T) {
	data, err := Encode(sampleRecords())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)

	assert.Equal(t, "2024-05-01T12:00:00Z", raw[0]["timestamp"])
	assert.Equal(t, models.NotAvailable, raw[0]["price"])
	assert.NotContains(t, raw[0], "error")

	assert.Len(t, raw[1], 3)
	assert.Equal(t, "page load failed", raw[1]["error"])
	assert.True(t, strings.HasPrefix(string(data), "[\n    {"))
}

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestRedisStreamWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes one entry per record", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		records := sampleRecords()

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			vals, _ := args.Values.(map[string]any)
			return args.Stream == "stream:phone_listings" &&
				vals["listing_url"] == records[0].ListingURL &&
				vals["degraded"] == "false" &&
				args.MaxLen == 1000 && args.Approx
		})).Return(nil).Once()
		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			vals, _ := args.Values.(map[string]any)
			return vals["listing_url"] == records[1].ListingURL &&
				vals["degraded"] == "true"
		})).Return(nil).Once()

		sink := NewRedisStream(mockRedis, "stream:phone_listings", 1000, nil)
		require.NoError(t, sink.Write(ctx, records))

		mockRedis.AssertExpectations(t)
	})

	t.Run("entry data holds the record json", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		var entries []map[string]any
		mockRedis.On("XAdd", ctx, mock.Anything).Run(func(args mock.Arguments) {
			xadd := args.Get(1).(*redis.XAddArgs)
			vals, ok := xadd.Values.(map[string]any)
			require.True(t, ok)
			entries = append(entries, vals)
		}).Return(nil)

		records := sampleRecords()
		require.NoError(t, NewRedisStream(mockRedis, "s", 0, nil).Write(ctx, records))
		require.Len(t, entries, len(records))

		for i, entry := range entries {
			assert.Equal(t, records[i].Source, entry["source"])

			var got models.Record
			require.NoError(t, json.Unmarshal([]byte(entry["data"].(string)), &got))
			if diff := cmp.Diff(records[i], got); diff != "" {
				t.Errorf("entry %d data mismatch (-want +got):\n%s", i, diff)
			}
		}
	})

	t.Run("publish failure is returned", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("XAdd", ctx, mock.Anything).Return(errors.New("connection refused")).Once()

		sink := NewRedisStream(mockRedis, "s", 0, nil)
		err := sink.Write(ctx, sampleRecords())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")

		mockRedis.AssertNumberOfCalls(t, "XAdd", 1)
	})

	t.Run("empty input publishes nothing", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		sink := NewRedisStream(mockRedis, "s", 0, nil)
		require.NoError(t, sink.Write(ctx, nil))
		mockRedis.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
	})

	t.Run("close", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("Close").Return(nil)
		require.NoError(t, NewRedisStream(mockRedis, "s", 0, nil).Close())
		mockRedis.AssertExpectations(t)
	})
}

type recordingSink struct {
	got [][]models.Record
	err error
}

func (r *recordingSink) Write(_ context.Context, records []models.Record) error {
	r.got = append(r.got, records)
	return r.err
}

func TestMulti(t *testing.T) {
	first := &recordingSink{err: errors.New("disk full")}
	second := &recordingSink{}

	err := Multi(first, second).Write(context.Background(), sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)

	assert.NoError(t, Multi(second).Write(context.Background(), nil))
}
