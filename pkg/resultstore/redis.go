package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/neosense/neosense/pkg/report"
	"github.com/redis/go-redis/v9"
)

const (
	redisReportKeyPrefix = "neosense:report:"
	redisLatestKey       = "neosense:report:latest"
)

// RedisStore persists reports in Redis. Report documents live under
// per-run keys and the latest alias holds the run id of the newest write.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using a redis:// or rediss:// URL.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &StoreError{Op: "init", Err: err}
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &StoreError{Op: "init", Err: err}
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Put(ctx context.Context, runID string, rep *report.Report) error {
	if err := validateRunID(runID); err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	record := Record{RunID: runID, Report: rep, StoredAt: time.Now().UTC()}

	data, err := json.Marshal(record)
	if err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisReportKeyPrefix+runID, data, 0)
	pipe.Set(ctx, redisLatestKey, runID, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	return s.read(ctx, "get", runID)
}

func (s *RedisStore) Latest(ctx context.Context) (*report.Report, error) {
	runID, err := s.client.Get(ctx, redisLatestKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &StoreError{Op: "latest", Err: ErrReportNotFound}
		}

		return nil, &StoreError{Op: "latest", Err: err}
	}

	return s.read(ctx, "latest", runID)
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return &StoreError{Op: "healthcheck", Err: err}
	}

	return nil
}

func (s *RedisStore) Close(ctx context.Context) error {
	if err := s.client.Close(); err != nil {
		return &StoreError{Op: "close", Err: err}
	}

	return nil
}

func (s *RedisStore) read(ctx context.Context, op, runID string) (*report.Report, error) {
	data, err := s.client.Get(ctx, redisReportKeyPrefix+runID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &StoreError{Op: op, RunID: runID, Err: ErrReportNotFound}
		}

		return nil, &StoreError{Op: op, RunID: runID, Err: err}
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &StoreError{Op: op, RunID: runID, Err: err}
	}

	return record.Report, nil
}
