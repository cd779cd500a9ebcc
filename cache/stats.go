// Package cache keeps the dashboard statistics in redis between mutations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tkj_lending_tool/db"
	"tkj_lending_tool/metrics"

	"github.com/redis/go-redis/v9"
)

const genKey = "tkj:stats:gen"

// valueKey stores the figures computed under generation gen. Invalidate bumps the
// generation, so a load that overlaps a change can only write to a key no reader uses.
func valueKey(gen int64) string { return fmt.Sprintf("tkj:stats:%d", gen) }

// Stats is a read-through cache in front of db.Repo.Statistics. Redis failures are
// logged and the database answers instead.
type Stats struct {
	Redis   *redis.Client
	TTL     time.Duration
	Log     *slog.Logger
	Metrics *metrics.Metrics // optional
}

func (s *Stats) Get(ctx context.Context, load func(context.Context) (*db.Statistics, error)) (*db.Statistics, error) {
	gen, err := s.generation(ctx)
	if err != nil {
		s.count("error")
		s.Log.Error("can't get statistics generation from redis", slog.Any("error", err))
		return load(ctx)
	}

	raw, err := s.Redis.Get(ctx, valueKey(gen)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		s.count("miss")
	case err != nil:
		s.count("error")
		s.Log.Error("can't get statistics from redis", slog.Any("error", err))
	default:
		var st db.Statistics
		if err := json.Unmarshal(raw, &st); err == nil {
			s.count("hit")
			return &st, nil
		}
		s.count("error")
		s.Log.Error("can't decode cached statistics", slog.String("val", string(raw)))
	}

	st, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(st); err == nil {
		if err := s.Redis.Set(ctx, valueKey(gen), b, s.TTL).Err(); err != nil {
			s.Log.Error("can't cache statistics", slog.Any("error", err))
		}
	}
	return st, nil
}

// Invalidate drops the cached figures; call after any item or borrowing change.
func (s *Stats) Invalidate(ctx context.Context) {
	if err := s.Redis.Incr(ctx, genKey).Err(); err != nil {
		s.Log.Error("can't invalidate statistics cache", slog.Any("error", err))
	}
}

func (s *Stats) generation(ctx context.Context) (int64, error) {
	gen, err := s.Redis.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *Stats) count(result string) {
	if s.Metrics != nil {
		s.Metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
