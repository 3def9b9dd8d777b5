// Package redis keeps a capped per-URL scan history in Redis lists.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

const historyKeyPrefix = "complyscan:history:"

// Store is a history store backed by Redis. Each target maps to one list,
// newest entry first.
type Store struct {
	client     *redis.Client
	maxEntries int
	retention  time.Duration
}

// New wraps an existing client.
func New(client *redis.Client, maxEntries int, retention time.Duration) *Store {
	return &Store{client: client, maxEntries: maxEntries, retention: retention}
}

// Dial connects to the configured Redis and verifies it with a ping.
func Dial(ctx context.Context, cfg config.HistoryConfig) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, models.NewScanError(models.ErrKindDatabase, "ping redis", err)
	}
	return New(rdb, cfg.RedisMaxEntries, cfg.RedisRetention), nil
}

// Name identifies the backend in health output.
func (s *Store) Name() string { return "redis" }

// Close closes the client.
func (s *Store) Close() { _ = s.client.Close() }

// historyKey hashes the target so keys stay short and free of separators.
func historyKey(target string) string {
	sum := sha256.Sum256([]byte(target))
	return historyKeyPrefix + hex.EncodeToString(sum[:])
}

// Save prepends r to its target's list, trims the list and refreshes its
// expiry in one transaction.
func (s *Store) Save(ctx context.Context, r *models.ScanResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal scan result: %w", err)
	}

	key := historyKey(r.Target)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		if s.maxEntries > 0 {
			pipe.LTrim(ctx, key, 0, int64(s.maxEntries-1))
		}
		if s.retention > 0 {
			pipe.Expire(ctx, key, s.retention)
		}
		return nil
	})
	if err != nil {
		return models.NewScanError(models.ErrKindDatabase, "save scan result", err)
	}
	return nil
}

// History returns up to limit results for target, newest first.
func (s *Store) History(ctx context.Context, target string, limit int) ([]*models.ScanResult, error) {
	if limit <= 0 {
		return []*models.ScanResult{}, nil
	}
	vals, err := s.client.LRange(ctx, historyKey(target), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, models.NewScanError(models.ErrKindDatabase, "load history", err)
	}

	results := make([]*models.ScanResult, 0, len(vals))
	for _, v := range vals {
		var r models.ScanResult
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, models.NewScanError(models.ErrKindDatabase, "decode history entry", err)
		}
		results = append(results, &r)
	}
	return results, nil
}
