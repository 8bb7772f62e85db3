// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package signals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/authbuilder/sentinel/internal/risk"
)

// RedisHistory stores login records in a per-user sorted set scored by
// attempt time, so both the last-login lookup and the velocity window are
// single range queries. Writes prune entries past retention.
type RedisHistory struct {
	client    *redis.Client
	retention time.Duration
}

// RedisHistoryConfig configures the Redis connection.
type RedisHistoryConfig struct {
	Addr     string
	Password string
	DB       int

	Retention time.Duration
}

// NewRedisHistory connects to Redis and verifies the connection.
func NewRedisHistory(ctx context.Context, cfg RedisHistoryConfig) (*RedisHistory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisHistory{client: client, retention: cfg.Retention}, nil
}

// NewRedisHistoryFromClient wraps an existing client, used by tests.
func NewRedisHistoryFromClient(client *redis.Client, retention time.Duration) *RedisHistory {
	return &RedisHistory{client: client, retention: retention}
}

// Close releases the connection pool.
func (r *RedisHistory) Close() error { return r.client.Close() }

func attemptsSetKey(userID string) string {
	return "sentinel:attempts:" + userID
}

func (r *RedisHistory) RecordLogin(ctx context.Context, rec risk.LoginRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal login record: %w", err)
	}
	key := attemptsSetKey(rec.UserID)
	score := float64(rec.Timestamp.UnixNano())

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: string(data)})
	if r.retention > 0 {
		cutoff := rec.Timestamp.Add(-r.retention).UnixNano()
		pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff))
		pipe.Expire(ctx, key, r.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record login for user %s: %w", rec.UserID, err)
	}
	return nil
}

func (r *RedisHistory) LastLogin(ctx context.Context, userID string, before time.Time) (*risk.LoginRecord, error) {
	members, err := r.client.ZRevRangeByScore(ctx, attemptsSetKey(userID), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("(%d", before.UnixNano()),
		Count: 1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("last login for user %s: %w", userID, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	var rec risk.LoginRecord
	if err := json.Unmarshal([]byte(members[0]), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal login record: %w", err)
	}
	return &rec, nil
}

func (r *RedisHistory) CountAttempts(ctx context.Context, userID string, since, until time.Time) (int, error) {
	count, err := r.client.ZCount(ctx, attemptsSetKey(userID),
		"("+strconv.FormatInt(since.UnixNano(), 10),
		strconv.FormatInt(until.UnixNano(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts for user %s: %w", userID, err)
	}
	return int(count), nil
}
