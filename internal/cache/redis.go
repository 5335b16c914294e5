package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "calchub:cache:"

// globEscaper quotes the characters SCAN MATCH treats as pattern syntax so a
// tag matches literally, as it does in Memory.Clear.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// redisEnvelope is the stored form of a value; the key TTL covers the stale
// window and FreshUntil marks where staleness begins.
type redisEnvelope struct {
	Value      []byte `json:"v"`
	FreshUntil int64  `json:"f"`
}

// Redis stores cache entries in a redis server shared by all instances.
type Redis struct {
	client   redis.UniversalClient
	defaults Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, defaults Options, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client:   client,
		defaults: withDefaults(defaults, Options{}),
		logger:   logger,
		now:      time.Now,
	}
}

// DialRedis connects to addr and verifies the connection with a ping.
func DialRedis(ctx context.Context, addr, password string, db int, defaults Options, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedis(client, defaults, logger), nil
}

func (c *Redis) Name() string { return "redis" }

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	entry, err := decodeEnvelope(raw, c.now())
	if err != nil {
		c.logger.Warn("discarding unreadable cache entry",
			zap.String("op", "cache.Redis.Get"),
			zap.String("key", key),
			zap.Error(err),
		)
		_ = c.client.Del(ctx, redisKeyPrefix+key).Err()
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, opts Options) error {
	opts = withDefaults(opts, c.defaults)
	raw, err := encodeEnvelope(value, c.now().Add(opts.MaxAge))
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, opts.MaxAge+opts.StaleWhileRevalidate).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Redis) Clear(ctx context.Context, tags ...string) (int, error) {
	patterns := []string{redisKeyPrefix + "*"}
	if len(tags) > 0 {
		patterns = patterns[:0]
		for _, tag := range tags {
			if tag != "" {
				patterns = append(patterns, redisKeyPrefix+"*"+globEscaper.Replace(tag)+"*")
			}
		}
	}

	removed := 0
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			n, err := c.client.Del(ctx, iter.Val()).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del %s: %w", iter.Val(), err)
			}
			removed += int(n)
		}
		if err := iter.Err(); err != nil {
			return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
	}
	return removed, nil
}

func encodeEnvelope(value []byte, freshUntil time.Time) ([]byte, error) {
	raw, err := json.Marshal(redisEnvelope{Value: value, FreshUntil: freshUntil.UnixNano()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return raw, nil
}

func decodeEnvelope(raw []byte, now time.Time) (Entry, error) {
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Entry{}, err
	}
	state := Fresh
	if !now.Before(time.Unix(0, env.FreshUntil)) {
		state = Stale
	}
	return Entry{Value: env.Value, State: state}, nil
}
