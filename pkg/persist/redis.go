package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	URL string
	DB  int
	Key string
	// TTL of the saved blob; 0 keeps it forever.
	TTL time.Duration
}

// Redis keeps the blob in a single redis string key.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis parses cfg.URL, connects and pings.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DB = cfg.DB

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	r := NewRedisWithClient(client, cfg.Key, cfg.TTL, logger)
	r.logger.Info("redis persister connected",
		zap.Int("db", cfg.DB),
		zap.String("key", cfg.Key),
		zap.Duration("ttl", cfg.TTL))
	return r, nil
}

func NewRedisWithClient(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, key: key, ttl: ttl, logger: logger}
}

func (r *Redis) Load(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return val, nil
}

func (r *Redis) Save(ctx context.Context, blob []byte) error {
	if err := r.client.Set(ctx, r.key, blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// TTL returns the remaining lifetime of the blob key.
func (r *Redis) TTL(ctx context.Context) time.Duration {
	ttl, err := r.client.TTL(ctx, r.key).Result()
	if err != nil {
		return 0
	}
	return ttl
}

func (r *Redis) Close() error {
	return r.client.Close()
}
