package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/plantcare/internal/config"
)

var (
	newRedisClient = redis.NewClient
	redisPing      = func(ctx context.Context, client *redis.Client) error { return client.Ping(ctx).Err() }
)

// RedisDB backs shared session state and rate limiting when more than one
// server instance runs.
type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(ctx context.Context, cfg config.RedisConfig) (*RedisDB, error) {
	client := newRedisClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := redisPing(ctx, client); err != nil {
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *RedisDB) Health(ctx context.Context) error {
	return redisPing(ctx, r.Client)
}
