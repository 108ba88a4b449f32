package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the shared Redis that holds call sessions, the availability
// ledger and on-call overrides. Zero durations and sizes take defaults.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize    int
	DialTimeout time.Duration
	// IOTimeout bounds each read and write. Session and ledger commands are single round
	// trips inside a voice turn, so this stays short.
	IOTimeout   time.Duration
	PingTimeout time.Duration
}

func (c RedisConfig) options() (*redis.Options, error) {
	if c.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if c.DB < 0 {
		return nil, fmt.Errorf("redis db must be >= 0, got %d", c.DB)
	}
	opts := &redis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		PoolSize:        c.PoolSize,
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.IOTimeout,
		WriteTimeout:    c.IOTimeout,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 20
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 3 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = time.Second
		opts.WriteTimeout = time.Second
	}
	return opts, nil
}

// OpenRedis builds a client and pings it. The client is closed if the ping fails.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", cfg.Addr, err)
	}
	return rdb, nil
}
