// Package app wires configuration into a ready tag-mapping pipeline for the
// server and CLI binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/smartlead-tagmapper/internal/artifact"
	"github.com/ignite/smartlead-tagmapper/internal/config"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/distlock"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
	"github.com/ignite/smartlead-tagmapper/internal/smartlead"
	"github.com/ignite/smartlead-tagmapper/internal/tagmap"
)

// ApplyLockKey names the lock held while tags are written.
const ApplyLockKey = "smartlead-tag-apply"

// App holds the wired components. Close releases them.
type App struct {
	Config   *config.Config
	Client   *smartlead.Client
	Redis    *redis.Client
	Pipeline *tagmap.Pipeline
}

// ConfigureLogger applies the log section.
func ConfigureLogger(cfg config.LogConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.PIIRedacted())
}

// New builds the client, the optional Redis lock backend and the optional
// artifact store, then the pipeline over them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		Config: cfg,
		Client: smartlead.NewClient(cfg.Smartlead.ClientConfig()),
	}

	opts := []tagmap.Option{}

	if cfg.Redis.Addr != "" {
		client, err := ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, using in-process apply lock", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.Redis = client
			logger.Info("redis connected", "addr", cfg.Redis.Addr)
		}
	}
	redisClient := a.Redis
	ttl := cfg.Redis.LockTTL()
	opts = append(opts, tagmap.WithApplyLock(func() distlock.DistLock {
		return distlock.NewLock(redisClient, ApplyLockKey, ttl)
	}))

	if cfg.Artifacts.Enabled {
		store, err := artifact.NewS3Store(ctx, cfg.Artifacts.S3Bucket, cfg.Artifacts.S3Region, cfg.Artifacts.Prefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, tagmap.WithArtifactStore(store))
		logger.Info("artifact uploads enabled", "bucket", cfg.Artifacts.S3Bucket, "prefix", cfg.Artifacts.Prefix)
	}

	a.Pipeline = tagmap.NewPipeline(a.Client, a.Client, cfg.Smartlead.BatchSize, opts...)
	return a, nil
}

// ConnectRedis accepts a redis:// URL or a bare host:port and pings it.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Addr)
	if err != nil {
		opts = &redis.Options{Addr: cfg.Addr}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Close releases the Redis connection if one was opened.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("closing redis failed", "error", err)
		}
	}
}
