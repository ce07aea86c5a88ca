package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/pkg/config"
)

// NewStore returns a redis backed Store, or the in-process one when
// redis.addr is empty.
func NewStore(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) Store {
	if cfg.Redis.Addr == "" {
		log.Warnw("redis address empty, using in-memory markers (single instance only)")
		return NewMemory()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Warnw("redis ping failed", "addr", cfg.Redis.Addr, "err", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("closing redis client")
			return rdb.Close()
		},
	})
	return NewRedis(rdb)
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
