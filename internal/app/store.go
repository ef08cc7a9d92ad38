package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/s1-panel-bridge/internal/config"
	"github.com/taoyao-code/s1-panel-bridge/internal/storage"
	pgstorage "github.com/taoyao-code/s1-panel-bridge/internal/storage/pg"
	redisstorage "github.com/taoyao-code/s1-panel-bridge/internal/storage/redis"
)

// Backend 指纹存储后端及其连接，Close 释放连接
type Backend struct {
	KV    storage.KV
	Redis *redisstorage.Client
	DB    *pgxpool.Pool
}

// Close 关闭后端连接
func (b *Backend) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}

// OpenBackend 按 panel.store 选择指纹存储后端
func OpenBackend(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) (*Backend, error) {
	switch cfg.Panel.Store {
	case cfgpkg.StoreRedis:
		client, err := NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return &Backend{KV: redisstorage.NewKV(client, cfg.Redis.KeyPrefix), Redis: client}, nil

	case cfgpkg.StorePostgres:
		pool, err := ConnectDBAndMigrate(ctx, cfg.Database, log)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return &Backend{KV: &pgstorage.KV{Pool: pool}, DB: pool}, nil

	default:
		log.Warn("using in-memory fingerprint store, panels are reconfigured after restart")
		return &Backend{KV: storage.NewMemoryKV()}, nil
	}
}
