package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/s1-panel-bridge/internal/config"
	pgstorage "github.com/taoyao-code/s1-panel-bridge/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并按需执行迁移
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	if cfg.AutoMigrate {
		if err = pgstorage.Migrate(ctx, dbpool, log); err != nil {
			log.Error("db migrate error", zap.Error(err))
			return dbpool, err
		}
		log.Info("db migrations applied")
	}
	return dbpool, nil
}
