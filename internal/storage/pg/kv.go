package pg

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate 创建 panel_context 等表
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	return migrate.Runner{FS: migrations, Logger: logger}.Up(ctx, pool)
}

// KV 以 panel_context 表实现的持久化上下文
type KV struct {
	Pool *pgxpool.Pool
}

func (k *KV) Has(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := k.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM panel_context WHERE key = $1)`, key).Scan(&ok)
	return ok, err
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := k.Pool.QueryRow(ctx, `SELECT value FROM panel_context WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	const q = `INSERT INTO panel_context (key, value, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	_, err := k.Pool.Exec(ctx, q, key, value)
	return err
}
