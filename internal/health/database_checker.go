package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseChecker 指纹存储（PostgreSQL）检查器
type DatabaseChecker struct {
	pool *pgxpool.Pool
}

// NewDatabaseChecker 创建数据库健康检查器
func NewDatabaseChecker(pool *pgxpool.Pool) *DatabaseChecker {
	return &DatabaseChecker{pool: pool}
}

// Name 返回检查器名称
func (c *DatabaseChecker) Name() string {
	return "database"
}

// Check 探活后统计连接池与已保存的面板记录数
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.pool.Ping(ctx); err != nil {
		return failed(start, "ping", err)
	}

	var records int64
	if err := c.pool.QueryRow(ctx, `SELECT count(*) FROM panel_context`).Scan(&records); err != nil {
		return failed(start, "query panel_context", err)
	}

	stats := c.pool.Stat()
	status, message, pct := poolStatus(int64(stats.AcquiredConns()), int64(stats.MaxConns()))
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"records":        records,
			"acquired_conns": stats.AcquiredConns(),
			"idle_conns":     stats.IdleConns(),
			"max_conns":      stats.MaxConns(),
			"utilization":    pct,
		},
		Latency: time.Since(start),
	}
}
