package health

import (
	"context"
	"time"

	redisstorage "github.com/taoyao-code/s1-panel-bridge/internal/storage/redis"
)

// RedisChecker 指纹存储（Redis）检查器
type RedisChecker struct {
	client *redisstorage.Client
}

// NewRedisChecker 创建Redis健康检查器
func NewRedisChecker(client *redisstorage.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name 返回检查器名称
func (c *RedisChecker) Name() string {
	return "redis"
}

// Check 探活并按连接池利用率判断状态
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		return failed(start, "ping", err)
	}

	stats := c.client.PoolStats()
	status, message, pct := poolStatus(int64(stats.TotalConns-stats.IdleConns), int64(stats.TotalConns))
	if status == StatusUnhealthy {
		// ping 成功时最多为降级
		status = StatusDegraded
	}
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"timeouts":    stats.Timeouts,
			"utilization": pct,
		},
		Latency: time.Since(start),
	}
}
