package health

import (
	"context"
	"time"
)

// QueueStats 配置队列概况
type QueueStats struct {
	Queued   int    // 排队任务数
	Job      string // 当前任务
	Failures int    // 当前任务的连续失败次数
}

// QueueChecker 配置队列检查器
// 当前任务出现超时重发时为降级，队列本身不会使服务不可用。
type QueueChecker struct {
	stats func() QueueStats
}

// NewQueueChecker 创建配置队列检查器
func NewQueueChecker(stats func() QueueStats) *QueueChecker {
	return &QueueChecker{stats: stats}
}

// Name 返回检查器名称
func (c *QueueChecker) Name() string {
	return "queue"
}

// Check 执行健康检查
func (c *QueueChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	s := c.stats()
	r := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{
			"queued":   s.Queued,
			"job":      s.Job,
			"failures": s.Failures,
		},
	}
	if s.Failures > 0 {
		r.Status = StatusDegraded
		r.Message = "panel not acknowledging"
	}
	r.Latency = time.Since(start)
	return r
}
