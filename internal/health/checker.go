package health

import (
	"context"
	"fmt"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"   // 健康
	StatusDegraded  Status = "degraded"  // 降级（部分功能受损但仍可服务）
	StatusUnhealthy Status = "unhealthy" // 不健康（无法服务）
)

// CheckResult 健康检查结果
type CheckResult struct {
	Status  Status                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Latency time.Duration          `json:"latency"`
}

// Checker 健康检查器接口
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// poolStatus 按连接池利用率给出状态
func poolStatus(used, total int64) (Status, string, string) {
	if total <= 0 {
		return StatusHealthy, "ok", "0.0%"
	}
	u := float64(used) / float64(total)
	pct := fmt.Sprintf("%.1f%%", u*100)
	switch {
	case u >= 1.0:
		return StatusUnhealthy, "connection pool exhausted", pct
	case u > 0.9:
		return StatusDegraded, "connection pool near limit", pct
	}
	return StatusHealthy, "ok", pct
}

func failed(start time.Time, what string, err error) CheckResult {
	return CheckResult{
		Status:  StatusUnhealthy,
		Message: fmt.Sprintf("%s failed: %v", what, err),
		Latency: time.Since(start),
	}
}
