package health

import (
	"context"
	"time"
)

// BusStatus 设备总线连接状态
type BusStatus interface {
	IsConnected() bool
}

// MQTTChecker 设备总线健康检查器
// 与代理断开时为不健康。
type MQTTChecker struct {
	bus    BusStatus
	broker string
}

// NewMQTTChecker 创建设备总线健康检查器
func NewMQTTChecker(bus BusStatus, broker string) *MQTTChecker {
	return &MQTTChecker{bus: bus, broker: broker}
}

// Name 返回检查器名称
func (c *MQTTChecker) Name() string {
	return "mqtt"
}

// Check 执行健康检查
func (c *MQTTChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	details := map[string]interface{}{"broker": c.broker}

	if !c.bus.IsConnected() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "broker disconnected",
			Details: details,
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: details,
		Latency: time.Since(start),
	}
}
