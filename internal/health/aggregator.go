package health

import (
	"context"
	"sync"
	"time"
)

// DefaultCheckTimeout 单个检查器的超时
const DefaultCheckTimeout = 3 * time.Second

// Aggregator 健康检查聚合器
// gate 为启动阶段的就绪开关，未就绪时 Ready 直接返回 false。
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
	gate     func() bool
	timeout  time.Duration
}

// NewAggregator 创建聚合器
func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{checkers: checkers, timeout: DefaultCheckTimeout}
}

// AddChecker 添加检查器
func (a *Aggregator) AddChecker(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// SetGate 设置启动就绪开关
func (a *Aggregator) SetGate(gate func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate = gate
}

// CheckAll 并发执行所有检查
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	timeout := a.timeout
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(map[string]CheckResult, len(checkers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			r := c.Check(ctx)
			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

// Overall 任一 unhealthy 则 unhealthy，否则任一 degraded 则 degraded
func Overall(results map[string]CheckResult) Status {
	status := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// OverallStatus 计算总体健康状态
func (a *Aggregator) OverallStatus(ctx context.Context) Status {
	return Overall(a.CheckAll(ctx))
}

// Report 执行一次检查并生成报告
func (a *Aggregator) Report(ctx context.Context) HealthReport {
	results := a.CheckAll(ctx)
	return HealthReport{
		Status:    Overall(results),
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// Ready 就绪开关打开且没有 unhealthy 的组件
func (a *Aggregator) Ready(ctx context.Context) bool {
	a.mu.RLock()
	gate := a.gate
	a.mu.RUnlock()
	if gate != nil && !gate() {
		return false
	}
	return a.OverallStatus(ctx) != StatusUnhealthy
}

// Alive 进程能响应即存活
func (a *Aggregator) Alive() bool {
	return true
}

// HealthReport 健康报告
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}
