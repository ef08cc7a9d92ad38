package outbound

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/metrics"
)

// NameUpdate 尽力而为的名称更新，不等待应答
type NameUpdate struct {
	Panel  string
	Index  int
	Name   string
	Frames [][]byte
}

// NameRecorder 名称发送后记录
type NameRecorder interface {
	SaveName(ctx context.Context, panel string, index int, name string) error
}

// Pacer 按固定间隔发送名称更新，与配置队列相互独立
type Pacer struct {
	limiter  *rate.Limiter
	ch       chan NameUpdate
	pub      Publisher
	recorder NameRecorder
	logger   *zap.Logger
	m        *metrics.AppMetrics
}

// NewPacer interval 为相邻两次发送的最小间隔
func NewPacer(interval time.Duration, pub Publisher, recorder NameRecorder, logger *zap.Logger, m *metrics.AppMetrics) *Pacer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Pacer{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		ch:       make(chan NameUpdate, 256),
		pub:      pub,
		recorder: recorder,
		logger:   logging.OrNop(logger),
		m:        metrics.OrDiscard(m),
	}
}

// Submit 非阻塞入队，缓冲区满时丢弃并返回 false
func (p *Pacer) Submit(updates ...NameUpdate) bool {
	for _, u := range updates {
		select {
		case p.ch <- u:
		default:
			p.logger.Warn("name update dropped, pacer buffer full", zap.String("panel", u.Panel), zap.Int("channel", u.Index))
			return false
		}
	}
	return true
}

// Run 阻塞直到 ctx 结束
func (p *Pacer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-p.ch:
			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
			p.send(ctx, u)
		}
	}
}

func (p *Pacer) send(ctx context.Context, u NameUpdate) {
	for _, f := range u.Frames {
		if err := p.pub.Publish(ctx, u.Panel, f); err != nil {
			p.logger.Warn("publish name update failed", zap.String("panel", u.Panel), zap.Int("channel", u.Index), zap.Error(err))
			return
		}
	}
	p.m.NameUpdateTotal.Inc()
	p.logger.Info("name update sent", zap.String("panel", u.Panel), zap.Int("channel", u.Index), zap.String("name", u.Name))
	if p.recorder == nil {
		return
	}
	if err := p.recorder.SaveName(ctx, u.Panel, u.Index, u.Name); err != nil {
		p.logger.Error("save channel name failed", zap.String("panel", u.Panel), zap.Int("channel", u.Index), zap.Error(err))
	}
}
