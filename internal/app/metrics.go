package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/s1-panel-bridge/internal/metrics"
)

// Telemetry 指标注册表、协议指标与 /metrics 处理器
type Telemetry struct {
	Registry *prometheus.Registry
	App      *metrics.AppMetrics
	Handler  http.Handler
}

// NewTelemetry 初始化注册表与协议指标
func NewTelemetry() *Telemetry {
	reg := metrics.NewRegistry()
	return &Telemetry{
		Registry: reg,
		App:      metrics.NewAppMetrics(reg),
		Handler:  metrics.Handler(reg),
	}
}

// WatchEngine 注册抓取时从引擎读取的面板状态
func (t *Telemetry) WatchEngine(e *Engine) {
	t.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "s1_panels",
			Help: "Panels in the loaded configuration.",
		}, func() float64 { return float64(len(e.Panels())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "s1_missing_channels",
			Help: "Channels currently reported missing by their panel.",
		}, func() float64 { return float64(len(e.Missing())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "s1_controls_enabled",
			Help: "1 when panel-originated device control is enabled.",
		}, func() float64 {
			if e.Controls() {
				return 1
			}
			return 0
		}),
	)
}
