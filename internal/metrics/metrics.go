package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	FrameDecodeTotal   *prometheus.CounterVec // labels: result=ok|error
	FrameRouteTotal    *prometheus.CounterVec // labels: route
	FrameSentTotal     *prometheus.CounterVec // labels: category, action
	JobResultTotal     *prometheus.CounterVec // labels: result=completed|abandoned|unreachable
	RetryTotal         prometheus.Counter
	PendingJobs        prometheus.Gauge
	MissingChannels    *prometheus.CounterVec // labels: panel
	DeviceCommandTotal *prometheus.CounterVec // labels: kind=state|scene|event
	NameUpdateTotal    prometheus.Counter
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FrameDecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s1_frame_decode_total",
			Help: "Inbound panel frame decode attempts.",
		}, []string{"result"}),
		FrameRouteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s1_frame_route_total",
			Help: "Decoded panel frames by dispatch route.",
		}, []string{"route"}),
		FrameSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s1_frame_sent_total",
			Help: "Frames published to panels.",
		}, []string{"category", "action"}),
		JobResultTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s1_job_result_total",
			Help: "Configuration jobs finished by result.",
		}, []string{"result"}),
		RetryTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "s1_job_retry_total",
			Help: "Configuration frames resent after an ACK timeout.",
		}),
		PendingJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "s1_pending_jobs",
			Help: "Configuration jobs waiting in the queue, including the current one.",
		}),
		MissingChannels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s1_missing_channel_total",
			Help: "State writes rejected because the channel is not configured on the panel.",
		}, []string{"panel"}),
		DeviceCommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s1_device_command_total",
			Help: "Device-control messages published on behalf of panels.",
		}, []string{"kind"}),
		NameUpdateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "s1_name_update_total",
			Help: "Paced channel name updates sent.",
		}),
	}
	reg.MustRegister(m.FrameDecodeTotal, m.FrameRouteTotal, m.FrameSentTotal, m.JobResultTotal,
		m.RetryTotal, m.PendingJobs, m.MissingChannels, m.DeviceCommandTotal, m.NameUpdateTotal)
	return m
}

// OrDiscard 未注入指标时注册到一个私有 Registry，调用方无需判空
func OrDiscard(m *AppMetrics) *AppMetrics {
	if m != nil {
		return m
	}
	return NewAppMetrics(prometheus.NewRegistry())
}
