package gateway

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/metrics"
	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// AckSink 配置队列执行器
type AckSink interface {
	HandleAck(a outbound.Ack) bool
}

// DeviceController 向受控设备发布控制指令与按键事件
type DeviceController interface {
	SetDevice(ctx context.Context, device string, values map[string]any) error
	PublishEvent(ctx context.Context, device, event string) error
}

// DeviceState 设备注册表
type DeviceState interface {
	outbound.Resolver
	Value(addr, key string) (any, bool)
}

// Deps 分发器的外部协作者
type Deps struct {
	Acks      AckSink
	Publisher outbound.Publisher
	Devices   DeviceController
	State     DeviceState
	Names     outbound.NameRecorder
}

// Options 分发器参数
type Options struct {
	Coordinator     string // 协调器 IEEE 地址
	ControlsEnabled bool
	Encoder         *s1.Encoder
	Logger          *zap.Logger
	Metrics         *metrics.AppMetrics
}

// Dispatcher 面板上行帧分发器
// 应答推进配置队列；状态上报与场景激活转为设备控制；数据请求立即应答。
type Dispatcher struct {
	deps        Deps
	coordinator string
	enc         *s1.Encoder
	logger      *zap.Logger
	m           *metrics.AppMetrics
	table       *s1.Table
	controls    atomic.Bool
	missing     *MissingSet

	mu     sync.RWMutex
	panels map[string]*panel.Panel
	links  *panel.Links

	wmu     sync.Mutex
	weather weatherState
}

// New 创建分发器并注册路由
func New(deps Deps, opts Options) *Dispatcher {
	if opts.Encoder == nil {
		opts.Encoder = s1.NewEncoder(s1.DefaultCounter)
	}
	d := &Dispatcher{
		deps:        deps,
		coordinator: opts.Coordinator,
		enc:         opts.Encoder,
		logger:      logging.OrNop(opts.Logger),
		m:           metrics.OrDiscard(opts.Metrics),
		table:       s1.NewTable(),
		missing:     NewMissingSet(),
		panels:      make(map[string]*panel.Panel),
		links:       panel.BuildLinks(nil),
	}
	d.controls.Store(opts.ControlsEnabled)
	d.registerRoutes()
	return d
}

func (d *Dispatcher) registerRoutes() {
	route := func(kind, cat, action byte, h s1.Handler) {
		d.table.Register(s1.Route{Kind: kind, Category: cat, Action: action}, h)
	}

	// 配置队列应答
	for _, ca := range [][2]byte{
		{s1.CategoryToDevice, s1.ActionConfigure},
		{s1.CategoryToDevice, s1.ActionRemove},
		{s1.CategoryScene, s1.ActionReport},
		{s1.CategoryScene, s1.ActionConfigure},
	} {
		route(s1.KindAck, ca[0], ca[1], d.handleQueueAck)
		route(s1.KindMultiAck, ca[0], ca[1], d.handleQueueAck)
	}
	route(s1.KindAck, s1.CategoryToDevice, s1.ActionSetState, d.handleStateAck)
	route(s1.KindAck, s1.CategoryToDevice, s1.ActionFeel, d.handleFeelAck)

	route(s1.KindReport, s1.CategoryFromDevice, s1.ActionReport, d.handleReport)
	route(s1.KindReport, s1.CategoryToDevice, s1.ActionRequest, d.handleRequest)
	route(s1.KindReport, s1.CategoryToDevice, s1.ActionNotify, d.handleNotify)
	route(s1.KindReport, s1.CategoryScene, s1.ActionActivate, d.handleSceneActivate)
}

// SetPanels 替换面板配置与设备链接索引
func (d *Dispatcher) SetPanels(panels []*panel.Panel) {
	m := make(map[string]*panel.Panel, len(panels))
	for _, p := range panels {
		m[strings.ToLower(p.Address)] = p
	}
	links := panel.BuildLinks(panels)
	d.mu.Lock()
	d.panels = m
	d.links = links
	d.mu.Unlock()
}

func (d *Dispatcher) panel(addr string) (*panel.Panel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.panels[strings.ToLower(addr)]
	return p, ok
}

func (d *Dispatcher) currentLinks() *panel.Links {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.links
}

func (d *Dispatcher) panelList() []*panel.Panel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*panel.Panel, 0, len(d.panels))
	for _, p := range d.panels {
		out = append(out, p)
	}
	return out
}

// SetControls 打开或关闭面板对设备的控制
func (d *Dispatcher) SetControls(enabled bool) {
	if d.controls.Swap(enabled) != enabled {
		d.logger.Info("panel controls switched", zap.Bool("enabled", enabled))
	}
}

// Controls 面板控制开关状态
func (d *Dispatcher) Controls() bool {
	return d.controls.Load()
}

// Missing 面板报告缺失的通道
func (d *Dispatcher) Missing() *MissingSet {
	return d.missing
}

// HandleFrame 解码并分发一个上行帧。
// 解码失败返回错误；未知帧记录日志与指标后丢弃。
func (d *Dispatcher) HandleFrame(ctx context.Context, panelAddr string, raw []byte) error {
	f, err := s1.Decode(raw)
	if err != nil {
		d.m.FrameDecodeTotal.WithLabelValues("error").Inc()
		d.logger.Warn("malformed frame dropped",
			zap.String("panel", panelAddr), logging.Hex("hex", raw), zap.Error(err))
		return err
	}
	d.m.FrameDecodeTotal.WithLabelValues("ok").Inc()
	if p, ok := d.panel(panelAddr); ok {
		panelAddr = p.Address
	}

	r := s1.RouteOf(f)
	h, ok := d.table.Lookup(r)
	if !ok {
		d.m.FrameRouteTotal.WithLabelValues("unknown").Inc()
		d.logger.Warn("unknown frame",
			zap.String("panel", panelAddr), zap.String("route", r.String()), logging.Hex("hex", raw))
		return nil
	}
	d.m.FrameRouteTotal.WithLabelValues(r.String()).Inc()
	d.logger.Debug("frame received", zap.String("panel", panelAddr), zap.Stringer("frame", f))
	return h(ctx, panelAddr, f)
}

// sendState 立即向面板写入一条状态（动作 05），不经过配置队列
func (d *Dispatcher) sendState(ctx context.Context, panelAddr string, serial, param, value []byte) error {
	payload := make([]byte, 0, len(serial)+len(param)+len(value))
	payload = append(append(append(payload, serial...), param...), value...)
	return d.send(ctx, panelAddr, s1.ActionSetState, payload)
}

func (d *Dispatcher) send(ctx context.Context, panelAddr string, action byte, payload []byte) error {
	frames, err := d.enc.Encode(action, payload, s1.CategoryToDevice)
	if err != nil {
		return err
	}
	for _, frame := range frames {
		if err := d.deps.Publisher.Publish(ctx, panelAddr, frame); err != nil {
			return err
		}
		d.m.FrameSentTotal.WithLabelValues(hexByte(s1.CategoryToDevice), hexByte(action)).Inc()
	}
	return nil
}

// setDevice 发布设备控制指令，注册表中不存在的设备跳过
func (d *Dispatcher) setDevice(ctx context.Context, kind, device string, values map[string]any) {
	if len(values) == 0 {
		return
	}
	if _, ok := d.deps.State.Resolve(device); !ok {
		d.logger.Info("device not in registry, skipped", zap.String("device", device))
		return
	}
	if err := d.deps.Devices.SetDevice(ctx, device, values); err != nil {
		d.logger.Warn("device command failed", zap.String("device", device), zap.Error(err))
		return
	}
	d.m.DeviceCommandTotal.WithLabelValues(kind).Inc()
	d.logger.Debug("device command sent", zap.String("device", device), zap.Any("values", values))
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}
