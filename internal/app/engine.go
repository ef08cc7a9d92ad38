package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/devicebus"
	"github.com/taoyao-code/s1-panel-bridge/internal/gateway"
	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/planner"
	"github.com/taoyao-code/s1-panel-bridge/internal/storage"
)

// ErrNoPanelsFile 未配置面板文件时无法重新加载
var ErrNoPanelsFile = errors.New("panels file not configured")

// PanelWatcher 登记面板地址，使其上行帧被转交引擎
type PanelWatcher interface {
	WatchPanels(addrs ...string)
}

// EngineDeps 引擎的组成部分
type EngineDeps struct {
	Planner    *planner.Planner
	Executor   *outbound.Executor
	Pacer      *outbound.Pacer
	Dispatcher *gateway.Dispatcher
	Store      *storage.FingerprintStore
	Watcher    PanelWatcher
	PanelsFile string
	Logger     *zap.Logger
}

// Engine 面板协议引擎入口：配置规划与执行、上行帧处理、天气推送
type Engine struct {
	EngineDeps
	logger *zap.Logger

	mu     sync.RWMutex
	panels []*panel.Panel
}

// NewEngine 组装引擎
func NewEngine(deps EngineDeps) *Engine {
	return &Engine{EngineDeps: deps, logger: logging.OrNop(deps.Logger)}
}

// SetPanels 替换面板配置
func (e *Engine) SetPanels(panels []*panel.Panel) {
	e.mu.Lock()
	e.panels = panels
	e.mu.Unlock()

	e.Dispatcher.SetPanels(panels)
	if e.Watcher != nil {
		addrs := make([]string, len(panels))
		for i, p := range panels {
			addrs[i] = p.Address
		}
		e.Watcher.WatchPanels(addrs...)
	}
}

// Panels 当前面板配置
func (e *Engine) Panels() []*panel.Panel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.panels
}

// PlanAndExecuteConfiguration 比较指纹生成配置任务并交给执行器；名称更新交给节拍器
func (e *Engine) PlanAndExecuteConfiguration(ctx context.Context, panels []*panel.Panel) (*planner.Plan, error) {
	plan, err := e.Planner.Plan(ctx, panels)
	if err != nil {
		return nil, err
	}
	for _, p := range plan.Panels {
		e.Dispatcher.Missing().Clear(p)
	}
	e.Executor.Schedule(plan.Panels, plan.Jobs)
	if len(plan.Names) > 0 && !e.Pacer.Submit(plan.Names...) {
		e.logger.Warn("some name updates were dropped", zap.Int("names", len(plan.Names)))
	}
	return plan, nil
}

// Configure 对当前面板配置执行一次规划
func (e *Engine) Configure(ctx context.Context) (*planner.Plan, error) {
	return e.PlanAndExecuteConfiguration(ctx, e.Panels())
}

// Reload 重新读取面板文件并规划
func (e *Engine) Reload(ctx context.Context) (*planner.Plan, error) {
	if e.PanelsFile == "" {
		return nil, ErrNoPanelsFile
	}
	panels, err := panel.LoadFile(e.PanelsFile)
	if err != nil {
		return nil, err
	}
	e.SetPanels(panels)
	e.logger.Info("panels reloaded", zap.String("file", e.PanelsFile), zap.Int("panels", len(panels)))
	return e.PlanAndExecuteConfiguration(ctx, panels)
}

// HandleInboundFrame 处理面板上行帧
func (e *Engine) HandleInboundFrame(ctx context.Context, panelAddr string, raw []byte) error {
	return e.Dispatcher.HandleFrame(ctx, panelAddr, raw)
}

// HandleDeviceState 受控设备状态变化
func (e *Engine) HandleDeviceState(ctx context.Context, device string, changes []devicebus.Change) {
	e.Dispatcher.HandleDeviceChanges(ctx, device, changes)
}

// PushWeather 推送天气页数据
func (e *Engine) PushWeather(ctx context.Context, w gateway.Weather) error {
	return e.Dispatcher.PushWeather(ctx, w)
}

// Snapshot 配置队列状态
func (e *Engine) Snapshot() outbound.Snapshot {
	return e.Executor.Snapshot()
}

// Fingerprints 面板已保存的指纹与名称，地址大小写不敏感
func (e *Engine) Fingerprints(ctx context.Context, panelAddr string) (*storage.Record, error) {
	return e.Store.Load(ctx, e.canonical(panelAddr))
}

func (e *Engine) canonical(addr string) string {
	for _, p := range e.Panels() {
		if strings.EqualFold(p.Address, addr) {
			return p.Address
		}
	}
	return addr
}

// Missing 面板报告缺失的通道
func (e *Engine) Missing() []gateway.MissingChannel {
	return e.Dispatcher.Missing().List()
}

// SetControls 面板控制开关
func (e *Engine) SetControls(enabled bool) {
	e.Dispatcher.SetControls(enabled)
}

// Controls 面板控制开关状态
func (e *Engine) Controls() bool {
	return e.Dispatcher.Controls()
}

// Stop 停止重发定时器
func (e *Engine) Stop() {
	e.Executor.Stop()
}
