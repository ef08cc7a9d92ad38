package health

import "sync/atomic"

// Readiness 启动阶段的就绪状态：指纹存储已打开、设备列表已收到
type Readiness struct {
	storeReady atomic.Bool
	busReady   atomic.Bool
}

// New 创建就绪状态，初始未就绪
func New() *Readiness { return &Readiness{} }

// SetStoreReady 指纹存储就绪
func (r *Readiness) SetStoreReady(v bool) { r.storeReady.Store(v) }

// SetBusReady 设备总线就绪
func (r *Readiness) SetBusReady(v bool) { r.busReady.Store(v) }

// Ready 各阶段均已就绪
func (r *Readiness) Ready() bool {
	return r.storeReady.Load() && r.busReady.Load()
}
