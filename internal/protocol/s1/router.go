package s1

import (
	"context"
	"fmt"
	"sync"
)

// Route 帧路由键：帧类型 + 类别 + 动作
type Route struct {
	Kind     byte
	Category byte
	Action   byte
}

// RouteOf 帧的路由键
func RouteOf(f *Frame) Route {
	return Route{Kind: f.Kind, Category: f.Category, Action: f.Action}
}

func (r Route) String() string {
	return fmt.Sprintf("%02x/%02x/%02x", r.Kind, r.Category, r.Action)
}

// Handler 处理一个已解码的上行帧
type Handler func(ctx context.Context, panel string, f *Frame) error

// Table 上行帧路由表
type Table struct {
	mu sync.RWMutex
	m  map[Route]Handler
}

func NewTable() *Table { return &Table{m: make(map[Route]Handler)} }

func (t *Table) Register(r Route, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[r] = h
}

// Lookup 未注册时返回 false
func (t *Table) Lookup(r Route) (Handler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.m[r]
	return h, ok
}
