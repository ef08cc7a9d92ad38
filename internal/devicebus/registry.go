package devicebus

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
)

// 设备可用性
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// 不参与状态比较的键
var volatileKeys = map[string]bool{
	"linkquality":   true,
	"last_seen":     true,
	"communication": true,
}

// Change 设备状态中发生变化的一个键
type Change struct {
	Key   string
	Value any
}

// Device 总线上的一个设备
type Device struct {
	Address      string
	Name         string
	Availability string
	State        map[string]any
	LastSeen     time.Time
}

// Reachable 未上报可用性的设备视为在线
func (d *Device) Reachable() bool {
	return d.Availability != AvailabilityOffline
}

// Registry 设备注册表：地址、友好名称、可用性与最近状态
// 只有在总线上出现过（设备列表、可用性或状态）的设备才能被解析。
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	byName  map[string]string
	now     func() time.Time
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		byName:  make(map[string]string),
		now:     time.Now,
	}
}

func normalize(addr string) string {
	return strings.ToLower(addr)
}

func (r *Registry) get(addr string) *Device {
	key := normalize(addr)
	d, ok := r.devices[key]
	if !ok {
		d = &Device{Address: addr, State: make(map[string]any)}
		r.devices[key] = d
	}
	return d
}

// SetNames 登记地址到友好名称的映射（bridge/devices）
func (r *Registry) SetNames(names map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, name := range names {
		d := r.get(addr)
		if d.Name != "" && d.Name != name {
			delete(r.byName, d.Name)
		}
		d.Name = name
		r.byName[name] = d.Address
	}
}

// AddressOf 主题中的设备名还原为地址，未知名称原样返回
func (r *Registry) AddressOf(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if addr, ok := r.byName[name]; ok {
		return addr
	}
	return name
}

// TopicName 地址对应的主题段，优先使用友好名称
func (r *Registry) TopicName(addr string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.devices[normalize(addr)]; ok && d.Name != "" {
		return d.Name
	}
	return addr
}

// Resolve 查找设备，满足 outbound.Resolver
func (r *Registry) Resolve(addr string) (outbound.Endpoint, bool) {
	d, ok := r.Device(addr)
	if !ok {
		return nil, false
	}
	return d, true
}

// Device 设备快照
func (r *Registry) Device(addr string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[normalize(addr)]
	if !ok {
		return nil, false
	}
	cp := *d
	cp.State = make(map[string]any, len(d.State))
	for k, v := range d.State {
		cp.State[k] = v
	}
	return &cp, true
}

// SetAvailability 更新设备可用性
func (r *Registry) SetAvailability(addr, availability string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.get(addr)
	d.Availability = availability
	d.LastSeen = r.now()
}

// ApplyState 合并状态上报并返回变化的键（按键名排序）。
// 链路质量等键不参与比较，action 每次都视为变化。
func (r *Registry) ApplyState(addr string, state map[string]any) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.get(addr)
	d.LastSeen = r.now()

	var changes []Change
	for k, v := range state {
		if volatileKeys[k] {
			continue
		}
		old, seen := d.State[k]
		if seen && k != "action" && reflect.DeepEqual(old, v) {
			continue
		}
		d.State[k] = v
		switch v.(type) {
		case string, float64, bool, map[string]any:
			changes = append(changes, Change{Key: k, Value: v})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

// Value 设备最近一次上报的某个键
func (r *Registry) Value(addr, key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[normalize(addr)]
	if !ok {
		return nil, false
	}
	v, ok := d.State[key]
	return v, ok
}

// Addresses 所有已知设备地址
func (r *Registry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.Address)
	}
	sort.Strings(out)
	return out
}
