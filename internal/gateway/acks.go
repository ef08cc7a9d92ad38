package gateway

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// 状态写应答的结果码
const (
	stateAckOK      = 0x00
	stateAckMissing = 0x01
)

func (d *Dispatcher) handleQueueAck(_ context.Context, panelAddr string, f *s1.Frame) error {
	a := outbound.Ack{Panel: panelAddr, Category: f.Category, Action: f.Action}
	switch {
	case f.Kind == s1.KindMultiAck:
		a.Multi = true
		a.Part = f.PartNumber
		a.Total = f.TotalParts
	case f.Category == s1.CategoryToDevice && f.Action == s1.ActionConfigure && len(f.Payload) >= 1+s1.SlotIDLen:
		a.SlotID = f.Payload[1 : 1+s1.SlotIDLen]
	}
	d.deps.Acks.HandleAck(a)
	return nil
}

func (d *Dispatcher) handleStateAck(_ context.Context, panelAddr string, f *s1.Frame) error {
	if len(f.Payload) < 1 {
		d.logger.Warn("short state ack", zap.String("panel", panelAddr), logging.Hex("hex", f.Raw))
		return nil
	}
	var serial, code []byte
	if len(f.Payload) >= 9 {
		serial = f.Payload[1:9]
	}
	if len(f.Payload) >= 13 {
		code = f.Payload[9:13]
	}

	switch f.Payload[0] {
	case stateAckMissing:
		idx, ok := panel.IndexBySerial(serial)
		if !ok {
			idx = -1
		}
		d.missing.Add(panelAddr, idx, strings.TrimRight(string(serial), "\x00"))
		d.m.MissingChannels.WithLabelValues(panelAddr).Inc()
		d.logger.Warn("channel missing on panel",
			zap.String("panel", panelAddr),
			zap.String("resource", string(serial)),
			logging.Hex("param", code))
	case stateAckOK:
		d.logger.Debug("state write acknowledged",
			zap.String("panel", panelAddr),
			zap.String("resource", string(serial)),
			logging.Hex("param", code))
	default:
		d.logger.Warn("state write rejected",
			zap.String("panel", panelAddr),
			zap.Uint8("status", f.Payload[0]),
			logging.Hex("hex", f.Raw))
	}
	return nil
}

func (d *Dispatcher) handleFeelAck(_ context.Context, panelAddr string, f *s1.Frame) error {
	d.logger.Debug("feel page acknowledged", zap.String("panel", panelAddr), logging.Hex("hex", f.Raw))
	return nil
}

func (d *Dispatcher) handleNotify(_ context.Context, panelAddr string, f *s1.Frame) error {
	d.logger.Info("panel configuration notify", zap.String("panel", panelAddr), logging.Hex("payload", f.Payload))
	return nil
}

// MissingChannel 面板拒绝写入状态的通道
type MissingChannel struct {
	Panel    string    `json:"panel"`
	Index    int       `json:"index"`
	Resource string    `json:"resource"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

type missingKey struct {
	panel    string
	resource string
}

// MissingSet 缺失通道集合，只记录不修复
type MissingSet struct {
	mu  sync.Mutex
	m   map[missingKey]*MissingChannel
	now func() time.Time
}

func NewMissingSet() *MissingSet {
	return &MissingSet{m: make(map[missingKey]*MissingChannel), now: time.Now}
}

// Add 记录一次缺失报告
func (s *MissingSet) Add(panelAddr string, index int, resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := missingKey{panel: strings.ToLower(panelAddr), resource: resource}
	e, ok := s.m[k]
	if !ok {
		e = &MissingChannel{Panel: panelAddr, Index: index, Resource: resource}
		s.m[k] = e
	}
	e.Count++
	e.LastSeen = s.now()
}

// Clear 清除面板的全部记录，重新下发配置前调用
func (s *MissingSet) Clear(panelAddr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := strings.ToLower(panelAddr)
	for k := range s.m {
		if k.panel == p {
			delete(s.m, k)
		}
	}
}

// List 按面板、通道排序的快照
func (s *MissingSet) List() []MissingChannel {
	s.mu.Lock()
	out := make([]MissingChannel, 0, len(s.m))
	for _, e := range s.m {
		out = append(out, *e)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Panel != out[j].Panel {
			return out[i].Panel < out[j].Panel
		}
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Resource < out[j].Resource
	})
	return out
}
