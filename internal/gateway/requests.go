package gateway

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// 设备状态未知时空调回复的设定温度
const defaultSetpoint = 26

// 窗帘运动状态：0 打开中，1 关闭中，2 停止
const curtainStopped = 2

// handleRequest 面板读取通道数据，立即以动作 05 回复
func (d *Dispatcher) handleRequest(ctx context.Context, panelAddr string, f *s1.Frame) error {
	a, ok := parseAttr(f.Payload)
	if !ok {
		d.logger.Warn("short data request", zap.String("panel", panelAddr), logging.Hex("hex", f.Raw))
		return nil
	}
	p, ok := d.panel(panelAddr)
	if !ok {
		d.logger.Info("data request from unconfigured panel", zap.String("panel", panelAddr))
		return nil
	}
	idx, ok := panel.IndexBySerial(a.serial)
	if !ok {
		d.logger.Warn("data request for unknown resource",
			zap.String("panel", panelAddr), zap.String("resource", string(a.serial)))
		return nil
	}

	value := d.answer(ctx, p, idx, a.param)
	if value == nil {
		d.logger.Debug("data request not answered",
			zap.String("panel", panelAddr), zap.Int("channel", idx), zap.Stringer("param", a.param))
		return nil
	}
	d.logger.Debug("data request answered",
		zap.String("panel", panelAddr),
		zap.Int("channel", idx),
		zap.Stringer("param", a.param),
		logging.Hex("value", value))
	return d.sendState(ctx, panelAddr, a.serial, a.param.bytes(), value)
}

func (d *Dispatcher) answer(ctx context.Context, p *panel.Panel, idx int, prm param) []byte {
	ch := p.Channel(idx)
	switch prm {
	case paramName:
		slot, _ := panel.SlotFor(idx)
		name := slot.Key
		if c, ok := panel.CommonOf(ch); ok && c.Name != "" {
			name = c.Name
		}
		if d.deps.Names != nil {
			if err := d.deps.Names.SaveName(ctx, p.Address, idx, name); err != nil {
				d.logger.Warn("record channel name failed", zap.String("panel", p.Address), zap.Int("channel", idx), zap.Error(err))
			}
		}
		return s1.NameField(name)
	case paramOnline:
		if d.online(p, idx) {
			return s1.Uint32Bytes(1)
		}
		return s1.Uint32Bytes(0)
	}

	ref := panel.ChannelRef{Panel: p.Address, Index: idx}
	switch c := ch.(type) {
	case *panel.Light:
		return d.lightValue(ref, prm)
	case *panel.Curtain:
		return d.curtainValue(ref, prm)
	case *panel.AirConditioner:
		return d.acValue(ref, c, prm)
	}
	return nil
}

// online 链接的设备中任一可达即在线；注册表未知的设备视为在线
func (d *Dispatcher) online(p *panel.Panel, idx int) bool {
	endpoints := d.currentLinks().Endpoints(panel.ChannelRef{Panel: p.Address, Index: idx})
	if len(endpoints) == 0 {
		return true
	}
	for _, ep := range endpoints {
		dev, _ := panel.ParseEndpoint(ep)
		e, ok := d.deps.State.Resolve(dev)
		if !ok || e.Reachable() {
			return true
		}
	}
	return false
}

// linkedValue 第一个报告过该状态键的链接端点的值
func (d *Dispatcher) linkedValue(ref panel.ChannelRef, key string) (any, bool) {
	for _, ep := range d.currentLinks().Endpoints(ref) {
		dev, name := panel.ParseEndpoint(ep)
		if v, ok := d.deps.State.Value(dev, key+panel.KeySuffix(name)); ok {
			return v, true
		}
	}
	return nil, false
}

func (d *Dispatcher) linkedNumber(ref panel.ChannelRef, key string) (float64, bool) {
	v, ok := d.linkedValue(ref, key)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func (d *Dispatcher) lightValue(ref panel.ChannelRef, prm param) []byte {
	switch prm {
	case paramOnOff:
		v, ok := d.linkedValue(ref, "state")
		if !ok {
			return nil
		}
		if s, _ := v.(string); s == "ON" {
			return s1.Uint32Bytes(1)
		}
		return s1.Uint32Bytes(0)
	case paramBrightness:
		b, ok := d.linkedNumber(ref, "brightness")
		if !ok {
			return nil
		}
		return s1.Uint32Bytes(uint32(math.Round(b / 2.54)))
	case paramDual:
		ct, ok := d.linkedNumber(ref, "color_temp")
		if !ok {
			return nil
		}
		return s1.Uint32Bytes(uint32(uint16(ct)))
	case paramColorXY:
		v, ok := d.linkedValue(ref, "color")
		if !ok {
			return nil
		}
		return colorBytes(v)
	}
	return nil
}

func (d *Dispatcher) curtainValue(ref panel.ChannelRef, prm param) []byte {
	switch prm {
	case paramPosition:
		pos, _ := d.linkedNumber(ref, "position")
		return s1.Float32Bytes(float32(pos))
	case paramDual:
		state := uint32(curtainStopped)
		if v, ok := d.linkedValue(ref, "moving"); ok {
			switch v {
			case "UP":
				state = 0
			case "DOWN":
				state = 1
			}
		}
		return s1.Uint32Bytes(state)
	}
	return nil
}

func (d *Dispatcher) acValue(ref panel.ChannelRef, ac *panel.AirConditioner, prm param) []byte {
	switch prm {
	case paramACState, paramDual:
		return d.acState(ref, ac)
	case paramACModes:
		out := []byte{0}
		for _, mc := range panel.ACModeCodes {
			if ac.HasMode(mc.Mode) {
				out = append(out, mc.Code)
			}
		}
		out[0] = byte(len(out) - 1)
		return out
	case paramFanModes:
		out := []byte{0}
		for _, fc := range panel.FanModeCodes {
			if ac.HasFanMode(fc.Mode) {
				out = append(out, fc.Code)
			}
		}
		out[0] = byte(len(out) - 1)
		return out
	case paramACRanges:
		var out []byte
		for _, mc := range panel.ACModeCodes {
			r, ok := ac.TemperatureRanges[mc.Mode]
			if !ac.HasMode(mc.Mode) || !ok {
				continue
			}
			out = append(out, mc.Code, byte(r.Lowest), byte(r.Highest))
		}
		return out
	}
	return nil
}

// acState 开关与模式(1) + 风速高四位(1) + 设定温度(1) + 保留(1)
func (d *Dispatcher) acState(ref panel.ChannelRef, ac *panel.AirConditioner) []byte {
	var mode, fan byte
	if len(ac.Modes) > 0 {
		mode = modeCode(ac.Modes[0])
	}
	if len(ac.FanModes) > 0 {
		fan = fanCode(ac.FanModes[0])
	}
	on := false
	if v, ok := d.linkedValue(ref, "system_mode"); ok {
		for i, m := range busACModes {
			if v == m {
				mode, on = byte(i), true
			}
		}
	}
	if v, ok := d.linkedValue(ref, "fan_mode"); ok {
		for i, m := range busFanModes {
			if v == m {
				fan = byte(i)
			}
		}
	}
	key := "occupied_heating_setpoint"
	if mode == 1 {
		key = "occupied_cooling_setpoint"
	}
	setpoint, ok := d.linkedNumber(ref, key)
	if !ok {
		setpoint = defaultSetpoint
	}

	b0 := mode
	if on {
		b0 += 0x10
	}
	return []byte{b0, fan << 4, byte(setpoint), 0x00}
}

func modeCode(m panel.ACMode) byte {
	for _, mc := range panel.ACModeCodes {
		if mc.Mode == m {
			return mc.Code
		}
	}
	return 0
}

func fanCode(m panel.FanMode) byte {
	for _, fc := range panel.FanModeCodes {
		if fc.Mode == m {
			return fc.Code
		}
	}
	return 0
}

// colorBytes {"x":0.3,"y":0.4} -> x·65535(2) + y·65535(2)
func colorBytes(v any) []byte {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	x, okX := toFloat(m["x"])
	y, okY := toFloat(m["y"])
	if !okX || !okY {
		return nil
	}
	out := s1.Uint16Bytes(uint16(math.Round(x * 65535)))
	return append(out, s1.Uint16Bytes(uint16(math.Round(y*65535)))...)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
