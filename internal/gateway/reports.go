package gateway

import (
	"context"
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// 空调模式在设备总线上的取值，下标为面板模式编码
var busACModes = [...]string{"heat", "cool", "auto", "fan_only", "dry"}

// 风速在设备总线上的取值，下标为面板风速编码
var busFanModes = [...]string{"low", "medium", "high", "auto"}

// handleReport 面板上的操作（状态上报）转为受控设备的控制指令
func (d *Dispatcher) handleReport(ctx context.Context, panelAddr string, f *s1.Frame) error {
	if !d.Controls() {
		d.logger.Debug("controls disabled, report ignored", zap.String("panel", panelAddr))
		return nil
	}
	a, ok := parseAttr(f.Payload)
	if !ok {
		d.logger.Warn("short state report", zap.String("panel", panelAddr), logging.Hex("hex", f.Raw))
		return nil
	}
	p, ok := d.panel(panelAddr)
	if !ok {
		d.logger.Info("report from unconfigured panel", zap.String("panel", panelAddr))
		return nil
	}
	idx, ok := panel.IndexBySerial(a.serial)
	if !ok {
		d.logger.Warn("report for unknown resource",
			zap.String("panel", panelAddr), zap.String("resource", string(a.serial)))
		return nil
	}
	ch := p.Channel(idx)
	endpoints := d.currentLinks().Endpoints(panel.ChannelRef{Panel: p.Address, Index: idx})
	if ch == nil || len(endpoints) == 0 {
		d.logger.Debug("report for unlinked channel", zap.String("panel", panelAddr), zap.Int("channel", idx))
		return nil
	}

	d.logger.Info("panel state report",
		zap.String("panel", panelAddr),
		zap.Int("channel", idx),
		zap.Stringer("param", a.param),
		logging.Hex("value", a.value))
	for _, ep := range endpoints {
		dev, name := panel.ParseEndpoint(ep)
		d.setDevice(ctx, "state", dev, translateReport(ch, a, panel.KeySuffix(name)))
	}
	return nil
}

// translateReport 面板属性值 -> 设备状态键值；不支持的参数返回 nil
func translateReport(ch panel.Channel, a attr, suffix string) map[string]any {
	v := a.value
	switch ch.(type) {
	case *panel.Light:
		if len(v) < 4 {
			return nil
		}
		switch a.param {
		case paramOnOff:
			return map[string]any{"state" + suffix: onOff(v[3] == 1)}
		case paramBrightness:
			level := math.Min(math.Max(float64(v[3])*2.54, 3), 254)
			return map[string]any{"brightness" + suffix: math.Round(level / 254 * 255)}
		case paramDual:
			return map[string]any{"color_temp" + suffix: float64(binary.BigEndian.Uint16(v[2:4]))}
		case paramColorXY:
			return map[string]any{"color" + suffix: map[string]any{
				"x": round4(float64(binary.BigEndian.Uint16(v[0:2])) / 65536),
				"y": round4(float64(binary.BigEndian.Uint16(v[2:4])) / 65536),
			}}
		}

	case *panel.Curtain:
		if len(v) < 4 {
			return nil
		}
		switch a.param {
		case paramPosition:
			return map[string]any{"position" + suffix: math.Round(float64(s1.Float32FromBytes(v)))}
		case paramDual:
			move := "STOP"
			switch v[3] {
			case 0:
				move = "OPEN"
			case 1:
				move = "CLOSE"
			}
			return map[string]any{"state" + suffix: move}
		}

	case *panel.AirConditioner:
		if len(v) < 3 || (a.param != paramACState && a.param != paramDual) {
			return nil
		}
		if v[0] < 0x10 {
			return map[string]any{"system_mode" + suffix: "off"}
		}
		mode := v[0] - 0x10
		out := map[string]any{}
		if int(mode) < len(busACModes) {
			out["system_mode"+suffix] = busACModes[mode]
		}
		if fan := v[1] >> 4; int(fan) < len(busFanModes) {
			out["fan_mode"+suffix] = busFanModes[fan]
		}
		setpoint := "occupied_heating_setpoint"
		if mode == 1 {
			setpoint = "occupied_cooling_setpoint"
		}
		out[setpoint+suffix] = float64(v[2])
		return out
	}
	return nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
