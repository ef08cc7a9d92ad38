package gateway

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// 场景可触发的设备按键动作
var buttonActions = map[string]string{
	"single":  "single",
	"double":  "double",
	"long":    "hold",
	"press":   "press",
	"release": "release",
}

// handleSceneActivate 执行场景配置的设备动作，并发布面板按键事件
func (d *Dispatcher) handleSceneActivate(ctx context.Context, panelAddr string, f *s1.Frame) error {
	if !d.Controls() {
		d.logger.Debug("controls disabled, scene ignored", zap.String("panel", panelAddr))
		return nil
	}
	if len(f.Raw) == 0 {
		return nil
	}
	n := int(f.Raw[len(f.Raw)-1] & 0x0f)
	p, ok := d.panel(panelAddr)
	if !ok {
		d.logger.Info("scene from unconfigured panel", zap.String("panel", panelAddr), zap.Int("scene", n))
		return nil
	}
	sc := p.Scene(n)
	if sc == nil || !sc.Enabled {
		d.logger.Warn("activation of unconfigured scene",
			zap.String("panel", panelAddr), zap.Int("scene", n), logging.Hex("hex", f.Raw))
		return nil
	}

	d.logger.Info("scene activated", zap.String("panel", panelAddr), zap.Int("scene", n), zap.String("name", sc.Name))
	targets := make([]string, 0, len(sc.Execute))
	for t := range sc.Execute {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, target := range targets {
		dev, ep := panel.ParseEndpoint(target)
		values, event := sceneValues(sc.Execute[target], panel.KeySuffix(ep))
		d.setDevice(ctx, "scene", dev, values)
		if event != "" {
			d.emit(ctx, dev, event)
		}
	}
	d.emit(ctx, panelAddr, fmt.Sprintf("scene_%d", n))
	return nil
}

func (d *Dispatcher) emit(ctx context.Context, device, event string) {
	if err := d.deps.Devices.PublishEvent(ctx, device, event); err != nil {
		d.logger.Warn("publish event failed", zap.String("device", device), zap.String("event", event), zap.Error(err))
		return
	}
	d.m.DeviceCommandTotal.WithLabelValues("event").Inc()
}

// sceneValues 场景动作 -> 设备状态键值与按键事件
func sceneValues(actions map[string]string, suffix string) (map[string]any, string) {
	out := make(map[string]any)
	var event string
	num := func(key string) (float64, bool) {
		s, ok := actions[key]
		if !ok {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v, err == nil
	}

	if s, ok := actions["on"]; ok {
		on, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			on = strings.EqualFold(s, "on")
		}
		out["state"+suffix] = onOff(on)
	}
	if v, ok := num("brightness"); ok {
		out["brightness"+suffix] = v
	}
	if v, ok := num("colorTemperature"); ok {
		out["color_temp"+suffix] = v
	}
	x, okX := num("colorX")
	y, okY := num("colorY")
	if okX && okY {
		// 大于 1 的值按 16 位定点处理
		if x > 1 || y > 1 {
			x, y = x/65535, y/65535
		}
		out["color"+suffix] = map[string]any{"x": round4(x), "y": round4(y)}
	} else {
		h, okH := num("hue")
		s, okS := num("saturation")
		if okH && okS {
			out["color"+suffix] = map[string]any{"hue": h, "saturation": s}
		}
	}
	if s, ok := actions["buttonAction"]; ok {
		if e := buttonActions[strings.ToLower(strings.TrimSpace(s))]; e != "" {
			event = e + suffix
		}
	}
	return out, event
}
