package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/devicebus"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// 可推送到面板灯光通道的状态键，color_temp 需在 color 之前匹配
var pushKeys = []string{"color_temp", "brightness", "state", "color"}

// HandleDeviceChanges 受控设备状态变化推送到链接的面板灯光通道
func (d *Dispatcher) HandleDeviceChanges(ctx context.Context, device string, changes []devicebus.Change) {
	links := d.currentLinks()
	for _, c := range changes {
		base, ep := splitStateKey(c.Key)
		if base == "" {
			continue
		}
		prm, value, ok := pushValue(base, c.Value)
		if !ok {
			continue
		}
		endpoint := device
		if ep != "" {
			endpoint = device + "/" + ep
		}
		for _, ref := range links.ChannelsFor(endpoint) {
			if ref.Index < panel.IndexLight1 || ref.Index >= panel.IndexLight1+panel.LightCount {
				continue
			}
			if d.disagrees(links, ref, device, base, c.Value) {
				d.logger.Debug("linked devices disagree, push skipped",
					zap.String("panel", ref.Panel), zap.Int("channel", ref.Index), zap.String("key", c.Key))
				continue
			}
			slot, _ := panel.SlotFor(ref.Index)
			if err := d.sendState(ctx, ref.Panel, slot.Serial[:], prm.bytes(), value); err != nil {
				d.logger.Warn("state push failed",
					zap.String("panel", ref.Panel), zap.Int("channel", ref.Index), zap.Error(err))
				continue
			}
			d.logger.Debug("state pushed to panel",
				zap.String("panel", ref.Panel), zap.Int("channel", ref.Index), zap.String("key", c.Key))
		}
	}
}

// splitStateKey state_l1 -> (state, l1)；color_mode 等无关键返回空
func splitStateKey(key string) (base, ep string) {
	for _, k := range pushKeys {
		if key == k {
			return k, ""
		}
		if rest, ok := strings.CutPrefix(key, k+"_"); ok {
			if k == "color" && (rest == "mode" || strings.HasPrefix(rest, "temp")) {
				return "", ""
			}
			return k, rest
		}
	}
	return "", ""
}

func pushValue(base string, v any) (param, []byte, bool) {
	switch base {
	case "state":
		s, ok := v.(string)
		if !ok {
			return 0, nil, false
		}
		if s == "ON" {
			return paramOnOff, s1.Uint32Bytes(1), true
		}
		return paramOnOff, s1.Uint32Bytes(0), true
	case "brightness":
		b, ok := toFloat(v)
		if !ok {
			return 0, nil, false
		}
		return paramBrightness, s1.Uint32Bytes(uint32(math.Round(b / 2.54))), true
	case "color_temp":
		ct, ok := toFloat(v)
		if !ok {
			return 0, nil, false
		}
		return paramDual, s1.Uint32Bytes(uint32(uint16(ct))), true
	case "color":
		b := colorBytes(v)
		return paramColorXY, b, b != nil
	}
	return 0, nil, false
}

// disagrees 同一通道上的其他设备对该状态持有不同的值
func (d *Dispatcher) disagrees(links *panel.Links, ref panel.ChannelRef, device, base string, value any) bool {
	for _, other := range links.Endpoints(ref) {
		dev, name := panel.ParseEndpoint(other)
		if strings.EqualFold(dev, device) {
			continue
		}
		if v, ok := d.deps.State.Value(dev, base+panel.KeySuffix(name)); ok && !reflect.DeepEqual(v, value) {
			return true
		}
	}
	return false
}

// UnknownUV 紫外线指数未知
const UnknownUV = 4096

// Weather 面板天气页数据
type Weather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WeatherCode int     `json:"weatherCode"` // WMO 天气代码
	UVIndex     float64 `json:"uvIndex"`
}

type weatherState struct {
	sent bool
	last Weather
}

// WMO 天气代码 -> 面板天气图标编码
var wmoCodes = map[int]uint32{
	0: 1, 1: 2, 2: 5, 3: 9,
	45: 30, 48: 30,
	51: 10, 53: 10, 55: 11, 56: 12, 57: 12,
	61: 13, 63: 14, 65: 15, 66: 19, 67: 20,
	71: 22, 73: 23, 75: 24, 77: 25,
	80: 16, 81: 17, 82: 18, 85: 24, 86: 25,
	95: 37, 96: 37, 99: 37,
}

const unknownWeatherCode = 39

// PanelWeatherCode WMO 代码对应的面板编码，未知为 39
func PanelWeatherCode(wmo int) uint32 {
	if c, ok := wmoCodes[wmo]; ok {
		return c
	}
	return unknownWeatherCode
}

type feelValue struct {
	param param
	value []byte
}

// PushWeather 仅向所有面板发送自上次推送以来变化的天气值
func (d *Dispatcher) PushWeather(ctx context.Context, w Weather) error {
	mac, err := panel.AddressBytes(d.coordinator)
	if err != nil {
		return fmt.Errorf("coordinator address: %w", err)
	}

	d.wmu.Lock()
	defer d.wmu.Unlock()

	prev := d.weather
	var updates []feelValue
	if code := PanelWeatherCode(w.WeatherCode); !prev.sent || PanelWeatherCode(prev.last.WeatherCode) != code {
		updates = append(updates, feelValue{paramWeather, s1.Uint32Bytes(code)})
	}
	if t := math.Round(w.Temperature); !prev.sent || math.Round(prev.last.Temperature) != t {
		updates = append(updates, feelValue{paramTemperature, s1.Float32Bytes(float32(t))})
	}
	if h := math.Round(w.Humidity); !prev.sent || math.Round(prev.last.Humidity) != h {
		updates = append(updates, feelValue{paramHumidity, s1.Float32Bytes(float32(h))})
	}
	if !prev.sent || prev.last.UVIndex != w.UVIndex {
		updates = append(updates, feelValue{paramUV, s1.Float32Bytes(float32(w.UVIndex))})
	}
	if len(updates) == 0 {
		d.logger.Debug("weather unchanged")
		return nil
	}

	panels := d.panelList()
	sort.Slice(panels, func(i, j int) bool { return panels[i].Address < panels[j].Address })
	var errs []error
	for _, p := range panels {
		for _, u := range updates {
			payload := append(append(append([]byte(nil), mac...), u.param.bytes()...), u.value...)
			if err := d.send(ctx, p.Address, s1.ActionFeel, payload); err != nil {
				errs = append(errs, fmt.Errorf("panel %s param %s: %w", p.Address, u.param, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	d.weather = weatherState{sent: true, last: w}
	d.logger.Info("weather pushed", zap.Int("panels", len(panels)), zap.Int("values", len(updates)))
	return nil
}
