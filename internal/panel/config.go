package panel

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig 面板配置校验失败
var ErrInvalidConfig = errors.New("invalid panel config")

type commonSpec struct {
	Enabled   bool     `yaml:"enabled"`
	Name      string   `yaml:"name"`
	Endpoints []string `yaml:"endpoints"`
}

type lightSpec struct {
	commonSpec `yaml:",inline"`
	Type       string `yaml:"type"`
}

type curtainSpec struct {
	commonSpec `yaml:",inline"`
	Type       string `yaml:"type"`
}

type acSpec struct {
	commonSpec         `yaml:",inline"`
	InternalThermostat bool                        `yaml:"internal_thermostat"`
	Modes              []string                    `yaml:"modes"`
	FanModes           []string                    `yaml:"fan_modes"`
	TemperatureRanges  map[string]TemperatureRange `yaml:"temperature_ranges"`
}

type sceneSpec struct {
	Enabled bool                         `yaml:"enabled"`
	Name    string                       `yaml:"name"`
	Icon    int                          `yaml:"icon"`
	Execute map[string]map[string]string `yaml:"execute"`
}

type panelSpec struct {
	Light1            *lightSpec   `yaml:"light_1"`
	Light2            *lightSpec   `yaml:"light_2"`
	Light3            *lightSpec   `yaml:"light_3"`
	Light4            *lightSpec   `yaml:"light_4"`
	Light5            *lightSpec   `yaml:"light_5"`
	Curtain1          *curtainSpec `yaml:"curtain_1"`
	Curtain2          *curtainSpec `yaml:"curtain_2"`
	Curtain3          *curtainSpec `yaml:"curtain_3"`
	AC                *acSpec      `yaml:"ac"`
	TemperatureSensor *commonSpec  `yaml:"temperature_sensor"`
	Scene1            *sceneSpec   `yaml:"scene_1"`
	Scene2            *sceneSpec   `yaml:"scene_2"`
	Scene3            *sceneSpec   `yaml:"scene_3"`
	Scene4            *sceneSpec   `yaml:"scene_4"`
	Scene5            *sceneSpec   `yaml:"scene_5"`
	Scene6            *sceneSpec   `yaml:"scene_6"`
}

type fileSpec struct {
	Panels map[string]panelSpec `yaml:"panels"`
}

// LoadFile 从 YAML 文件加载面板配置
// 设备地址与场景执行键区分大小写，因此不经过 viper。
func LoadFile(path string) ([]*Panel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read panels file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 面板配置，按地址排序返回
func Parse(data []byte) ([]*Panel, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	addrs := make([]string, 0, len(spec.Panels))
	for addr := range spec.Panels {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	panels := make([]*Panel, 0, len(addrs))
	for _, addr := range addrs {
		p, err := spec.Panels[addr].build(addr)
		if err != nil {
			return nil, err
		}
		panels = append(panels, p)
	}
	return panels, nil
}

func (c *commonSpec) common() Common {
	return Common{Enabled: c.Enabled, Name: c.Name, Endpoints: append([]string(nil), c.Endpoints...)}
}

func (s panelSpec) build(addr string) (*Panel, error) {
	if _, err := AddressBytes(addr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	p := &Panel{Address: addr}

	for i, ls := range []*lightSpec{s.Light1, s.Light2, s.Light3, s.Light4, s.Light5} {
		if ls == nil {
			continue
		}
		t := LightType(ls.Type)
		switch t {
		case "":
			t = LightOnOff
		case LightCT, LightColor, LightDimmable, LightOnOff:
		default:
			return nil, fmt.Errorf("%w: %s light_%d: unknown type %q", ErrInvalidConfig, addr, i+1, ls.Type)
		}
		p.Lights[i] = &Light{Common: ls.common(), Number: i + 1, Type: t}
	}

	for i, cs := range []*curtainSpec{s.Curtain1, s.Curtain2, s.Curtain3} {
		if cs == nil {
			continue
		}
		t := CurtainType(cs.Type)
		switch t {
		case "":
			t = CurtainCurtain
		case CurtainCurtain, CurtainRoller:
		default:
			return nil, fmt.Errorf("%w: %s curtain_%d: unknown type %q", ErrInvalidConfig, addr, i+1, cs.Type)
		}
		p.Curtains[i] = &Curtain{Common: cs.common(), Number: i + 1, Type: t}
	}

	if s.AC != nil {
		ac, err := s.AC.build()
		if err != nil {
			return nil, fmt.Errorf("%w: %s ac: %v", ErrInvalidConfig, addr, err)
		}
		p.AC = ac
	}

	if s.TemperatureSensor != nil {
		p.TemperatureSensor = &TemperatureSensor{Common: s.TemperatureSensor.common()}
	}

	for i, ss := range []*sceneSpec{s.Scene1, s.Scene2, s.Scene3, s.Scene4, s.Scene5, s.Scene6} {
		if ss == nil {
			continue
		}
		if ss.Icon < 0 || ss.Icon > 0xFF {
			return nil, fmt.Errorf("%w: %s scene_%d: icon out of range", ErrInvalidConfig, addr, i+1)
		}
		p.Scenes[i] = &Scene{Enabled: ss.Enabled, Name: ss.Name, Number: i + 1, Icon: ss.Icon, Execute: ss.Execute}
	}
	return p, nil
}

func (s *acSpec) build() (*AirConditioner, error) {
	ac := &AirConditioner{
		Common:             s.common(),
		InternalThermostat: s.InternalThermostat,
		TemperatureRanges:  make(map[ACMode]TemperatureRange, len(s.TemperatureRanges)),
	}
	for _, m := range s.Modes {
		switch mode := ACMode(m); mode {
		case ModeCool, ModeHeat, ModeDry, ModeFan, ModeAuto:
			ac.Modes = append(ac.Modes, mode)
		default:
			return nil, fmt.Errorf("unknown mode %q", m)
		}
	}
	for _, m := range s.FanModes {
		switch fan := FanMode(m); fan {
		case FanLow, FanMedium, FanHigh, FanAuto:
			ac.FanModes = append(ac.FanModes, fan)
		default:
			return nil, fmt.Errorf("unknown fan mode %q", m)
		}
	}
	for m, r := range s.TemperatureRanges {
		if r.Lowest < 0 || r.Highest > 0xFF || r.Lowest > r.Highest {
			return nil, fmt.Errorf("bad temperature range for %s", m)
		}
		ac.TemperatureRanges[ACMode(m)] = r
	}
	return ac, nil
}
