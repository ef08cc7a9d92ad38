package panel

import "fmt"

// LightType 灯光类型
type LightType string

const (
	LightCT       LightType = "ct"
	LightColor    LightType = "color"
	LightDimmable LightType = "dimmable"
	LightOnOff    LightType = "onoff"
)

// CurtainType 窗帘类型
type CurtainType string

const (
	CurtainCurtain CurtainType = "curtain"
	CurtainRoller  CurtainType = "roller"
)

// ACMode 空调模式
type ACMode string

const (
	ModeCool ACMode = "cool"
	ModeHeat ACMode = "heat"
	ModeDry  ACMode = "dry"
	ModeFan  ACMode = "fan"
	ModeAuto ACMode = "auto"
)

// FanMode 风速
type FanMode string

const (
	FanLow    FanMode = "low"
	FanMedium FanMode = "medium"
	FanHigh   FanMode = "high"
	FanAuto   FanMode = "auto"
)

// 面板协议中的模式编码顺序
var (
	ACModeCodes = []struct {
		Mode ACMode
		Code byte
	}{{ModeHeat, 0x00}, {ModeCool, 0x01}, {ModeAuto, 0x02}, {ModeFan, 0x03}, {ModeDry, 0x04}}

	FanModeCodes = []struct {
		Mode FanMode
		Code byte
	}{{FanLow, 0x00}, {FanMedium, 0x01}, {FanHigh, 0x02}, {FanAuto, 0x03}}
)

// TemperatureRange 某模式下允许的设定温度范围
type TemperatureRange struct {
	Lowest  int `yaml:"lowest" json:"lowest"`
	Highest int `yaml:"highest" json:"highest"`
}

// Common 受控设备通道的公共字段
type Common struct {
	Enabled   bool
	Name      string
	Endpoints []string
}

// Channel 面板通道的标签联合：*Light | *Curtain | *AirConditioner | *TemperatureSensor | *Scene
type Channel interface {
	// Key 配置键，如 light_1、ac、scene_3
	Key() string
	// Index 通道编号（灯0-4，窗帘5-7，空调8，温度传感器9，场景999）
	Index() int
	IsEnabled() bool
	channel()
}

// Light 灯光通道
type Light struct {
	Common
	Number int // 1-5
	Type   LightType
}

// Curtain 窗帘通道
type Curtain struct {
	Common
	Number int // 1-3
	Type   CurtainType
}

// AirConditioner 空调通道
type AirConditioner struct {
	Common
	InternalThermostat bool
	Modes              []ACMode
	FanModes           []FanMode
	TemperatureRanges  map[ACMode]TemperatureRange
}

// TemperatureSensor 温湿度传感器通道
type TemperatureSensor struct {
	Common
}

// Scene 场景按钮
type Scene struct {
	Enabled bool
	Name    string
	Number  int // 1-6
	Icon    int
	// Execute 设备地址(可带 /端点) -> 动作 -> 值
	Execute map[string]map[string]string
}

func (l *Light) Key() string             { return fmt.Sprintf("light_%d", l.Number) }
func (c *Curtain) Key() string           { return fmt.Sprintf("curtain_%d", c.Number) }
func (a *AirConditioner) Key() string    { return "ac" }
func (s *TemperatureSensor) Key() string { return "temperature_sensor" }
func (s *Scene) Key() string             { return fmt.Sprintf("scene_%d", s.Number) }

func (l *Light) Index() int             { return l.Number - 1 }
func (c *Curtain) Index() int           { return IndexCurtain1 + c.Number - 1 }
func (a *AirConditioner) Index() int    { return IndexAC }
func (s *TemperatureSensor) Index() int { return IndexTemperatureSensor }
func (s *Scene) Index() int             { return IndexScenes }

func (c Common) IsEnabled() bool { return c.Enabled }
func (s *Scene) IsEnabled() bool { return s.Enabled }

func (*Light) channel()             {}
func (*Curtain) channel()           {}
func (*AirConditioner) channel()    {}
func (*TemperatureSensor) channel() {}
func (*Scene) channel()             {}

// HasMode 是否支持该模式
func (a *AirConditioner) HasMode(m ACMode) bool {
	for _, v := range a.Modes {
		if v == m {
			return true
		}
	}
	return false
}

// HasFanMode 是否支持该风速
func (a *AirConditioner) HasFanMode(m FanMode) bool {
	for _, v := range a.FanModes {
		if v == m {
			return true
		}
	}
	return false
}
