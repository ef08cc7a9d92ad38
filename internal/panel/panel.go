package panel

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Panel 一块场景面板的通道配置，缺省的通道视为未启用
type Panel struct {
	Address           string
	Lights            [LightCount]*Light
	Curtains          [CurtainCount]*Curtain
	AC                *AirConditioner
	TemperatureSensor *TemperatureSensor
	Scenes            [SceneCount]*Scene
}

// MAC 面板 IEEE 地址去掉 0x 后的8字节
func (p *Panel) MAC() ([]byte, error) {
	return AddressBytes(p.Address)
}

// AddressBytes 解析 0x 开头的16位十六进制 IEEE 地址
func AddressBytes(addr string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(addr), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid ieee address %q: %w", addr, err)
	}
	if len(b) != 8 {
		return nil, fmt.Errorf("invalid ieee address %q: want 8 bytes, got %d", addr, len(b))
	}
	return b, nil
}

// Channel 通道编号对应的配置，不存在时返回 nil
func (p *Panel) Channel(index int) Channel {
	switch {
	case index >= IndexLight1 && index < IndexLight1+LightCount:
		if l := p.Lights[index-IndexLight1]; l != nil {
			return l
		}
	case index >= IndexCurtain1 && index < IndexCurtain1+CurtainCount:
		if c := p.Curtains[index-IndexCurtain1]; c != nil {
			return c
		}
	case index == IndexAC:
		if p.AC != nil {
			return p.AC
		}
	case index == IndexTemperatureSensor:
		if p.TemperatureSensor != nil {
			return p.TemperatureSensor
		}
	}
	return nil
}

// CommonOf 受控设备通道的公共字段，场景返回 false
func CommonOf(ch Channel) (Common, bool) {
	switch c := ch.(type) {
	case *Light:
		return c.Common, true
	case *Curtain:
		return c.Common, true
	case *AirConditioner:
		return c.Common, true
	case *TemperatureSensor:
		return c.Common, true
	}
	return Common{}, false
}

// Scene 场景 n(1-6)，不存在时返回 nil
func (p *Panel) Scene(n int) *Scene {
	if n < 1 || n > SceneCount {
		return nil
	}
	return p.Scenes[n-1]
}

// EnabledScenes 已启用场景数量
func (p *Panel) EnabledScenes() int {
	n := 0
	for _, s := range p.Scenes {
		if s != nil && s.Enabled {
			n++
		}
	}
	return n
}
