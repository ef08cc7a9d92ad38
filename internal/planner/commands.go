package planner

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// ErrUnknownChannel 通道编号没有槽位分配
var ErrUnknownChannel = errors.New("unknown channel")

// 名称参数，灯/窗帘/空调的名称命令均使用该参数
const paramName = "08001fa5"

// cmdBuilder 按槽位顺序拼装配置命令，首个错误后忽略后续调用
type cmdBuilder struct {
	slot panel.Slot
	mac  []byte
	out  [][]byte
	err  error
}

func newBuilder(index int, mac []byte) (*cmdBuilder, error) {
	slot, ok := panel.SlotFor(index)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, index)
	}
	if len(mac) != 8 {
		return nil, fmt.Errorf("panel mac must be 8 bytes, got %d", len(mac))
	}
	return &cmdBuilder{slot: slot, mac: mac}, nil
}

// add 槽位标识 + 面板MAC + 资源标识 + 参数 + 模板体
func (b *cmdBuilder) add(i int, param, body string, args ...any) {
	if b.err != nil {
		return
	}
	p, err := hex.DecodeString(param)
	if err != nil {
		b.err = fmt.Errorf("param %s: %w", param, err)
		return
	}
	tail, err := hex.DecodeString(fmt.Sprintf(body, args...))
	if err != nil {
		b.err = fmt.Errorf("slot %d body: %w", i, err)
		return
	}
	cmd := b.slot.SlotID(i)
	cmd = append(cmd, b.mac...)
	cmd = append(cmd, b.slot.Serial[:]...)
	cmd = append(cmd, p...)
	cmd = append(cmd, tail...)
	b.out = append(b.out, cmd)
}

func pick(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}

// ChannelCommands 通道配置命令负载，按发送顺序排列
func ChannelCommands(mac []byte, ch panel.Channel) ([][]byte, error) {
	if ch == nil {
		return nil, ErrUnknownChannel
	}
	b, err := newBuilder(ch.Index(), mac)
	if err != nil {
		return nil, err
	}
	switch c := ch.(type) {
	case *panel.Light:
		lightCommands(b, c)
	case *panel.Curtain:
		curtainCommands(b, c)
	case *panel.AirConditioner:
		acCommands(b, c)
	case *panel.TemperatureSensor:
		temperatureCommands(b)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, ch.Key())
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.out, nil
}

func lightCommands(b *cmdBuilder, l *panel.Light) {
	dim := pick(l.Type == panel.LightDimmable, 4, 5)
	d := l.Number - 1
	color := l.Type == panel.LightColor

	// 开关
	b.add(0, "04010055", "260a0%x08bfaab9d8d7b4ccac08bfaab9d8d7b4ccac08bfaab9d8d7b4ccac0000000000015%x3%x00", dim, d, pick(color, 2, 3))
	// 亮度
	b.add(1, "0e010055", "170a0%x0ac1c1b6c8b0d9b7d6b1c8000000000000015%x0%x00", dim, d, pick(color, 2, 4))
	b.add(4, paramName, "140a0%x08c9e8b1b8c3fbb3c60000000000015%x0%x00", dim, d, pick(color, 0xa, 0xb))
	// 在线
	b.add(5, "080007fd", "160a0%x0ac9e8b1b8d4dacfdfc0eb0000000000015%x3%x00", dim, d, pick(color, 0xc, 0xd))

	switch l.Type {
	case panel.LightCT:
		b.add(2, "0e020055", "130a0506c9abcec2d6b5000000000000015%x0300", d)
	case panel.LightColor:
		b.add(3, "0e080055", "130a0506d1d5c9ab7879000000000000015%x0100", d)
	}
}

func curtainCommands(b *cmdBuilder, c *panel.Curtain) {
	curtain := c.Type == panel.CurtainCurtain
	kind := pick(curtain, 4, 5)
	e := c.Number + 5

	b.add(0, "0e020055", "150a0%x08b4b0c1b1d7b4ccac000000000000014%x3%x00", kind, e, pick(curtain, 2, 3))
	b.add(1, "01010055", "190a0%x0000010ab4b0c1b1b4f2bfaab0d90000000000014%x0%x00", kind, e, pick(curtain, 0xc, 0xd))
	b.add(2, "080007fd", "160a0%x0ac9e8b1b8d4dacfdfc0eb0000000000014%x3%x00", kind, e, pick(curtain, 0xc, 0xe))
	b.add(3, paramName, "140a0%x08c9e8b1b8c3fbb3c60000000000014%x0%x00", kind, e, pick(curtain, 0xa, 0xb))
	b.add(5, "00010055", "190a050000010ab4b0c1b1d4cbd0d0cab10000000000014%x3f00", e)
}

func acCommands(b *cmdBuilder, a *panel.AirConditioner) {
	if a.InternalThermostat {
		b.add(0, "0e020055", "150a0608bfd8d6c6d7b4ccac000000000000012e0000")
	} else {
		b.add(0, "0e200055", "1708060abfd5b5f7d1b9cbf5d7b4000000000000012e0000")
	}
	b.add(1, "080007fd", "1608060ac9e8b1b8d4dacfdfc0eb0000000000012e6400")
	b.add(2, paramName, "14080608c9e8b1b8c3fbb3c60000000000012e1300")
	// 模式列表 / 风速列表 / 温度范围
	b.add(3, "08001fa7", "1608060ab5b1c7b0c6a5c5e4b5c40000000000012e1000")
	b.add(4, "08001fa8", "1608060ab5b1c7b0c6a5c5e4b5c40000000000012e1100")
	b.add(5, "08001fa9", "1608060ab5b1c7b0c6a5c5e4b5c40000000000012e0100")
}

func temperatureCommands(b *cmdBuilder) {
	b.add(0, "00010055", "1908023e00640a74656d706572617475720000000000012c0600")
	b.add(1, "00020055", "1708021d00640868756d69646974790000000000012c0900")
}

// RemovalCommands 清除通道全部槽位，槽位倒序
func RemovalCommands(mac []byte, index int) ([][]byte, error) {
	b, err := newBuilder(index, mac)
	if err != nil {
		return nil, err
	}
	zeros := make([]byte, 12)
	out := make([][]byte, 0, len(b.slot.Slots))
	for i := len(b.slot.Slots) - 1; i >= 0; i-- {
		cmd := b.slot.SlotID(i)
		cmd = append(cmd, mac...)
		cmd = append(cmd, zeros...)
		out = append(out, cmd)
	}
	return out, nil
}

// SceneCommands 场景列表：先未使用场景（动作02），后已启用场景（动作01）
// 已启用场景的名称平分剩余载荷长度。
func SceneCommands(p *panel.Panel) []outbound.Command {
	var unused []byte
	var enabled []int
	fixed := 0
	for n := 1; n <= panel.SceneCount; n++ {
		s := p.Scene(n)
		if s == nil || !s.Enabled {
			unused = append(unused, panel.SceneID(n)...)
			continue
		}
		enabled = append(enabled, n)
		fixed += len(panel.SceneID(n)) + len(panel.SceneSerial(n)) + 2
	}

	var configured []byte
	if len(enabled) > 0 {
		limit := (s1.MaxPayload - fixed) / len(enabled)
		for _, n := range enabled {
			s := p.Scene(n)
			configured = append(configured, panel.SceneID(n)...)
			configured = append(configured, panel.SceneSerial(n)...)
			configured = append(configured, byte(s.Icon))
			configured = append(configured, s1.NameFieldLimit(s.Name, limit)...)
		}
	}

	var cmds []outbound.Command
	if len(unused) > 0 {
		cmds = append(cmds, outbound.Command{Category: s1.CategoryScene, Action: s1.ActionConfigure, Payload: unused})
	}
	if len(configured) > 0 {
		cmds = append(cmds, outbound.Command{Category: s1.CategoryScene, Action: s1.ActionReport, Payload: configured})
	}
	return cmds
}

// NameCommand 资源标识 + 名称参数 + 长度 + GBK 名称，以动作05发送
func NameCommand(serial []byte, name string) []byte {
	p, _ := hex.DecodeString(paramName)
	out := append([]byte(nil), serial...)
	out = append(out, p...)
	return append(out, s1.NameFieldLimit(name, s1.MaxPayload-len(out)-1)...)
}

// configure 配置命令统一为 0x71/动作02，移除为动作04
func configure(payloads [][]byte, action byte) []outbound.Command {
	out := make([]outbound.Command, len(payloads))
	for i, p := range payloads {
		out[i] = outbound.Command{Category: s1.CategoryToDevice, Action: action, Payload: p}
	}
	return out
}
