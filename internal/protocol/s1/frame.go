package s1

import (
	"encoding/hex"
	"fmt"
)

// S1 场景面板帧格式常量
const (
	// 帧头
	Signature = 0xAA

	// 类别
	CategoryToDevice   = 0x71 // 服务器->面板
	CategoryFromDevice = 0x72 // 面板->服务器（状态上报）
	CategoryScene      = 0x73 // 场景配置与激活

	// 帧类型
	KindSingle   = 0x44 // 单帧命令
	KindMulti    = 0x46 // 分片命令
	KindAck      = 0x24 // 单帧应答
	KindMultiAck = 0xC6 // 分片应答
	KindReport   = 0x84 // 属性上报

	// 动作
	ActionReport    = 0x01 // 状态上报 / 场景配置
	ActionConfigure = 0x02 // 槽位配置 / 未使用场景
	ActionActivate  = 0x03 // 场景激活
	ActionRemove    = 0x04 // 槽位移除
	ActionSetState  = 0x05 // 写状态
	ActionRequest   = 0x06 // 面板请求数据
	ActionNotify    = 0x07 // 配置通知
	ActionFeel      = 0x08 // 天气/感知页

	// 数据类型（八位字节串）
	DataTypeOctetString = 0x41

	// 默认计数器
	DefaultCounter = 0x6d

	// 分片阈值
	MaxSinglePayload = 55 // 0x37
	FirstPartPayload = 53
	NextPartPayload  = 56

	// 头部长度
	singleHeaderLen = 6 // AA cat size kind counter integrity
	multiHeaderLen  = 8 // AA cat size kind counter total part integrity
	bodyHeaderLen   = 3 // action dataType payloadLen
)

// SlotIDLen 配置命令中槽位标识（前缀4字节+槽位1字节）的长度
const SlotIDLen = 5

// Frame 表示一个线路帧
type Frame struct {
	Category    byte
	Kind        byte
	Size        byte
	Counter     byte
	Integrity   byte
	TotalParts  byte // 仅分片帧
	PartNumber  byte // 仅分片帧，从1开始
	Action      byte // 分片续帧无动作字节
	DataType    byte
	PayloadSize byte // 首片为整个逻辑载荷长度
	Payload     []byte
	Raw         []byte
}

// IsMultiPart 是否为分片帧（命令或应答）
func (f *Frame) IsMultiPart() bool {
	return isMultiKind(f.Kind)
}

// IsContinuation 是否为分片续帧（不含动作头）
func (f *Frame) IsContinuation() bool {
	return f.Kind == KindMulti && f.PartNumber > 1
}

// IsFinalPart 单帧或分片的最后一片
func (f *Frame) IsFinalPart() bool {
	if !f.IsMultiPart() {
		return true
	}
	return f.PartNumber == f.TotalParts
}

// SlotID 配置命令首帧载荷的前5字节
func (f *Frame) SlotID() []byte {
	if f.IsContinuation() || len(f.Payload) < SlotIDLen {
		return nil
	}
	return f.Payload[:SlotIDLen]
}

// Hex 原始帧的十六进制表示
func (f *Frame) Hex() string {
	return hex.EncodeToString(f.Raw)
}

func (f *Frame) String() string {
	if f.IsMultiPart() {
		return fmt.Sprintf("cat=%02x kind=%02x part=%d/%d action=%02x len=%d", f.Category, f.Kind, f.PartNumber, f.TotalParts, f.Action, len(f.Payload))
	}
	return fmt.Sprintf("cat=%02x kind=%02x action=%02x len=%d", f.Category, f.Kind, f.Action, len(f.Payload))
}

func isMultiKind(kind byte) bool {
	return kind == KindMulti || kind == KindMultiAck
}
