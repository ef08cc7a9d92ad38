package panel

import (
	"bytes"
	"fmt"
	"strings"
)

// 通道编号
const (
	IndexLight1            = 0
	IndexCurtain1          = 5
	IndexAC                = 8
	IndexTemperatureSensor = 9
	IndexScenes            = 999

	LightCount   = 5
	CurtainCount = 3
	SceneCount   = 6
)

// Slot 面板通道在设备上的槽位分配（设计时固定，互不重叠）
type Slot struct {
	Key    string
	Prefix [4]byte
	Slots  []byte
	// Serial 面板内部识别该通道的8字节资源标识（ASCII）
	Serial [8]byte
}

// SlotID 槽位前缀 + 槽位偏移
func (s Slot) SlotID(i int) []byte {
	return append(append([]byte(nil), s.Prefix[:]...), s.Slots[i])
}

// Resource 资源标识的 ASCII 形式，如 lights/1、curtain2、air_cond
func (s Slot) Resource() string {
	return string(s.Serial[:])
}

var (
	prefixTemperature = [4]byte{0x60, 0x4a, 0x55, 0xb7}
	prefixAC          = [4]byte{0x60, 0x44, 0xf7, 0x6a}
	prefixCurtain     = [4]byte{0x60, 0x4f, 0x65, 0x1f}
	prefixLight       = [4]byte{0x60, 0x4f, 0x74, 0x48}
)

func serial(s string) [8]byte {
	var b [8]byte
	copy(b[:], s)
	return b
}

func slotRange(from byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = from + byte(i)
	}
	return out
}

// slotTable 下标即通道编号 0-9
var slotTable = [10]Slot{
	{Key: "light_1", Prefix: prefixLight, Slots: slotRange(0x1b, 6), Serial: serial("lights/1")},
	{Key: "light_2", Prefix: prefixLight, Slots: slotRange(0x21, 6), Serial: serial("lights/2")},
	{Key: "light_3", Prefix: prefixLight, Slots: slotRange(0x27, 6), Serial: serial("lights/3")},
	{Key: "light_4", Prefix: prefixLight, Slots: slotRange(0x2d, 6), Serial: serial("lights/4")},
	{Key: "light_5", Prefix: prefixLight, Slots: slotRange(0x33, 6), Serial: serial("lights/5")},
	{Key: "curtain_1", Prefix: prefixCurtain, Slots: slotRange(0x09, 6), Serial: serial("curtain1")},
	{Key: "curtain_2", Prefix: prefixCurtain, Slots: slotRange(0x0f, 6), Serial: serial("curtain2")},
	{Key: "curtain_3", Prefix: prefixCurtain, Slots: slotRange(0x15, 6), Serial: serial("curtain3")},
	{Key: "ac", Prefix: prefixAC, Slots: slotRange(0x03, 6), Serial: serial("air_cond")},
	{Key: "temperature_sensor", Prefix: prefixTemperature, Slots: slotRange(0x01, 2), Serial: serial("tempsnsr")},
}

// SlotFor 返回通道编号对应的槽位分配
func SlotFor(index int) (Slot, bool) {
	if index < 0 || index >= len(slotTable) {
		return Slot{}, false
	}
	return slotTable[index], true
}

// SlotIndices 所有槽位通道编号（0-9）
func SlotIndices() []int {
	out := make([]int, len(slotTable))
	for i := range out {
		out[i] = i
	}
	return out
}

// IndexBySerial 由面板上报的资源标识反查通道编号
func IndexBySerial(serial []byte) (int, bool) {
	for i, s := range slotTable {
		if bytes.Equal(s.Serial[:], serial) {
			return i, true
		}
	}
	return 0, false
}

// IndexByKey 由配置键反查通道编号
func IndexByKey(key string) (int, bool) {
	for i, s := range slotTable {
		if s.Key == key {
			return i, true
		}
	}
	return 0, false
}

// 场景标识
var (
	sceneIDPrefix = []byte{0x60, 0x46, 0x99, 0x06}
)

// SceneID 场景 n(1-6) 的5字节标识 604699060n
func SceneID(n int) []byte {
	return append(append([]byte(nil), sceneIDPrefix...), byte(n))
}

// SceneSerial 场景 n(1-6) 的资源标识 scene_0n
func SceneSerial(n int) []byte {
	return []byte(fmt.Sprintf("scene_%02d", n))
}

// ParseEndpoint 将 "0xabc/l1" 拆为设备地址与端点名
func ParseEndpoint(endpoint string) (device, ep string) {
	device, ep, _ = strings.Cut(endpoint, "/")
	return device, ep
}

// KeySuffix 端点名对应的状态键后缀，如 l1 -> _l1
func KeySuffix(ep string) string {
	if ep == "" {
		return ""
	}
	return "_" + ep
}
