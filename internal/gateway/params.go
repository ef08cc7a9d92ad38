package gateway

import (
	"encoding/binary"
	"fmt"
)

// param 面板属性参数（4字节）
type param uint32

const (
	paramOnOff       param = 0x04010055
	paramBrightness  param = 0x0e010055
	paramDual        param = 0x0e020055 // 灯：色温；窗帘：运动状态；空调：外部温控状态
	paramColorXY     param = 0x0e080055
	paramPosition    param = 0x01010055
	paramACState     param = 0x0e200055
	paramName        param = 0x08001fa5
	paramOnline      param = 0x080007fd
	paramACModes     param = 0x08001fa7
	paramFanModes    param = 0x08001fa8
	paramACRanges    param = 0x08001fa9
	paramWeather     param = 0x0d020055
	paramTemperature param = 0x00040055
	paramHumidity    param = 0x00050055
	paramUV          param = 0x00060055
)

func (p param) bytes() []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(p))
}

func (p param) String() string {
	return fmt.Sprintf("%08x", uint32(p))
}

// attr 属性帧载荷：资源标识(8) + 参数(4) + 值
type attr struct {
	serial []byte
	param  param
	value  []byte
}

func parseAttr(payload []byte) (attr, bool) {
	if len(payload) < 12 {
		return attr{}, false
	}
	return attr{
		serial: payload[:8],
		param:  param(binary.BigEndian.Uint32(payload[8:12])),
		value:  payload[12:],
	}, true
}
