package s1

import (
	"encoding/binary"
	"math"
)

// Float32Bytes IEEE-754 单精度大端
func Float32Bytes(v float32) []byte {
	return binary.BigEndian.AppendUint32(nil, math.Float32bits(v))
}

// Float32FromBytes 读取前4字节为单精度大端浮点
func Float32FromBytes(b []byte) float32 {
	if len(b) < 4 {
		return 0
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// Uint32Bytes 4字节大端
func Uint32Bytes(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// Uint16Bytes 2字节大端
func Uint16Bytes(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}
