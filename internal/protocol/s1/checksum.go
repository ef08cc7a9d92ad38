package s1

import "errors"

var (
	// ErrChecksumMismatch 完整性校验失败
	ErrChecksumMismatch = errors.New("integrity mismatch")
)

// 面板接受的三个校验和定点。
// 完整性字节按有符号解释，发送端按 512 计算，溢出时落在 256 或 768。
const (
	SumLow  = 256
	SumMid  = 512
	SumHigh = 768
)

// Integrity 计算完整性字节：uint8(512 - Σfields)
// fields: 帧头、类别、长度、类型、计数器（分片帧另含总片数与片号）
func Integrity(fields ...byte) byte {
	sum := 0
	for _, b := range fields {
		sum += int(b)
	}
	return uint8(SumMid - sum)
}

// HeaderSum 头部字段之和加上有符号完整性字节
func HeaderSum(fields []byte, integrity byte) int {
	sum := int(int8(integrity))
	for _, b := range fields {
		sum += int(b)
	}
	return sum
}

// ValidSum 是否为合法定点
func ValidSum(sum int) bool {
	return sum == SumLow || sum == SumMid || sum == SumHigh
}

// VerifyIntegrity 校验头部字段与完整性字节
func VerifyIntegrity(fields []byte, integrity byte) error {
	if !ValidSum(HeaderSum(fields, integrity)) {
		return ErrChecksumMismatch
	}
	return nil
}
