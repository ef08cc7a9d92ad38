package s1

import (
	"errors"
	"testing"
)

func TestIntegrity(t *testing.T) {
	tests := []struct {
		name     string
		fields   []byte
		expected byte
	}{
		{
			name:     "单帧1字节载荷",
			fields:   []byte{Signature, CategoryToDevice, 0x04, KindSingle, DefaultCounter},
			expected: 0x30, // 512-(170+113+4+68+109)=48
		},
		{
			name:     "结果为负时取低8位",
			fields:   []byte{Signature, CategoryToDevice, 0x3a, KindSingle, DefaultCounter},
			expected: 0xFA, // 512-518=-6
		},
		{
			name:     "分片帧包含总片数与片号",
			fields:   []byte{Signature, CategoryToDevice, 0x38, KindMulti, DefaultCounter, 0x02, 0x01},
			expected: 0xF7, // 512-521=-9
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Integrity(tt.fields...)
			if got != tt.expected {
				t.Errorf("Integrity() = 0x%02X, expected 0x%02X", got, tt.expected)
			}
			if err := VerifyIntegrity(tt.fields, got); err != nil {
				t.Errorf("VerifyIntegrity() error = %v", err)
			}
		})
	}
}

func TestValidSum(t *testing.T) {
	tests := []struct {
		name string
		sum  int
		want bool
	}{
		{"低定点", 256, true},
		{"中定点", 512, true},
		{"高定点", 768, true},
		{"零", 0, false},
		{"差一", 511, false},
		{"1024", 1024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidSum(tt.sum); got != tt.want {
				t.Errorf("ValidSum(%d) = %v, want %v", tt.sum, got, tt.want)
			}
		})
	}
}

func TestHeaderSumFixedPoints(t *testing.T) {
	t.Run("小计数器落在256", func(t *testing.T) {
		fields := []byte{Signature, CategoryToDevice, 0x03, KindSingle, 0x01}
		integrity := Integrity(fields...)
		if sum := HeaderSum(fields, integrity); sum != SumLow {
			t.Errorf("sum = %d, want %d", sum, SumLow)
		}
	})

	t.Run("默认计数器落在512", func(t *testing.T) {
		fields := []byte{Signature, CategoryToDevice, 0x10, KindSingle, DefaultCounter}
		integrity := Integrity(fields...)
		if sum := HeaderSum(fields, integrity); sum != SumMid {
			t.Errorf("sum = %d, want %d", sum, SumMid)
		}
	})

	t.Run("超长帧落在768", func(t *testing.T) {
		fields := []byte{Signature, CategoryToDevice, 0xF0, KindSingle, DefaultCounter}
		integrity := Integrity(fields...)
		if sum := HeaderSum(fields, integrity); sum != SumHigh {
			t.Errorf("sum = %d, want %d", sum, SumHigh)
		}
	})

	t.Run("错误的完整性字节", func(t *testing.T) {
		fields := []byte{Signature, CategoryToDevice, 0x04, KindSingle, DefaultCounter}
		err := VerifyIntegrity(fields, 0x31)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Errorf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}
