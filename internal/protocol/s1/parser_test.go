package s1

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDecode(t *testing.T) {
	t.Run("单帧配置命令", func(t *testing.T) {
		f, err := Decode(mustHex(t, "aa7104446d3002410101"))
		require.NoError(t, err)
		assert.Equal(t, byte(CategoryToDevice), f.Category)
		assert.Equal(t, byte(KindSingle), f.Kind)
		assert.Equal(t, byte(ActionConfigure), f.Action)
		assert.Equal(t, byte(DataTypeOctetString), f.DataType)
		assert.Equal(t, []byte{0x01}, f.Payload)
	})

	t.Run("分片应答偏移", func(t *testing.T) {
		raw := []byte{Signature, CategoryToDevice, 0x01, KindMultiAck, DefaultCounter, 0x03, 0x01}
		raw = append(raw, Integrity(raw...), ActionConfigure)
		f, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, byte(3), f.TotalParts)
		assert.Equal(t, byte(1), f.PartNumber)
		assert.Equal(t, byte(ActionConfigure), f.Action)
		assert.Empty(t, f.Payload)
	})

	t.Run("状态上报载荷", func(t *testing.T) {
		payload := mustHex(t, "6c69676874732f3104010055"+"00000001")
		raw := []byte{Signature, CategoryFromDevice, byte(len(payload) + 3), KindReport, 0x10}
		raw = append(raw, Integrity(raw...), ActionReport, DataTypeOctetString, byte(len(payload)))
		raw = append(raw, payload...)
		f, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, byte(KindReport), f.Kind)
		assert.Equal(t, payload, f.Payload)
		// 绝对偏移 9 处为设备序列号
		assert.Equal(t, raw[9:17], f.Payload[:8])
	})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"空数据", nil, ErrTooShort},
		{"过短", []byte{0xAA, 0x71, 0x04}, ErrTooShort},
		{"分片头不完整", []byte{0xAA, 0x71, 0x04, 0x46, 0x6d, 0x02, 0x01, 0x00}, ErrTooShort},
		{"帧头错误", []byte{0xAB, 0x71, 0x04, 0x44, 0x6d, 0x30, 0x02}, ErrBadSignature},
		{"完整性错误", []byte{0xAA, 0x71, 0x04, 0x44, 0x6d, 0x31, 0x02, 0x41, 0x01, 0x01}, ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode(tt.raw)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, category := range []byte{CategoryToDevice, CategoryScene} {
		for n := 1; n <= MaxPayload; n++ {
			payload := seqPayload(n)
			raws, err := NewEncoder(0).Encode(ActionConfigure, payload, category)
			require.NoError(t, err, "len=%d", n)

			frames := make([]*Frame, 0, len(raws))
			for _, raw := range raws {
				f, err := Decode(raw)
				require.NoError(t, err, "len=%d", n)
				assert.Equal(t, category, f.Category)
				frames = append(frames, f)
			}

			action, got, err := Reassemble(frames)
			require.NoError(t, err, "len=%d", n)
			assert.Equal(t, byte(ActionConfigure), action)
			assert.Equal(t, payload, got, "len=%d", n)
		}
	}
}

func TestReassembleErrors(t *testing.T) {
	raws := mustEncode(t, ActionConfigure, seqPayload(120), CategoryToDevice)
	var frames []*Frame
	for _, raw := range raws {
		f, err := Decode(raw)
		require.NoError(t, err)
		frames = append(frames, f)
	}
	require.Len(t, frames, 3)

	t.Run("缺片", func(t *testing.T) {
		_, _, err := Reassemble(frames[:2])
		assert.ErrorIs(t, err, ErrPartSequence)
	})
	t.Run("乱序", func(t *testing.T) {
		_, _, err := Reassemble([]*Frame{frames[0], frames[2], frames[1]})
		assert.ErrorIs(t, err, ErrPartSequence)
	})
	t.Run("空", func(t *testing.T) {
		_, _, err := Reassemble(nil)
		assert.ErrorIs(t, err, ErrPartSequence)
	})
}

func TestFloat32Bytes(t *testing.T) {
	assert.Equal(t, []byte{0x42, 0xc8, 0x00, 0x00}, Float32Bytes(100))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, Float32Bytes(0))
	assert.Equal(t, []byte{0x45, 0x80, 0x00, 0x00}, Float32Bytes(4096))
	assert.Equal(t, float32(50), Float32FromBytes([]byte{0x42, 0x48, 0x00, 0x00}))
	assert.Equal(t, float32(0), Float32FromBytes([]byte{0x42}))
}
