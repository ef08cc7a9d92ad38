package s1

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqPayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func mustEncode(t *testing.T, action byte, payload []byte, category byte) [][]byte {
	t.Helper()
	raws, err := Encode(action, payload, category)
	require.NoError(t, err)
	return raws
}

func mustFrames(t *testing.T, enc *Encoder, action byte, payload []byte, category byte) []*Frame {
	t.Helper()
	frames, err := enc.Frames(action, payload, category)
	require.NoError(t, err)
	return frames
}

func TestEncodeSingleFrame(t *testing.T) {
	frames := mustEncode(t, ActionConfigure, []byte{0x01}, CategoryToDevice)
	require.Len(t, frames, 1)
	assert.Equal(t, "aa7104446d3002410101", hex.EncodeToString(frames[0]))
}

func TestEncodeFragmentation(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		wantParts []int // 每片载荷字节数
		wantSizes []byte
	}{
		{"55字节单帧", 55, []int{55}, []byte{58}},
		{"56字节两片", 56, []int{53, 3}, []byte{56, 3}},
		{"110字节三片", 110, []int{53, 56, 1}, []byte{56, 56, 1}},
		{"165字节三片", 165, []int{53, 56, 56}, []byte{56, 56, 56}},
		{"255字节五片", MaxPayload, []int{53, 56, 56, 56, 34}, []byte{56, 56, 56, 56, 34}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := mustFrames(t, NewEncoder(0), ActionConfigure, seqPayload(tt.size), CategoryToDevice)
			require.Len(t, frames, len(tt.wantParts))
			for i, f := range frames {
				assert.Equal(t, tt.wantParts[i], len(f.Payload), "part %d payload", i+1)
				assert.Equal(t, tt.wantSizes[i], f.Size, "part %d size", i+1)
				assert.Equal(t, tt.wantSizes[i], f.Raw[2], "part %d size byte", i+1)
				if len(frames) > 1 {
					assert.Equal(t, byte(KindMulti), f.Raw[3])
					assert.Equal(t, byte(len(frames)), f.Raw[5])
					assert.Equal(t, byte(i+1), f.Raw[6])
				} else {
					assert.Equal(t, byte(KindSingle), f.Raw[3])
				}
			}
		})
	}
}

func TestEncodeMultiPartHeaders(t *testing.T) {
	frames := mustFrames(t, NewEncoder(0), ActionReport, seqPayload(60), CategoryScene)
	require.Len(t, frames, 2)

	first := frames[0].Raw
	assert.Equal(t, []byte{Signature, CategoryScene, 56, KindMulti, DefaultCounter, 2, 1}, first[:7])
	assert.Equal(t, []byte{ActionReport, DataTypeOctetString, 60}, first[8:11])
	assert.Equal(t, seqPayload(60)[:53], first[11:])

	second := frames[1].Raw
	assert.Equal(t, []byte{Signature, CategoryScene, 7, KindMulti, DefaultCounter, 2, 2}, second[:7])
	assert.Equal(t, seqPayload(60)[53:], second[8:])
	assert.True(t, frames[1].IsContinuation())
	assert.True(t, frames[1].IsFinalPart())
	assert.False(t, frames[0].IsFinalPart())
}

func TestEncodeCounter(t *testing.T) {
	frames, err := (&Encoder{Counter: 0x12}).Encode(ActionSetState, []byte{0xAB}, CategoryToDevice)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0x12), frames[0][4])
	_, err = Decode(frames[0])
	require.NoError(t, err)
}

func TestEncodeDoesNotAliasInput(t *testing.T) {
	payload := seqPayload(100)
	frames := mustEncode(t, ActionConfigure, payload, CategoryToDevice)
	payload[0] = 0xFF
	assert.Equal(t, byte(0x00), frames[0][11])
	assert.False(t, bytes.Contains(frames[1], []byte{0xFF}))
}

func TestSlotID(t *testing.T) {
	payload, _ := hex.DecodeString("604f74481b54ef4410000513ea6c69676874732f31")
	frames := mustFrames(t, NewEncoder(0), ActionConfigure, payload, CategoryToDevice)
	require.Len(t, frames, 1)
	assert.Equal(t, "604f74481b", hex.EncodeToString(frames[0].SlotID()))

	long := append(append([]byte(nil), payload...), seqPayload(60)...)
	parts := mustFrames(t, NewEncoder(0), ActionConfigure, long, CategoryToDevice)
	require.Len(t, parts, 2)
	assert.Equal(t, "604f74481b", hex.EncodeToString(parts[0].SlotID()))
	assert.Nil(t, parts[1].SlotID())
}

func TestNameField(t *testing.T) {
	t.Run("ASCII", func(t *testing.T) {
		assert.Equal(t, []byte{0x05, 'S', 'a', 'l', 'o', 'n'}, NameField("Salon"))
	})
	t.Run("中文GBK", func(t *testing.T) {
		// 开关 = bfaa b9d8
		assert.Equal(t, []byte{0x04, 0xbf, 0xaa, 0xb9, 0xd8}, NameField("开关"))
	})
}

func TestEncodePayloadTooLarge(t *testing.T) {
	for _, n := range []int{MaxPayload + 1, 300, 512} {
		raws, err := Encode(ActionReport, seqPayload(n), CategoryScene)
		assert.ErrorIs(t, err, ErrPayloadTooLarge, "len=%d", n)
		assert.Nil(t, raws)
	}
}

func TestNameFieldLimit(t *testing.T) {
	t.Run("按整字符截断", func(t *testing.T) {
		// 开关 = bfaa b9d8，3字节只容纳一个汉字
		assert.Equal(t, []byte{0x02, 0xbf, 0xaa}, NameFieldLimit("开关", 3))
	})
	t.Run("长度前缀不回绕", func(t *testing.T) {
		f := NameField(strings.Repeat("灯", 200))
		assert.Equal(t, byte(254), f[0])
		assert.Len(t, f, 255)
	})
	t.Run("负数上限", func(t *testing.T) {
		assert.Equal(t, []byte{0x00}, NameFieldLimit("Salon", -1))
	})
}
