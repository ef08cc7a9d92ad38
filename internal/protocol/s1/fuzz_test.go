package s1

import (
	"bytes"
	"errors"
	"testing"
)

func FuzzDecode(f *testing.F) {
	f.Add([]byte{0xAA, 0x71, 0x04, 0x44, 0x6d, 0x30, 0x02, 0x41, 0x01, 0x01})
	f.Add([]byte{0xAA, 0x71, 0x01, 0xC6, 0x6d, 0x03, 0x01})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, raw []byte) {
		// 不得 panic
		_, _ = Decode(raw)
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{0x01}, byte(CategoryToDevice))
	f.Add(bytes.Repeat([]byte{0x5a}, 120), byte(CategoryScene))

	f.Fuzz(func(t *testing.T, payload []byte, category byte) {
		if len(payload) == 0 || len(payload) > 1000 {
			return
		}
		raws, err := Encode(ActionConfigure, payload, category)
		if len(payload) > MaxPayload {
			if !errors.Is(err, ErrPayloadTooLarge) {
				t.Fatalf("encode %d bytes: %v", len(payload), err)
			}
			return
		}
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		var frames []*Frame
		for _, raw := range raws {
			fr, err := Decode(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			frames = append(frames, fr)
		}
		_, got, err := Reassemble(frames)
		if err != nil {
			t.Fatalf("reassemble: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("payload mismatch")
		}
	})
}
