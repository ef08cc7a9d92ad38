package s1

import (
	"errors"
	"fmt"
)

// MaxPayload 逻辑载荷长度字段只有一个字节
const MaxPayload = 0xFF

// ErrPayloadTooLarge 逻辑载荷超过 MaxPayload
var ErrPayloadTooLarge = errors.New("payload too large")

// Encoder 下行帧编码器
type Encoder struct {
	Counter byte
}

// NewEncoder 创建编码器，counter 为 0 时使用默认计数器 0x6d
func NewEncoder(counter byte) *Encoder {
	if counter == 0 {
		counter = DefaultCounter
	}
	return &Encoder{Counter: counter}
}

var defaultEncoder = NewEncoder(DefaultCounter)

// Encode 使用默认计数器编码
func Encode(action byte, payload []byte, category byte) ([][]byte, error) {
	return defaultEncoder.Encode(action, payload, category)
}

// Encode 将一个逻辑命令编码为一个或多个线路帧
func (e *Encoder) Encode(action byte, payload []byte, category byte) ([][]byte, error) {
	frames, err := e.Frames(action, payload, category)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(frames))
	for i, f := range frames {
		out[i] = f.Raw
	}
	return out, nil
}

// Frames 与 Encode 相同，但返回带元数据的帧
func (e *Encoder) Frames(action byte, payload []byte, category byte) ([]*Frame, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	if len(payload) <= MaxSinglePayload {
		return []*Frame{e.single(action, payload, category)}, nil
	}

	chunks := split(payload)
	total := byte(len(chunks))
	frames := make([]*Frame, 0, len(chunks))
	for i, chunk := range chunks {
		part := byte(i + 1)
		size := byte(len(chunk))
		if i == 0 {
			// 仅首片包含 action/dataType/len 三字节
			size += bodyHeaderLen
		}
		integrity := Integrity(Signature, category, size, KindMulti, e.Counter, total, part)

		raw := make([]byte, 0, multiHeaderLen+bodyHeaderLen+len(chunk))
		raw = append(raw, Signature, category, size, KindMulti, e.Counter, total, part, integrity)
		f := &Frame{
			Category:   category,
			Kind:       KindMulti,
			Size:       size,
			Counter:    e.Counter,
			Integrity:  integrity,
			TotalParts: total,
			PartNumber: part,
		}
		if i == 0 {
			raw = append(raw, action, DataTypeOctetString, byte(len(payload)))
			f.Action = action
			f.DataType = DataTypeOctetString
			f.PayloadSize = byte(len(payload))
		}
		f.Raw = append(raw, chunk...)
		f.Payload = f.Raw[len(raw):]
		frames = append(frames, f)
	}
	return frames, nil
}

func (e *Encoder) single(action byte, payload []byte, category byte) *Frame {
	size := byte(len(payload) + bodyHeaderLen)
	integrity := Integrity(Signature, category, size, KindSingle, e.Counter)

	raw := make([]byte, 0, singleHeaderLen+bodyHeaderLen+len(payload))
	raw = append(raw, Signature, category, size, KindSingle, e.Counter, integrity,
		action, DataTypeOctetString, byte(len(payload)))
	raw = append(raw, payload...)

	return &Frame{
		Category:    category,
		Kind:        KindSingle,
		Size:        size,
		Counter:     e.Counter,
		Integrity:   integrity,
		Action:      action,
		DataType:    DataTypeOctetString,
		PayloadSize: byte(len(payload)),
		Payload:     raw[singleHeaderLen+bodyHeaderLen:],
		Raw:         raw,
	}
}

// split 首片53字节，其余每片最多56字节
func split(payload []byte) [][]byte {
	var chunks [][]byte
	chunks = append(chunks, payload[:FirstPartPayload])
	for rest := payload[FirstPartPayload:]; len(rest) > 0; {
		n := min(NextPartPayload, len(rest))
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}
	return chunks
}
