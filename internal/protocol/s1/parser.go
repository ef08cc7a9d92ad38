package s1

import (
	"errors"
	"fmt"
)

var (
	ErrTooShort       = errors.New("frame too short")
	ErrBadSignature   = errors.New("bad signature")
	ErrPartSequence   = errors.New("multi-part sequence broken")
	ErrLengthMismatch = errors.New("reassembled length mismatch")
)

// Decode 解析一个上行/下行线路帧并校验完整性字节。
// 单帧完整性字节位于偏移5，分片帧（0x46/0xC6）位于偏移7。
func Decode(raw []byte) (*Frame, error) {
	if len(raw) < singleHeaderLen+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(raw))
	}
	if raw[0] != Signature {
		return nil, fmt.Errorf("%w: 0x%02x", ErrBadSignature, raw[0])
	}

	f := &Frame{
		Category: raw[1],
		Size:     raw[2],
		Kind:     raw[3],
		Counter:  raw[4],
		Raw:      append([]byte(nil), raw...),
	}

	var body []byte
	if isMultiKind(f.Kind) {
		if len(raw) < multiHeaderLen+1 {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(raw))
		}
		f.TotalParts = raw[5]
		f.PartNumber = raw[6]
		f.Integrity = raw[7]
		if sum := HeaderSum(raw[:7], f.Integrity); !ValidSum(sum) {
			return nil, fmt.Errorf("%w: sum=%d", ErrChecksumMismatch, sum)
		}
		body = f.Raw[multiHeaderLen:]
	} else {
		f.Integrity = raw[5]
		if sum := HeaderSum(raw[:5], f.Integrity); !ValidSum(sum) {
			return nil, fmt.Errorf("%w: sum=%d", ErrChecksumMismatch, sum)
		}
		body = f.Raw[singleHeaderLen:]
	}

	switch {
	case f.IsContinuation():
		f.Payload = body
	case f.Kind == KindMultiAck || len(body) < bodyHeaderLen:
		f.Action = body[0]
		f.Payload = body[1:]
	default:
		f.Action = body[0]
		f.DataType = body[1]
		f.PayloadSize = body[2]
		f.Payload = body[bodyHeaderLen:]
	}
	return f, nil
}

// Reassemble 将分片帧还原为动作与完整载荷；单帧直接返回
func Reassemble(frames []*Frame) (byte, []byte, error) {
	if len(frames) == 0 {
		return 0, nil, fmt.Errorf("%w: no frames", ErrPartSequence)
	}
	first := frames[0]
	if !first.IsMultiPart() {
		if len(frames) != 1 {
			return 0, nil, fmt.Errorf("%w: %d single frames", ErrPartSequence, len(frames))
		}
		return first.Action, append([]byte(nil), first.Payload...), nil
	}

	if int(first.TotalParts) != len(frames) {
		return 0, nil, fmt.Errorf("%w: have %d of %d parts", ErrPartSequence, len(frames), first.TotalParts)
	}
	var payload []byte
	for i, f := range frames {
		if f.Kind != KindMulti || int(f.PartNumber) != i+1 || f.TotalParts != first.TotalParts {
			return 0, nil, fmt.Errorf("%w: unexpected part %d at %d", ErrPartSequence, f.PartNumber, i+1)
		}
		payload = append(payload, f.Payload...)
	}
	if len(payload) != int(first.PayloadSize) {
		return 0, nil, fmt.Errorf("%w: got %d, header %d", ErrLengthMismatch, len(payload), first.PayloadSize)
	}
	return first.Action, payload, nil
}
