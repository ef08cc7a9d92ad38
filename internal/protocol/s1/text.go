package s1

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// MaxNameLen 名称字段长度为单字节
const MaxNameLen = 0xFF

// EncodeName 面板显示名称使用 GBK 编码，无法编码的字符替换为 '?'
func EncodeName(name string) []byte {
	return EncodeNameLimit(name, MaxNameLen)
}

// EncodeNameLimit 同 EncodeName，结果不超过 limit 字节，按整字符截断
func EncodeNameLimit(name string, limit int) []byte {
	limit = min(max(limit, 0), MaxNameLen)
	enc := encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder())
	out := make([]byte, 0, min(2*len(name), limit))
	for _, r := range name {
		c, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			c = []byte{'?'}
		}
		if len(out)+len(c) > limit {
			break
		}
		out = append(out, c...)
	}
	return out
}

// NameField 长度前缀 + GBK 名称
func NameField(name string) []byte {
	return NameFieldLimit(name, MaxNameLen)
}

// NameFieldLimit 名称部分不超过 limit 字节的 NameField
func NameFieldLimit(name string, limit int) []byte {
	b := EncodeNameLimit(name, limit)
	return append([]byte{byte(len(b))}, b...)
}
