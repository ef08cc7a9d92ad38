package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// Record 一块面板已成功写入的通道指纹与显示名称
// Channels: 通道编号 -> 逻辑命令（十六进制，按发送顺序）
type Record struct {
	Channels map[int][]string `json:"channels"`
	Names    map[int]string   `json:"names"`
}

func newRecord() *Record {
	return &Record{Channels: make(map[int][]string), Names: make(map[int]string)}
}

// FingerprintStore 基于 KV 的指纹存储，每块面板一个 JSON 记录
type FingerprintStore struct {
	kv KV
	mu sync.Mutex
}

// NewFingerprintStore 创建指纹存储
func NewFingerprintStore(kv KV) *FingerprintStore {
	return &FingerprintStore{kv: kv}
}

func recordKey(panel string) string {
	return "fingerprint:" + panel
}

// Load 读取面板记录，不存在时返回空记录
func (s *FingerprintStore) Load(ctx context.Context, panel string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, panel)
}

func (s *FingerprintStore) load(ctx context.Context, panel string) (*Record, error) {
	raw, ok, err := s.kv.Get(ctx, recordKey(panel))
	if err != nil {
		return nil, fmt.Errorf("load fingerprint %s: %w", panel, err)
	}
	rec := newRecord()
	if !ok {
		return rec, nil
	}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode fingerprint %s: %w", panel, err)
	}
	if rec.Channels == nil {
		rec.Channels = make(map[int][]string)
	}
	if rec.Names == nil {
		rec.Names = make(map[int]string)
	}
	return rec, nil
}

func (s *FingerprintStore) update(ctx context.Context, panel string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(ctx, panel)
	if err != nil {
		return err
	}
	fn(rec)
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, recordKey(panel), raw); err != nil {
		return fmt.Errorf("save fingerprint %s: %w", panel, err)
	}
	return nil
}

// SaveFingerprint 记录通道最近一次成功写入的命令
func (s *FingerprintStore) SaveFingerprint(ctx context.Context, panel string, index int, commands [][]byte) error {
	return s.update(ctx, panel, func(r *Record) {
		r.Channels[index] = EncodeCommands(commands)
	})
}

// Remove 删除通道指纹及其名称
func (s *FingerprintStore) Remove(ctx context.Context, panel string, index int) error {
	return s.update(ctx, panel, func(r *Record) {
		delete(r.Channels, index)
		delete(r.Names, index)
	})
}

// SaveName 记录通道最近一次写入的显示名称
func (s *FingerprintStore) SaveName(ctx context.Context, panel string, index int, name string) error {
	return s.update(ctx, panel, func(r *Record) {
		r.Names[index] = name
	})
}

// EncodeCommands 命令转十六进制
func EncodeCommands(commands [][]byte) []string {
	out := make([]string, len(commands))
	for i, c := range commands {
		out[i] = hex.EncodeToString(c)
	}
	return out
}

// Matches 指纹与新生成的命令逐条一致
func Matches(stored []string, commands [][]byte) bool {
	if len(stored) != len(commands) {
		return false
	}
	for i, c := range commands {
		if stored[i] != hex.EncodeToString(c) {
			return false
		}
	}
	return true
}
