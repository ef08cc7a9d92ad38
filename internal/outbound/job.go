package outbound

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// JobKind 配置任务类型
type JobKind int

const (
	KindConfigure JobKind = iota // 写入通道槽位
	KindRemove                   // 清除已停用通道的槽位
	KindScenes                   // 场景列表
)

func (k JobKind) String() string {
	switch k {
	case KindConfigure:
		return "configure"
	case KindRemove:
		return "remove"
	case KindScenes:
		return "scenes"
	}
	return "unknown"
}

// Command 一条逻辑命令，编码后为一个或多个帧
type Command struct {
	Category byte
	Action   byte
	Payload  []byte
}

// SlotID 命令负载的前5字节（场景命令没有槽位，返回前5字节仅用于日志）
func (c Command) SlotID() []byte {
	if len(c.Payload) < s1.SlotIDLen {
		return nil
	}
	return c.Payload[:s1.SlotIDLen]
}

// Job 一个面板通道的配置任务
// Frames 按发送顺序排列，frameCmd[i] 为第 i 帧所属命令下标。
type Job struct {
	ID        string
	Panel     string
	Index     int
	Kind      JobKind
	Commands  []Command
	Frames    []*s1.Frame
	Cursor    int
	Failures  int
	CreatedAt time.Time

	frameCmd []int
}

// NewJob 编码全部命令并生成任务
func NewJob(enc *s1.Encoder, panel string, index int, kind JobKind, cmds []Command) (*Job, error) {
	if enc == nil {
		enc = s1.NewEncoder(0)
	}
	j := &Job{
		ID:        uuid.NewString(),
		Panel:     panel,
		Index:     index,
		Kind:      kind,
		Commands:  cmds,
		CreatedAt: time.Now(),
	}
	for i, c := range cmds {
		frames, err := enc.Frames(c.Action, c.Payload, c.Category)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		for _, f := range frames {
			j.Frames = append(j.Frames, f)
			j.frameCmd = append(j.frameCmd, i)
		}
	}
	return j, nil
}

// Payloads 逻辑命令负载，任务完成后作为指纹保存
func (j *Job) Payloads() [][]byte {
	out := make([][]byte, len(j.Commands))
	for i, c := range j.Commands {
		out[i] = c.Payload
	}
	return out
}

// Done 所有帧均已确认
func (j *Job) Done() bool {
	return j.Cursor >= len(j.Frames)
}

// Current 游标处的帧
func (j *Job) Current() *s1.Frame {
	if j.Done() {
		return nil
	}
	return j.Frames[j.Cursor]
}

// CurrentCommand 游标处帧所属的命令
func (j *Job) CurrentCommand() Command {
	return j.Commands[j.frameCmd[j.Cursor]]
}

// rewind 多包续传帧超时后回到该命令的首包
func (j *Job) rewind() {
	f := j.Current()
	if f == nil || !f.IsMultiPart() || f.PartNumber <= 1 {
		return
	}
	j.Cursor -= int(f.PartNumber) - 1
}
