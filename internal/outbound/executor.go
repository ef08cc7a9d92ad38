package outbound

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/metrics"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
)

// Publisher 向面板发送一帧
// Publish 在执行器锁外调用，实现可在其中同步回调 Executor。
type Publisher interface {
	Publish(ctx context.Context, panel string, frame []byte) error
}

// Endpoint 设备注册表中的可控端点
type Endpoint interface {
	Reachable() bool
}

// Resolver 设备注册表，地址未知时返回 false
type Resolver interface {
	Resolve(addr string) (Endpoint, bool)
}

// FingerprintWriter 任务完成后写入指纹
type FingerprintWriter interface {
	SaveFingerprint(ctx context.Context, panel string, index int, commands [][]byte) error
	Remove(ctx context.Context, panel string, index int) error
}

// Timer 可取消的定时器
type Timer interface {
	Stop() bool
}

// Clock 定时器来源，测试中替换为手动时钟
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock 基于 time.AfterFunc
var SystemClock Clock = systemClock{}

// 默认值
const (
	DefaultAckTimeout  = 10 * time.Second
	DefaultMaxFailures = 3
)

// Ack 面板对配置命令的应答
type Ack struct {
	Panel    string
	Category byte
	Action   byte
	Multi    bool // 0xC6 分片应答
	Part     byte
	Total    byte
	SlotID   []byte // 0x24/0x71/0x02 应答携带的槽位标识
}

// token 当前唯一在途命令
type token struct {
	seq      uint64
	job      *Job
	cursor   int
	category byte
	action   byte
	slot     []byte
	part     byte
	total    byte
	sentAt   time.Time
}

func (t *token) matches(a Ack) bool {
	if a.Panel != t.job.Panel || a.Category != t.category || a.Action != t.action {
		return false
	}
	if a.Multi {
		// 中间分片的应答；最后一片由单帧应答确认
		return t.total > 0 && a.Part < a.Total && a.Part == t.part && a.Total == t.total
	}
	if t.total > 0 && t.part != t.total {
		return false
	}
	if t.category == s1.CategoryToDevice && t.action == s1.ActionConfigure {
		return bytes.Equal(a.SlotID, t.slot)
	}
	return true
}

// Options 执行器参数
type Options struct {
	AckTimeout  time.Duration
	MaxFailures int
	Clock       Clock
	Logger      *zap.Logger
	Metrics     *metrics.AppMetrics
}

// Executor 配置队列执行器
// 全局同一时刻只有一条在途命令；收到匹配应答前不会发送下一帧。
type Executor struct {
	mu sync.Mutex

	ctx    context.Context
	pub    Publisher
	res    Resolver
	store  FingerprintWriter
	clock  Clock
	logger *zap.Logger
	m      *metrics.AppMetrics

	ackTimeout  time.Duration
	maxFailures int

	queue   *Queue
	current *Job
	pending *token
	timer   Timer
	seq     uint64
	outbox  []outgoing
}

// outgoing 已登记令牌、待释放锁后发送的帧
type outgoing struct {
	panel string
	raw   []byte
}

// NewExecutor 创建执行器；ctx 用于定时器触发的重发
func NewExecutor(ctx context.Context, pub Publisher, res Resolver, store FingerprintWriter, opts Options) *Executor {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	return &Executor{
		ctx:         ctx,
		pub:         pub,
		res:         res,
		store:       store,
		clock:       opts.Clock,
		logger:      logging.OrNop(opts.Logger),
		m:           metrics.OrDiscard(opts.Metrics),
		ackTimeout:  opts.AckTimeout,
		maxFailures: opts.MaxFailures,
		queue:       NewQueue(),
	}
}

// Schedule 丢弃 panels 上尚未开始的旧任务，压入新任务并在空闲时开始执行。
// 与在途任务内容相同的新任务会被忽略。
func (e *Executor) Schedule(panels []string, jobs []*Job) {
	e.mu.Lock()
	defer e.unlockAndFlush()

	for _, p := range panels {
		if n := e.queue.Drop(p, e.current); n > 0 {
			e.logger.Info("superseded queued jobs", zap.String("panel", p), zap.Int("dropped", n))
		}
	}
	for _, j := range jobs {
		if e.current != nil && sameWork(e.current, j) {
			continue
		}
		e.queue.Push(j)
	}
	e.m.PendingJobs.Set(float64(e.queue.Len()))

	if e.current == nil {
		e.advance()
	}
}

func sameWork(a, b *Job) bool {
	if a.Panel != b.Panel || a.Index != b.Index || a.Kind != b.Kind || len(a.Commands) != len(b.Commands) {
		return false
	}
	for i := range a.Commands {
		if !bytes.Equal(a.Commands[i].Payload, b.Commands[i].Payload) {
			return false
		}
	}
	return true
}

// HandleAck 应答与在途令牌匹配时推进游标，返回是否被接受
func (e *Executor) HandleAck(a Ack) bool {
	e.mu.Lock()
	defer e.unlockAndFlush()

	t := e.pending
	if t == nil || !t.matches(a) {
		e.logger.Debug("ack ignored",
			zap.String("panel", a.Panel),
			zap.Uint8("category", a.Category),
			zap.Uint8("action", a.Action),
			zap.Uint8("part", a.Part))
		return false
	}
	e.stopTimer()
	e.pending = nil

	j := t.job
	j.Failures = 0
	j.Cursor = t.cursor + 1
	e.logger.Debug("ack accepted",
		zap.String("panel", j.Panel),
		zap.Int("channel", j.Index),
		zap.Int("cursor", j.Cursor),
		zap.Int("frames", len(j.Frames)),
		zap.Duration("rtt", time.Since(t.sentAt)))

	if j.Done() {
		e.complete(j)
	}
	e.advance()
	return true
}

// Stop 取消在途定时器，不再重发
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimer()
	e.pending = nil
	e.outbox = nil
}

// advance 发送当前任务的下一帧；无当前任务时从队列取出
func (e *Executor) advance() {
	for {
		if e.current == nil {
			e.current = e.queue.Next()
			if e.current == nil {
				return
			}
			e.logger.Info("configuration job started",
				zap.String("job", e.current.ID),
				zap.String("panel", e.current.Panel),
				zap.Int("channel", e.current.Index),
				zap.Stringer("kind", e.current.Kind),
				zap.Int("frames", len(e.current.Frames)))
		}

		j := e.current
		if j.Done() {
			e.complete(j)
			continue
		}
		ep, ok := e.res.Resolve(j.Panel)
		if !ok || !ep.Reachable() {
			e.logger.Error("panel unreachable, configuration job skipped",
				zap.String("panel", j.Panel),
				zap.Int("channel", j.Index),
				zap.Bool("known", ok))
			e.m.JobResultTotal.WithLabelValues("unreachable").Inc()
			e.finish(j)
			continue
		}
		e.send(j)
		return
	}
}

func (e *Executor) send(j *Job) {
	f := j.Current()
	cmd := j.CurrentCommand()
	e.seq++
	t := &token{
		seq:      e.seq,
		job:      j,
		cursor:   j.Cursor,
		category: cmd.Category,
		action:   cmd.Action,
		slot:     cmd.SlotID(),
		part:     f.PartNumber,
		total:    f.TotalParts,
		sentAt:   time.Now(),
	}
	e.pending = t
	e.outbox = append(e.outbox, outgoing{panel: j.Panel, raw: f.Raw})
	e.m.FrameSentTotal.WithLabelValues(hexByte(cmd.Category), hexByte(cmd.Action)).Inc()
	e.logger.Debug("configuration frame sent",
		zap.String("panel", j.Panel),
		zap.Int("channel", j.Index),
		zap.Int("cursor", j.Cursor),
		zap.Uint8("part", f.PartNumber),
		zap.Uint8("total", f.TotalParts),
		zap.Int("attempt", j.Failures+1),
		logging.Hex("hex", f.Raw))

	seq := t.seq
	e.timer = e.clock.AfterFunc(e.ackTimeout, func() { e.onTimeout(seq) })
}

// unlockAndFlush 释放锁后依次发送本次持锁期间排定的帧
func (e *Executor) unlockAndFlush() {
	out := e.outbox
	e.outbox = nil
	e.mu.Unlock()

	for _, o := range out {
		if err := e.pub.Publish(e.ctx, o.panel, o.raw); err != nil {
			// 超时后按失败处理
			e.logger.Warn("publish configuration frame failed", zap.String("panel", o.panel), zap.Error(err))
		}
	}
}

func (e *Executor) onTimeout(seq uint64) {
	e.mu.Lock()
	defer e.unlockAndFlush()

	t := e.pending
	if t == nil || t.seq != seq {
		return
	}
	e.pending = nil
	e.timer = nil

	j := t.job
	j.Failures++
	if j.Failures >= e.maxFailures {
		e.logger.Error("configuration job abandoned after repeated timeouts",
			zap.String("panel", j.Panel),
			zap.Int("channel", j.Index),
			zap.Int("cursor", j.Cursor),
			zap.Int("failures", j.Failures))
		e.m.JobResultTotal.WithLabelValues("abandoned").Inc()
		e.finish(j)
		e.advance()
		return
	}

	before := j.Cursor
	j.rewind()
	e.logger.Warn("ack timeout, resending",
		zap.String("panel", j.Panel),
		zap.Int("channel", j.Index),
		zap.Int("cursor", before),
		zap.Int("resume", j.Cursor),
		zap.Int("failures", j.Failures))
	e.m.RetryTotal.Inc()
	e.advance()
}

func (e *Executor) complete(j *Job) {
	var err error
	if j.Kind == KindRemove {
		err = e.store.Remove(e.ctx, j.Panel, j.Index)
	} else {
		err = e.store.SaveFingerprint(e.ctx, j.Panel, j.Index, j.Payloads())
	}
	if err != nil {
		e.logger.Error("persist fingerprint failed", zap.String("panel", j.Panel), zap.Int("channel", j.Index), zap.Error(err))
	}
	e.logger.Info("configuration job finished",
		zap.String("job", j.ID),
		zap.String("panel", j.Panel),
		zap.Int("channel", j.Index),
		zap.Stringer("kind", j.Kind))
	e.m.JobResultTotal.WithLabelValues("completed").Inc()
	e.finish(j)
}

func (e *Executor) finish(j *Job) {
	e.queue.Pop(j)
	if e.current == j {
		e.current = nil
	}
	e.m.PendingJobs.Set(float64(e.queue.Len()))
	if e.queue.Len() == 0 {
		e.logger.Info("all configuration jobs finished")
	}
}

func (e *Executor) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func hexByte(b byte) string {
	return fmt.Sprintf("%02x", b)
}

// JobInfo 任务状态（管理接口）
type JobInfo struct {
	ID        string    `json:"id"`
	Panel     string    `json:"panel"`
	Channel   int       `json:"channel"`
	Kind      string    `json:"kind"`
	Cursor    int       `json:"cursor"`
	Frames    int       `json:"frames"`
	Failures  int       `json:"failures"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingInfo 在途命令
type PendingInfo struct {
	Panel  string `json:"panel"`
	Slot   string `json:"slot,omitempty"`
	Part   byte   `json:"part,omitempty"`
	Total  byte   `json:"total,omitempty"`
	Action byte   `json:"action"`
}

// Snapshot 执行器快照
type Snapshot struct {
	Current *JobInfo     `json:"current,omitempty"`
	Pending *PendingInfo `json:"pending,omitempty"`
	Queued  []JobInfo    `json:"queued"`
}

func jobInfo(j *Job) JobInfo {
	return JobInfo{
		ID:        j.ID,
		Panel:     j.Panel,
		Channel:   j.Index,
		Kind:      j.Kind.String(),
		Cursor:    j.Cursor,
		Frames:    len(j.Frames),
		Failures:  j.Failures,
		CreatedAt: j.CreatedAt,
	}
}

// Snapshot 当前任务、在途命令与排队任务
func (e *Executor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{Queued: []JobInfo{}}
	if e.current != nil {
		ji := jobInfo(e.current)
		s.Current = &ji
	}
	if t := e.pending; t != nil {
		s.Pending = &PendingInfo{
			Panel:  t.job.Panel,
			Slot:   hex.EncodeToString(t.slot),
			Part:   t.part,
			Total:  t.total,
			Action: t.action,
		}
	}
	for _, j := range e.queue.Jobs() {
		if j == e.current {
			continue
		}
		s.Queued = append(s.Queued, jobInfo(j))
	}
	return s
}
