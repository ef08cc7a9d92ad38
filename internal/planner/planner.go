package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
	"github.com/taoyao-code/s1-panel-bridge/internal/storage"
)

// FingerprintReader 读取面板已写入的指纹
type FingerprintReader interface {
	Load(ctx context.Context, panel string) (*storage.Record, error)
}

// Plan 一次规划的结果
// Jobs 按压栈顺序排列：通道 9..0，最后是场景，执行时场景最先。
type Plan struct {
	Jobs   []*outbound.Job
	Names  []outbound.NameUpdate
	Panels []string
}

// Planner 比较面板配置与指纹，生成需要执行的配置任务
type Planner struct {
	store  FingerprintReader
	enc    *s1.Encoder
	logger *zap.Logger
}

// New 创建规划器，enc 为空时使用默认计数器
func New(store FingerprintReader, enc *s1.Encoder, logger *zap.Logger) *Planner {
	if enc == nil {
		enc = s1.NewEncoder(s1.DefaultCounter)
	}
	return &Planner{store: store, enc: enc, logger: logging.OrNop(logger)}
}

// Plan 为每块面板生成配置、移除、场景任务以及名称更新
func (p *Planner) Plan(ctx context.Context, panels []*panel.Panel) (*Plan, error) {
	out := &Plan{}
	for _, pnl := range panels {
		if err := p.planPanel(ctx, pnl, out); err != nil {
			return nil, err
		}
		out.Panels = append(out.Panels, pnl.Address)
	}
	p.logger.Info("configuration planned",
		zap.Int("panels", len(out.Panels)),
		zap.Int("jobs", len(out.Jobs)),
		zap.Int("names", len(out.Names)))
	return out, nil
}

func (p *Planner) planPanel(ctx context.Context, pnl *panel.Panel, out *Plan) error {
	mac, err := pnl.MAC()
	if err != nil {
		return err
	}
	rec, err := p.store.Load(ctx, pnl.Address)
	if err != nil {
		return err
	}

	indices := panel.SlotIndices()
	for k := len(indices) - 1; k >= 0; k-- {
		i := indices[k]
		ch := pnl.Channel(i)
		stored, has := rec.Channels[i]

		if ch == nil || !ch.IsEnabled() {
			if !has {
				continue
			}
			cmds, err := RemovalCommands(mac, i)
			if err != nil {
				return err
			}
			job, err := outbound.NewJob(p.enc, pnl.Address, i, outbound.KindRemove, configure(cmds, s1.ActionRemove))
			if err != nil {
				return fmt.Errorf("panel %s channel %d: %w", pnl.Address, i, err)
			}
			out.Jobs = append(out.Jobs, job)
			p.logger.Debug("channel removal planned", zap.String("panel", pnl.Address), zap.Int("channel", i))
			continue
		}

		cmds, err := ChannelCommands(mac, ch)
		if err != nil {
			return fmt.Errorf("panel %s %s: %w", pnl.Address, ch.Key(), err)
		}
		if !has || !storage.Matches(stored, cmds) {
			job, err := outbound.NewJob(p.enc, pnl.Address, i, outbound.KindConfigure, configure(cmds, s1.ActionConfigure))
			if err != nil {
				return fmt.Errorf("panel %s %s: %w", pnl.Address, ch.Key(), err)
			}
			out.Jobs = append(out.Jobs, job)
			p.logger.Debug("channel configuration planned", zap.String("panel", pnl.Address), zap.String("channel", ch.Key()), zap.Int("commands", len(cmds)))
			continue
		}

		common, _ := panel.CommonOf(ch)
		if name, ok := rec.Names[i]; ok && name == common.Name {
			continue
		}
		slot, _ := panel.SlotFor(i)
		frames, err := p.enc.Encode(s1.ActionSetState, NameCommand(slot.Serial[:], common.Name), s1.CategoryToDevice)
		if err != nil {
			return fmt.Errorf("panel %s %s name: %w", pnl.Address, ch.Key(), err)
		}
		out.Names = append(out.Names, outbound.NameUpdate{
			Panel:  pnl.Address,
			Index:  i,
			Name:   common.Name,
			Frames: frames,
		})
	}

	scenes := SceneCommands(pnl)
	payloads := make([][]byte, len(scenes))
	for i, c := range scenes {
		payloads[i] = c.Payload
	}
	if stored, has := rec.Channels[panel.IndexScenes]; !has || !storage.Matches(stored, payloads) {
		job, err := outbound.NewJob(p.enc, pnl.Address, panel.IndexScenes, outbound.KindScenes, scenes)
		if err != nil {
			return fmt.Errorf("panel %s scenes: %w", pnl.Address, err)
		}
		out.Jobs = append(out.Jobs, job)
	}
	return nil
}
