package planner

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/panel"
	"github.com/taoyao-code/s1-panel-bridge/internal/protocol/s1"
	"github.com/taoyao-code/s1-panel-bridge/internal/storage"
)

const panelAddr = "0x54ef441000051234"

const lightOnlyYAML = `
panels:
  "0x54ef441000051234":
    light_1:
      enabled: true
      name: Kitchen
      type: dimmable
      endpoints: ["0x00158d0001aaaaaa"]
`

const fullYAML = `
panels:
  "0x54ef441000051234":
    light_1: {enabled: true, name: L1, type: dimmable}
    light_2: {enabled: true, name: L2, type: ct}
    light_3: {enabled: true, name: L3, type: color}
    light_4: {enabled: true, name: L4, type: onoff}
    curtain_1: {enabled: true, name: C1, type: curtain}
    curtain_2: {enabled: true, name: C2, type: roller}
    ac: {enabled: true, name: AC, internal_thermostat: false, modes: [cool]}
    temperature_sensor: {enabled: true, name: T}
    scene_2: {enabled: true, name: Movie, icon: 5}
    scene_4: {enabled: false, name: Off, icon: 1}
`

func mustPanel(t *testing.T, src string) *panel.Panel {
	t.Helper()
	panels, err := panel.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, panels, 1)
	return panels[0]
}

func mustMAC(t *testing.T, p *panel.Panel) []byte {
	t.Helper()
	mac, err := p.MAC()
	require.NoError(t, err)
	return mac
}

func TestChannelCommands(t *testing.T) {
	t.Run("可调光灯1", func(t *testing.T) {
		p := mustPanel(t, lightOnlyYAML)
		cmds, err := ChannelCommands(mustMAC(t, p), p.Channel(0))
		require.NoError(t, err)
		require.Len(t, cmds, 4)

		want := "604f74481b" + "54ef441000051234" + "6c69676874732f31" + "04010055" +
			"260a0408bfaab9d8d7b4ccac08bfaab9d8d7b4ccac08bfaab9d8d7b4ccac000000000001503300"
		assert.Equal(t, want, hex.EncodeToString(cmds[0]))
		assert.Len(t, cmds[0], 64)

		var slots []byte
		for _, c := range cmds {
			slots = append(slots, c[4])
		}
		assert.Equal(t, []byte{0x1b, 0x1c, 0x1f, 0x20}, slots)
		assert.Equal(t, "0e010055", hex.EncodeToString(cmds[1][21:25]))
		assert.Equal(t, "08001fa5", hex.EncodeToString(cmds[2][21:25]))
		assert.Equal(t, "080007fd", hex.EncodeToString(cmds[3][21:25]))
	})

	t.Run("各类型命令数量", func(t *testing.T) {
		p := mustPanel(t, fullYAML)
		mac := mustMAC(t, p)
		counts := map[int]int{0: 4, 1: 5, 2: 5, 3: 4, 5: 5, 6: 5, 8: 6, 9: 2}
		for idx, n := range counts {
			cmds, err := ChannelCommands(mac, p.Channel(idx))
			require.NoError(t, err, "channel %d", idx)
			assert.Len(t, cmds, n, "channel %d", idx)
		}
	})

	t.Run("模板长度字节等于剩余长度", func(t *testing.T) {
		p := mustPanel(t, fullYAML)
		mac := mustMAC(t, p)
		for _, idx := range []int{0, 1, 2, 3, 5, 6, 8, 9} {
			cmds, err := ChannelCommands(mac, p.Channel(idx))
			require.NoError(t, err)
			for _, c := range cmds {
				body := c[25:]
				assert.Equal(t, len(body)-1, int(body[0]), "channel %d slot %02x", idx, c[4])
				assert.Equal(t, mac, c[5:13])
			}
		}
	})

	t.Run("色温与彩色灯附加槽位", func(t *testing.T) {
		p := mustPanel(t, fullYAML)
		mac := mustMAC(t, p)
		ct, err := ChannelCommands(mac, p.Channel(1))
		require.NoError(t, err)
		assert.Equal(t, "0e020055", hex.EncodeToString(ct[4][21:25]))
		assert.Equal(t, byte(0x21+2), ct[4][4])

		color, err := ChannelCommands(mac, p.Channel(2))
		require.NoError(t, err)
		assert.Equal(t, "0e080055", hex.EncodeToString(color[4][21:25]))
		assert.Equal(t, byte(0x27+3), color[4][4])
		// 彩色灯开关模板末尾为 32
		assert.Equal(t, "3200", hex.EncodeToString(color[0][len(color[0])-2:]))
	})

	t.Run("窗帘编号与类型", func(t *testing.T) {
		p := mustPanel(t, fullYAML)
		cmds, err := ChannelCommands(mustMAC(t, p), p.Channel(6))
		require.NoError(t, err)
		// curtain_2 为卷帘，页码 7(2+5)
		assert.Equal(t, "0000000001473300", hex.EncodeToString(cmds[0][len(cmds[0])-8:]))
		assert.Equal(t, "curtain2", string(cmds[0][13:21]))
	})

	t.Run("空调外部温控", func(t *testing.T) {
		p := mustPanel(t, fullYAML)
		cmds, err := ChannelCommands(mustMAC(t, p), p.Channel(8))
		require.NoError(t, err)
		assert.Equal(t, "0e200055", hex.EncodeToString(cmds[0][21:25]))
		assert.Equal(t, "air_cond", string(cmds[0][13:21]))
	})

	t.Run("错误", func(t *testing.T) {
		p := mustPanel(t, lightOnlyYAML)
		_, err := ChannelCommands(mustMAC(t, p), nil)
		assert.ErrorIs(t, err, ErrUnknownChannel)

		_, err = ChannelCommands([]byte{1, 2}, p.Channel(0))
		assert.Error(t, err)
	})
}

func TestRemovalCommands(t *testing.T) {
	mac, err := panel.AddressBytes(panelAddr)
	require.NoError(t, err)

	cmds, err := RemovalCommands(mac, 1)
	require.NoError(t, err)
	require.Len(t, cmds, 6)
	assert.Equal(t, "604f744826"+"54ef441000051234"+"000000000000000000000000", hex.EncodeToString(cmds[0]))
	assert.Equal(t, byte(0x21), cmds[5][4])

	cmds, err = RemovalCommands(mac, panel.IndexTemperatureSensor)
	require.NoError(t, err)
	assert.Len(t, cmds, 2)

	_, err = RemovalCommands(mac, panel.IndexScenes)
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestSceneCommands(t *testing.T) {
	t.Run("全部未使用", func(t *testing.T) {
		cmds := SceneCommands(mustPanel(t, lightOnlyYAML))
		require.Len(t, cmds, 1)
		assert.Equal(t, byte(s1.CategoryScene), cmds[0].Category)
		assert.Equal(t, byte(s1.ActionConfigure), cmds[0].Action)
		assert.Len(t, cmds[0].Payload, 30)
		assert.Equal(t, "6046990601", hex.EncodeToString(cmds[0].Payload[:5]))
	})

	t.Run("启用与未使用", func(t *testing.T) {
		cmds := SceneCommands(mustPanel(t, fullYAML))
		require.Len(t, cmds, 2)
		assert.Len(t, cmds[0].Payload, 25)
		assert.Equal(t, byte(s1.ActionReport), cmds[1].Action)
		want := "6046990602" + hex.EncodeToString([]byte("scene_02")) + "05" + "05" + hex.EncodeToString([]byte("Movie"))
		assert.Equal(t, want, hex.EncodeToString(cmds[1].Payload))
	})

	t.Run("长名称平分载荷长度", func(t *testing.T) {
		long := strings.Repeat("Living room ", 10)
		var b strings.Builder
		b.WriteString("panels:\n  \"0x54ef441000051234\":\n")
		for n := 1; n <= panel.SceneCount; n++ {
			fmt.Fprintf(&b, "    scene_%d: {enabled: true, name: %q, icon: 1}\n", n, long)
		}
		cmds := SceneCommands(mustPanel(t, b.String()))
		require.Len(t, cmds, 1)
		assert.LessOrEqual(t, len(cmds[0].Payload), s1.MaxPayload)

		// 每个场景：标识5 + 序列号8 + 图标1 + 长度1 + 名称27
		name := cmds[0].Payload[14 : 14+1+27]
		assert.Equal(t, byte(27), name[0])
		assert.Equal(t, long[:27], string(name[1:]))

		_, err := outbound.NewJob(nil, panelAddr, panel.IndexScenes, outbound.KindScenes, cmds)
		require.NoError(t, err)
	})
}

func TestNameCommand(t *testing.T) {
	got := NameCommand([]byte("lights/1"), "Kitchen")
	assert.Equal(t, hex.EncodeToString([]byte("lights/1"))+"08001fa5"+"07"+hex.EncodeToString([]byte("Kitchen")), hex.EncodeToString(got))

	// GBK：每个汉字2字节
	got = NameCommand([]byte("lights/1"), "客厅")
	assert.Equal(t, byte(4), got[12])
	assert.Len(t, got, 17)

	got = NameCommand([]byte("lights/1"), strings.Repeat("客厅", 100))
	assert.Len(t, got, s1.MaxPayload, "名称截断到载荷上限")
	assert.Equal(t, byte(242), got[12])
}

func newPlanner() (*Planner, *storage.FingerprintStore) {
	store := storage.NewFingerprintStore(storage.NewMemoryKV())
	return New(store, nil, nil), store
}

func TestPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("首次规划与幂等", func(t *testing.T) {
		pl, store := newPlanner()
		p := mustPanel(t, lightOnlyYAML)

		plan, err := pl.Plan(ctx, []*panel.Panel{p})
		require.NoError(t, err)
		require.Len(t, plan.Jobs, 2)
		assert.Equal(t, []string{panelAddr}, plan.Panels)
		assert.Empty(t, plan.Names)

		light := plan.Jobs[0]
		assert.Equal(t, 0, light.Index)
		assert.Equal(t, outbound.KindConfigure, light.Kind)
		require.Len(t, light.Commands, 4)
		assert.Len(t, light.Frames, 5)
		assert.True(t, light.Frames[0].IsMultiPart())
		for _, c := range light.Commands {
			assert.Equal(t, byte(s1.ActionConfigure), c.Action)
			assert.Equal(t, byte(s1.CategoryToDevice), c.Category)
		}

		scenes := plan.Jobs[1]
		assert.Equal(t, panel.IndexScenes, scenes.Index)
		assert.Equal(t, outbound.KindScenes, scenes.Kind)

		for _, j := range plan.Jobs {
			require.NoError(t, store.SaveFingerprint(ctx, j.Panel, j.Index, j.Payloads()))
		}

		plan, err = pl.Plan(ctx, []*panel.Panel{p})
		require.NoError(t, err)
		assert.Empty(t, plan.Jobs)
		require.Len(t, plan.Names, 1)
		assert.Equal(t, "Kitchen", plan.Names[0].Name)
		require.Len(t, plan.Names[0].Frames, 1)

		f, err := s1.Decode(plan.Names[0].Frames[0])
		require.NoError(t, err)
		assert.Equal(t, byte(s1.ActionSetState), f.Action)
		assert.Equal(t, NameCommand([]byte("lights/1"), "Kitchen"), f.Payload)

		require.NoError(t, store.SaveName(ctx, panelAddr, 0, "Kitchen"))
		plan, err = pl.Plan(ctx, []*panel.Panel{p})
		require.NoError(t, err)
		assert.Empty(t, plan.Jobs)
		assert.Empty(t, plan.Names)
	})

	t.Run("配置变化后重新写入", func(t *testing.T) {
		pl, store := newPlanner()
		p := mustPanel(t, lightOnlyYAML)
		plan, err := pl.Plan(ctx, []*panel.Panel{p})
		require.NoError(t, err)
		for _, j := range plan.Jobs {
			require.NoError(t, store.SaveFingerprint(ctx, j.Panel, j.Index, j.Payloads()))
		}

		p.Lights[0].Type = panel.LightOnOff
		plan, err = pl.Plan(ctx, []*panel.Panel{p})
		require.NoError(t, err)
		require.Len(t, plan.Jobs, 1)
		assert.Equal(t, 0, plan.Jobs[0].Index)
	})

	t.Run("停用通道生成移除任务", func(t *testing.T) {
		pl, store := newPlanner()
		p := mustPanel(t, lightOnlyYAML)
		require.NoError(t, store.SaveFingerprint(ctx, panelAddr, 1, [][]byte{{0x01}}))
		require.NoError(t, store.SaveFingerprint(ctx, panelAddr, 0, nil))

		plan, err := pl.Plan(ctx, []*panel.Panel{p})
		require.NoError(t, err)
		require.Len(t, plan.Jobs, 3)

		removal := plan.Jobs[0]
		assert.Equal(t, 1, removal.Index)
		assert.Equal(t, outbound.KindRemove, removal.Kind)
		require.Len(t, removal.Commands, 6)
		assert.Equal(t, byte(s1.ActionRemove), removal.Commands[0].Action)
		assert.Equal(t, 0, plan.Jobs[1].Index)
		assert.Equal(t, panel.IndexScenes, plan.Jobs[2].Index)
	})

	t.Run("压栈顺序为9到0再场景", func(t *testing.T) {
		pl, _ := newPlanner()
		plan, err := pl.Plan(ctx, []*panel.Panel{mustPanel(t, fullYAML)})
		require.NoError(t, err)
		var got []int
		for _, j := range plan.Jobs {
			got = append(got, j.Index)
		}
		assert.Equal(t, []int{9, 8, 6, 5, 3, 2, 1, 0, panel.IndexScenes}, got)
	})
}
