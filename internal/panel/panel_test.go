package panel

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
panels:
  "0x54ef441000051234":
    light_1:
      enabled: true
      name: Kitchen
      type: dimmable
      endpoints: ["0x00158d0001aaaaaa", "0x00158d0001bbbbbb/l2"]
    light_2:
      enabled: false
      name: Hall
      type: ct
    curtain_1:
      enabled: true
      name: Blinds
      type: roller
      endpoints: ["0x00158d0001cccccc"]
    ac:
      enabled: true
      name: Cooler
      internal_thermostat: true
      modes: [cool, heat]
      fan_modes: [low, auto]
      temperature_ranges:
        cool: {lowest: 16, highest: 30}
      endpoints: ["0x00158d0001dddddd"]
    temperature_sensor:
      enabled: true
      name: Temp
    scene_1:
      enabled: true
      name: Movie
      icon: 3
      execute:
        "0x00158d0001aaaaaa": {on: "true", brightness: "100"}
    scene_2:
      enabled: false
      name: Off
      icon: 1
`

func TestParse(t *testing.T) {
	panels, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, panels, 1)
	p := panels[0]

	mac, err := p.MAC()
	require.NoError(t, err)
	assert.Equal(t, "54ef441000051234", hex.EncodeToString(mac))

	l1, ok := p.Channel(0).(*Light)
	require.True(t, ok)
	assert.Equal(t, LightDimmable, l1.Type)
	assert.Equal(t, "light_1", l1.Key())
	assert.Equal(t, 0, l1.Index())
	assert.True(t, l1.IsEnabled())

	l2 := p.Channel(1)
	require.NotNil(t, l2)
	assert.False(t, l2.IsEnabled())

	assert.Nil(t, p.Channel(2), "未配置的通道返回 nil 接口")

	c1, ok := p.Channel(5).(*Curtain)
	require.True(t, ok)
	assert.Equal(t, CurtainRoller, c1.Type)
	assert.Equal(t, 5, c1.Index())

	require.NotNil(t, p.AC)
	assert.True(t, p.AC.HasMode(ModeCool))
	assert.False(t, p.AC.HasMode(ModeDry))
	assert.Equal(t, TemperatureRange{Lowest: 16, Highest: 30}, p.AC.TemperatureRanges[ModeCool])

	s1 := p.Scene(1)
	require.NotNil(t, s1)
	assert.Equal(t, 3, s1.Icon)
	assert.Equal(t, "true", s1.Execute["0x00158d0001aaaaaa"]["on"])
	assert.Equal(t, 1, p.EnabledScenes())
	assert.Nil(t, p.Scene(7))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"地址非法", "panels:\n  \"0x12\":\n    ac: {enabled: true}\n"},
		{"灯光类型未知", "panels:\n  \"0x54ef441000051234\":\n    light_1: {enabled: true, type: rgbw}\n"},
		{"窗帘类型未知", "panels:\n  \"0x54ef441000051234\":\n    curtain_2: {enabled: true, type: venetian}\n"},
		{"空调模式未知", "panels:\n  \"0x54ef441000051234\":\n    ac: {enabled: true, modes: [turbo]}\n"},
		{"温度范围倒置", "panels:\n  \"0x54ef441000051234\":\n    ac: {enabled: true, temperature_ranges: {cool: {lowest: 30, highest: 16}}}\n"},
		{"YAML语法错误", "panels: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSlotTableDoesNotOverlap(t *testing.T) {
	seen := make(map[string]string)
	for _, idx := range SlotIndices() {
		s, ok := SlotFor(idx)
		require.True(t, ok)
		for i := range s.Slots {
			id := hex.EncodeToString(s.SlotID(i))
			if owner, dup := seen[id]; dup {
				t.Fatalf("slot %s used by %s and %s", id, owner, s.Key)
			}
			seen[id] = s.Key
		}
	}
	assert.Len(t, seen, 5*6+3*6+6+2)
}

func TestSerials(t *testing.T) {
	tests := []struct {
		index  int
		serial string
	}{
		{0, "6c69676874732f31"},
		{4, "6c69676874732f35"},
		{5, "6375727461696e31"},
		{7, "6375727461696e33"},
		{8, "6169725f636f6e64"},
		{9, "74656d70736e7372"},
	}
	for _, tt := range tests {
		s, ok := SlotFor(tt.index)
		require.True(t, ok)
		assert.Equal(t, tt.serial, hex.EncodeToString(s.Serial[:]))

		raw, _ := hex.DecodeString(tt.serial)
		idx, ok := IndexBySerial(raw)
		require.True(t, ok)
		assert.Equal(t, tt.index, idx)
	}

	assert.Equal(t, "7363656e655f3033", hex.EncodeToString(SceneSerial(3)))
	assert.Equal(t, "6046990605", hex.EncodeToString(SceneID(5)))

	_, ok := SlotFor(10)
	assert.False(t, ok)
}

func TestLinks(t *testing.T) {
	panels, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	links := BuildLinks(panels)

	refs := links.ChannelsFor("0x00158d0001bbbbbb/l2")
	require.Len(t, refs, 1)
	assert.Equal(t, ChannelRef{Panel: "0x54ef441000051234", Index: 0}, refs[0])

	assert.Equal(t, []string{"0x00158d0001aaaaaa", "0x00158d0001bbbbbb/l2"}, links.Endpoints(refs[0]))
	assert.Empty(t, links.ChannelsFor("0x00158d0001eeeeee"))
	assert.Equal(t, []string{"0x00158d0001aaaaaa", "0x00158d0001bbbbbb", "0x00158d0001cccccc", "0x00158d0001dddddd"}, links.Devices())

	dev, ep := ParseEndpoint("0x00158d0001bbbbbb/l2")
	assert.Equal(t, "0x00158d0001bbbbbb", dev)
	assert.Equal(t, "_l2", KeySuffix(ep))
	assert.Equal(t, "", KeySuffix(""))
}
