package panel

import "sort"

// ChannelRef 某块面板上的某个通道
type ChannelRef struct {
	Panel string
	Index int
}

// Links 面板通道与受控设备端点的双向索引
type Links struct {
	byEndpoint map[string][]ChannelRef
	byChannel  map[ChannelRef][]string
	devices    map[string]struct{}
}

// BuildLinks 只收录已启用且配置了端点的通道
func BuildLinks(panels []*Panel) *Links {
	l := &Links{
		byEndpoint: make(map[string][]ChannelRef),
		byChannel:  make(map[ChannelRef][]string),
		devices:    make(map[string]struct{}),
	}
	for _, p := range panels {
		for _, idx := range SlotIndices() {
			ch := p.Channel(idx)
			if ch == nil || !ch.IsEnabled() {
				continue
			}
			c, _ := CommonOf(ch)
			if len(c.Endpoints) == 0 {
				continue
			}
			ref := ChannelRef{Panel: p.Address, Index: idx}
			l.byChannel[ref] = c.Endpoints
			for _, ep := range c.Endpoints {
				l.byEndpoint[ep] = append(l.byEndpoint[ep], ref)
				dev, _ := ParseEndpoint(ep)
				l.devices[dev] = struct{}{}
			}
		}
	}
	return l
}

// ChannelsFor 链接到该端点（设备地址或 地址/端点名）的面板通道
func (l *Links) ChannelsFor(endpoint string) []ChannelRef {
	return l.byEndpoint[endpoint]
}

// Endpoints 通道链接的端点列表
func (l *Links) Endpoints(ref ChannelRef) []string {
	return l.byChannel[ref]
}

// Devices 所有被链接的设备地址（排序）
func (l *Links) Devices() []string {
	out := make([]string, 0, len(l.devices))
	for d := range l.devices {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
