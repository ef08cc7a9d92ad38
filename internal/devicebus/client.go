package devicebus

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/s1-panel-bridge/internal/config"
	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
)

var (
	ErrNotConnected   = errors.New("device bus not connected")
	ErrPublishTimeout = errors.New("publish timeout")
)

const (
	inboxSize      = 1024
	publishTimeout = 5 * time.Second
	bridgeDevices  = "bridge/devices"
)

// FrameHandler 面板上行帧（已去重、已解码十六进制）
type FrameHandler func(ctx context.Context, panel string, raw []byte)

// StateHandler 设备状态变化
type StateHandler func(ctx context.Context, device string, changes []Change)

// broker paho 客户端中用到的部分
type broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

type message struct {
	topic   string
	payload []byte
}

// Client zigbee2mqtt 风格的设备总线客户端
// 入站消息先进入缓冲队列，由 Run 按顺序处理，paho 回调不会被业务阻塞。
type Client struct {
	cfg      cfgpkg.MQTTConfig
	base     string
	registry *Registry
	logger   *zap.Logger

	mu       sync.Mutex
	conn     broker
	panels   map[string]bool
	lastComm map[string]string
	onFrame  FrameHandler
	onState  StateHandler

	inbox     chan message
	ready     chan struct{}
	readyOnce sync.Once
}

// New 创建客户端，需调用 Connect 建立连接、Run 处理入站消息
func New(cfg cfgpkg.MQTTConfig, registry *Registry, logger *zap.Logger) *Client {
	if registry == nil {
		registry = NewRegistry()
	}
	base := strings.TrimSuffix(cfg.BaseTopic, "/")
	if base == "" {
		base = "zigbee2mqtt"
	}
	return &Client{
		cfg:      cfg,
		base:     base,
		registry: registry,
		logger:   logging.OrNop(logger),
		panels:   make(map[string]bool),
		lastComm: make(map[string]string),
		inbox:    make(chan message, inboxSize),
		ready:    make(chan struct{}),
	}
}

// Registry 设备注册表
func (c *Client) Registry() *Registry {
	return c.registry
}

// Handle 设置入站回调
func (c *Client) Handle(onFrame FrameHandler, onState StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = onFrame
	c.onState = onState
}

// WatchPanels 登记面板地址，其 communication 字段按上行帧处理
func (c *Client) WatchPanels(addrs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range addrs {
		c.panels[normalize(a)] = true
	}
}

// Connect 连接代理并订阅设备、可用性与设备列表主题
func (c *Client) Connect(ctx context.Context) error {
	clientID := c.cfg.ClientID
	if clientID == "" {
		clientID = "s1-panel-bridge"
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(clientID + "-" + uuid.NewString()[:8])
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}
	if c.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(c.cfg.KeepAlive)
	}
	if c.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(cl mqtt.Client) {
		c.logger.Info("connected to mqtt broker", zap.String("broker", c.cfg.Broker))
		filters := map[string]byte{
			c.base + "/+":                c.cfg.QoS,
			c.base + "/+/availability":   c.cfg.QoS,
			c.base + "/" + bridgeDevices: c.cfg.QoS,
		}
		if t := cl.SubscribeMultiple(filters, c.receive); t.Wait() && t.Error() != nil {
			c.logger.Error("mqtt subscribe failed", zap.Error(t.Error()))
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("mqtt connection lost", zap.Error(err))
	})

	cl := mqtt.NewClient(opts)
	if err := wait(ctx, cl.Connect(), c.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("connect mqtt %s: %w", c.cfg.Broker, err)
	}
	c.mu.Lock()
	c.conn = cl
	c.mu.Unlock()
	return nil
}

// Close 断开连接
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Disconnect(250)
	}
}

// IsConnected 连接状态
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Ready 收到设备列表后关闭
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

func wait(ctx context.Context, t mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = publishTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPublishTimeout
	}
}

func (c *Client) publish(ctx context.Context, device string, payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	topic := c.base + "/" + c.registry.TopicName(device) + "/set"
	return wait(ctx, conn.Publish(topic, c.cfg.QoS, false, payload), publishTimeout)
}

// Publish 向面板发送一帧：{"communication":"<hex>"}
func (c *Client) Publish(ctx context.Context, panel string, frame []byte) error {
	payload, err := json.Marshal(map[string]string{"communication": hex.EncodeToString(frame)})
	if err != nil {
		return err
	}
	return c.publish(ctx, panel, payload)
}

// SetDevice 向受控设备发送控制指令
func (c *Client) SetDevice(ctx context.Context, device string, values map[string]any) error {
	payload, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if err := c.publish(ctx, device, payload); err != nil {
		return fmt.Errorf("set device %s: %w", device, err)
	}
	return nil
}

// PublishEvent 发布瞬时按键事件到 <base>/<device>/action
func (c *Client) PublishEvent(ctx context.Context, device, event string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	topic := c.base + "/" + c.registry.TopicName(device) + "/action"
	return wait(ctx, conn.Publish(topic, c.cfg.QoS, false, []byte(event)), publishTimeout)
}

// receive paho 回调，只入队
func (c *Client) receive(_ mqtt.Client, msg mqtt.Message) {
	select {
	case c.inbox <- message{topic: msg.Topic(), payload: append([]byte(nil), msg.Payload()...)}:
	default:
		c.logger.Warn("device bus inbox full, message dropped", zap.String("topic", msg.Topic()))
	}
}

// Run 顺序处理入站消息直到 ctx 结束
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.inbox:
			c.handle(ctx, m.topic, m.payload)
		}
	}
}

func (c *Client) handle(ctx context.Context, topic string, payload []byte) {
	rest, ok := strings.CutPrefix(topic, c.base+"/")
	if !ok {
		return
	}
	if rest == bridgeDevices {
		c.handleDevices(payload)
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[1] == "availability":
		c.registry.SetAvailability(c.registry.AddressOf(parts[0]), parseAvailability(payload))
	case len(parts) == 1 && parts[0] != "bridge":
		c.handleState(ctx, c.registry.AddressOf(parts[0]), payload)
	}
}

type bridgeDevice struct {
	IEEEAddress  string `json:"ieee_address"`
	FriendlyName string `json:"friendly_name"`
}

func (c *Client) handleDevices(payload []byte) {
	var list []bridgeDevice
	if err := json.Unmarshal(payload, &list); err != nil {
		c.logger.Warn("invalid bridge devices payload", zap.Error(err))
		return
	}
	names := make(map[string]string, len(list))
	for _, d := range list {
		if d.IEEEAddress == "" {
			continue
		}
		name := d.FriendlyName
		if name == "" {
			name = d.IEEEAddress
		}
		names[d.IEEEAddress] = name
	}
	c.registry.SetNames(names)
	c.logger.Info("bus devices updated", zap.Int("count", len(names)))
	c.readyOnce.Do(func() { close(c.ready) })
}

func parseAvailability(payload []byte) string {
	var v struct {
		State string `json:"state"`
	}
	if json.Unmarshal(payload, &v) == nil && v.State != "" {
		return v.State
	}
	return strings.TrimSpace(string(payload))
}

func (c *Client) handleState(ctx context.Context, addr string, payload []byte) {
	var state map[string]any
	if err := json.Unmarshal(payload, &state); err != nil {
		c.logger.Debug("non-json device payload ignored", zap.String("device", addr), zap.Error(err))
		return
	}

	c.mu.Lock()
	onFrame, onState := c.onFrame, c.onState
	isPanel := c.panels[normalize(addr)]
	var comm string
	if isPanel {
		comm, _ = state["communication"].(string)
		if comm != "" && comm == c.lastComm[normalize(addr)] {
			comm = ""
		} else if comm != "" {
			c.lastComm[normalize(addr)] = comm
		}
	}
	c.mu.Unlock()

	if comm != "" {
		raw, err := hex.DecodeString(comm)
		if err != nil {
			c.logger.Warn("invalid panel communication", zap.String("panel", addr), zap.String("data", comm))
		} else if onFrame != nil {
			onFrame(ctx, addr, raw)
		}
	}

	changes := c.registry.ApplyState(addr, state)
	if len(changes) > 0 && onState != nil {
		onState(ctx, addr, changes)
	}
}
