package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Pprof        HTTPPprof     `mapstructure:"pprof"`
}

// HTTPPprof HTTP pprof 配置
type HTTPPprof struct {
	Enable bool   `mapstructure:"enable"`
	Prefix string `mapstructure:"prefix"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	KeyPrefix    string        `mapstructure:"keyPrefix"`
}

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	AutoMigrate     bool          `mapstructure:"autoMigrate"`
}

// MQTTConfig 设备总线（zigbee2mqtt 风格）连接配置
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"clientId"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	BaseTopic      string        `mapstructure:"baseTopic"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	KeepAlive      time.Duration `mapstructure:"keepAlive"`
}

// PanelConfig 面板协议引擎配置
type PanelConfig struct {
	File             string        `mapstructure:"file"` // 面板通道定义 YAML
	AckTimeout       time.Duration `mapstructure:"ackTimeout"`
	MaxFailures      int           `mapstructure:"maxFailures"`
	NameInterval     time.Duration `mapstructure:"nameInterval"` // 名称更新的发送间隔
	Counter          byte          `mapstructure:"counter"`
	Coordinator      string        `mapstructure:"coordinator"` // 协调器 IEEE 地址，天气页帧以其 MAC 开头
	ControlsEnabled  bool          `mapstructure:"controlsEnabled"`
	Store            string        `mapstructure:"store"` // 指纹存储后端：memory / redis / postgres
	ConfigureOnStart bool          `mapstructure:"configureOnStart"`
}

// APIConfig 管理接口配置
type APIConfig struct {
	Auth APIAuthConfig `mapstructure:"auth"`
}

// APIAuthConfig API Key 认证
type APIAuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// Config 顶层配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Panel    PanelConfig    `mapstructure:"panel"`
	API      APIConfig      `mapstructure:"api"`
}

// 指纹存储后端
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 PANEL_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	// 环境变量覆盖：前缀 PANEL_，并将点号替换为下划线
	v.SetEnvPrefix("PANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Panel.Store {
	case StoreMemory:
	case StoreRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("panel.store=redis requires redis.enabled")
		}
	case StorePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("panel.store=postgres requires database.dsn")
		}
	default:
		return fmt.Errorf("unknown panel.store %q", c.Panel.Store)
	}
	if c.Panel.MaxFailures < 1 {
		return fmt.Errorf("panel.maxFailures must be >= 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "s1-panel-bridge")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")
	v.SetDefault("http.pprof.enable", false)
	v.SetDefault("http.pprof.prefix", "/debug/pprof")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/s1-panel-bridge.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.keyPrefix", "s1panel:")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxOpenConns", 5)
	v.SetDefault("database.maxIdleConns", 1)
	v.SetDefault("database.connMaxLifetime", "1h")
	v.SetDefault("database.autoMigrate", true)

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientId", "s1-panel-bridge")
	v.SetDefault("mqtt.baseTopic", "zigbee2mqtt")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.connectTimeout", "10s")
	v.SetDefault("mqtt.keepAlive", "30s")

	v.SetDefault("panel.file", "configs/panels.yaml")
	v.SetDefault("panel.ackTimeout", "10s")
	v.SetDefault("panel.maxFailures", 3)
	v.SetDefault("panel.nameInterval", "1s")
	v.SetDefault("panel.counter", 0x6d)
	v.SetDefault("panel.coordinator", "0x0000000000000000")
	v.SetDefault("panel.controlsEnabled", true)
	v.SetDefault("panel.store", StoreMemory)
	v.SetDefault("panel.configureOnStart", true)

	v.SetDefault("api.auth.enabled", false)
}
