// Package config 负责加载和验证 YAML 配置文件。
// 提供做市核心所需的所有配置项，包括交易所连接、
// 队列容量、冷却窗口、落盘输出等。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Instrument 做市合约标识，如 BTCUSDT
	Instrument string `yaml:"instrument"`
	// WS WebSocket 连接配置
	WS WSConfig `yaml:"ws"`
	// REST 持仓查询 REST 配置
	REST RESTConfig `yaml:"rest"`
	// Maker 做市核心参数
	Maker MakerConfig `yaml:"maker"`
	// Output 成交日志输出配置
	Output OutputConfig `yaml:"output"`
	// Storage SQLite 持久化配置
	Storage StorageConfig `yaml:"storage"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// LogDir 滚动日志目录（为空则只输出 stdout）
	LogDir string `yaml:"log_dir"`
}

// WSConfig WebSocket 连接配置
type WSConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
}

// RESTConfig 持仓查询 REST 配置
type RESTConfig struct {
	// PositionURL 持仓查询地址（为空则禁用持仓查询）
	PositionURL string `yaml:"position_url"`
	// TimeoutMs HTTP 请求超时（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
}

// MakerConfig 做市核心参数
type MakerConfig struct {
	// QueueCapacity 每个价格订阅队列的容量
	QueueCapacity int `yaml:"queue_capacity"`
	// CooldownMs 风控冷却窗口默认时长（毫秒）
	CooldownMs int `yaml:"cooldown_ms"`
	// PendingTimeoutMs 槽位 pending 状态最长停留时间（毫秒）
	// 超时后由清扫循环回收为 free
	PendingTimeoutMs int `yaml:"pending_timeout_ms"`
	// SweepIntervalMs 清扫循环间隔（毫秒）
	SweepIntervalMs int `yaml:"sweep_interval_ms"`
}

// Cooldown 获取冷却窗口时长
func (m *MakerConfig) Cooldown() time.Duration {
	return time.Duration(m.CooldownMs) * time.Millisecond
}

// PendingTimeout 获取 pending 超时时长
func (m *MakerConfig) PendingTimeout() time.Duration {
	return time.Duration(m.PendingTimeoutMs) * time.Millisecond
}

// SweepInterval 获取清扫间隔
func (m *MakerConfig) SweepInterval() time.Duration {
	return time.Duration(m.SweepIntervalMs) * time.Millisecond
}

// OutputConfig 成交日志输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// FillsEnabled 是否输出成交 JSONL 文件
	FillsEnabled bool `yaml:"fills_enabled"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// StorageConfig SQLite 持久化配置
type StorageConfig struct {
	// Enabled 是否启用 SQLite 持久化
	Enabled bool `yaml:"enabled"`
	// Path 数据库文件路径
	Path string `yaml:"path"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "grid-market-maker"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.WS.PingIntervalMs == 0 {
		c.WS.PingIntervalMs = 25000 // 25 秒
	}
	if c.WS.ReadTimeoutMs == 0 {
		c.WS.ReadTimeoutMs = 30000 // 30 秒
	}

	if c.REST.TimeoutMs == 0 {
		c.REST.TimeoutMs = 5000 // 5 秒
	}

	if c.Maker.QueueCapacity == 0 {
		c.Maker.QueueCapacity = 16
	}
	if c.Maker.CooldownMs == 0 {
		c.Maker.CooldownMs = 30000 // 30 秒
	}
	if c.Maker.PendingTimeoutMs == 0 {
		c.Maker.PendingTimeoutMs = 60000 // 60 秒
	}
	if c.Maker.SweepIntervalMs == 0 {
		c.Maker.SweepIntervalMs = 1000 // 1 秒
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "./data/maker.db"
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	if c.Instrument == "" {
		errs = append(errs, "instrument: 做市合约不能为空")
	}

	if c.WS.URL == "" {
		errs = append(errs, "ws.url: WebSocket 地址不能为空")
	}
	if c.WS.PingIntervalMs < 0 {
		errs = append(errs, "ws.ping_interval_ms: 心跳间隔不能为负数")
	}
	if c.WS.ReadTimeoutMs < 0 {
		errs = append(errs, "ws.read_timeout_ms: 读取超时不能为负数")
	}

	if c.Maker.QueueCapacity <= 0 {
		errs = append(errs, "maker.queue_capacity: 队列容量必须为正数")
	}
	if c.Maker.CooldownMs <= 0 {
		errs = append(errs, "maker.cooldown_ms: 冷却时长必须为正数")
	}
	if c.Maker.PendingTimeoutMs <= 0 {
		errs = append(errs, "maker.pending_timeout_ms: pending 超时必须为正数")
	}
	if c.Maker.SweepIntervalMs <= 0 {
		errs = append(errs, "maker.sweep_interval_ms: 清扫间隔必须为正数")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
