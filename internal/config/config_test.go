// Package config 配置加载测试
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTempConfig 写入临时配置文件并返回路径
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTempConfig(t, `
app:
  name: maker-test
  log_level: debug
instrument: BTCUSDT
ws:
  url: wss://stream.binance.com:9443/ws
  ping_interval_ms: 20000
rest:
  position_url: https://fapi.binance.com/fapi/v2/positionRisk
maker:
  queue_capacity: 32
  cooldown_ms: 45000
  pending_timeout_ms: 90000
output:
  fills_enabled: true
storage:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载有效配置失败: %v", err)
	}

	if cfg.App.Name != "maker-test" {
		t.Errorf("App.Name=%s, want maker-test", cfg.App.Name)
	}
	if cfg.Instrument != "BTCUSDT" {
		t.Errorf("Instrument=%s, want BTCUSDT", cfg.Instrument)
	}
	if cfg.Maker.QueueCapacity != 32 {
		t.Errorf("QueueCapacity=%d, want 32", cfg.Maker.QueueCapacity)
	}
	if cfg.Maker.Cooldown() != 45*time.Second {
		t.Errorf("Cooldown=%v, want 45s", cfg.Maker.Cooldown())
	}
	if cfg.Maker.PendingTimeout() != 90*time.Second {
		t.Errorf("PendingTimeout=%v, want 90s", cfg.Maker.PendingTimeout())
	}
	if !cfg.Output.FillsEnabled || !cfg.Storage.Enabled {
		t.Errorf("落盘开关未生效: output=%v storage=%v", cfg.Output.FillsEnabled, cfg.Storage.Enabled)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
instrument: ETHUSDT
ws:
  url: wss://stream.binance.com:9443/ws
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载最小配置失败: %v", err)
	}

	if cfg.App.Name != "grid-market-maker" {
		t.Errorf("默认 App.Name=%s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("默认 LogLevel=%s, want info", cfg.App.LogLevel)
	}
	if cfg.WS.PingIntervalMs != 25000 {
		t.Errorf("默认心跳间隔=%d, want 25000", cfg.WS.PingIntervalMs)
	}
	if cfg.REST.TimeoutMs != 5000 {
		t.Errorf("默认 REST 超时=%d, want 5000", cfg.REST.TimeoutMs)
	}
	if cfg.Maker.QueueCapacity != 16 {
		t.Errorf("默认队列容量=%d, want 16", cfg.Maker.QueueCapacity)
	}
	if cfg.Maker.Cooldown() != 30*time.Second {
		t.Errorf("默认冷却时长=%v, want 30s", cfg.Maker.Cooldown())
	}
	if cfg.Maker.PendingTimeout() != 60*time.Second {
		t.Errorf("默认 pending 超时=%v, want 60s", cfg.Maker.PendingTimeout())
	}
	if cfg.Maker.SweepInterval() != time.Second {
		t.Errorf("默认清扫间隔=%v, want 1s", cfg.Maker.SweepInterval())
	}
	if cfg.Output.Dir != "./output" || cfg.Output.BufferSize != 1000 {
		t.Errorf("默认输出配置错误: %+v", cfg.Output)
	}
	if cfg.Storage.Path != "./data/maker.db" {
		t.Errorf("默认数据库路径=%s", cfg.Storage.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("不存在的配置文件应报错")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "instrument: [broken")
	if _, err := Load(path); err == nil {
		t.Fatalf("格式错误的 YAML 应报错")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	path := writeTempConfig(t, `
app:
  log_level: verbose
ws:
  ping_interval_ms: -1
maker:
  queue_capacity: -5
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("无效配置应报错")
	}

	// 验证一次性收集全部错误，而不是只报第一个
	msg := err.Error()
	for _, want := range []string{
		"instrument",
		"ws.url",
		"ws.ping_interval_ms",
		"maker.queue_capacity",
		"app.log_level",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("错误信息缺少 %q: %s", want, msg)
		}
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	path := writeTempConfig(t, `
app:
  log_level: WARN
instrument: BTCUSDT
ws:
  url: wss://stream.binance.com:9443/ws
`)

	if _, err := Load(path); err != nil {
		t.Fatalf("大写日志级别应通过验证: %v", err)
	}
}
