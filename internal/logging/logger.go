// Package logging 构建应用统一的 zap 日志器。
// 输出到 stdout，同时经 lumberjack 写入滚动日志文件。
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New 创建 zap 日志器
// 参数 level: 日志级别 debug/info/warn/error（非法值按 info 处理）
// 参数 dir: 日志文件目录（为空则只输出 stdout）
func New(level, dir string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   filepath.Join(dir, "maker.log"),
				MaxSize:    50, // MB
				MaxBackups: 5,
				MaxAge:     14, // 天
				Compress:   true,
			}
			sinks = append(sinks, zapcore.AddSync(rotator))
		}
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), lvl)
	return zap.New(core, zap.AddCaller())
}
