package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"animatronic/define"
)

var level = new(slog.LevelVar)

// ParseLevel 解析 debug / info / warn / error
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("未知的日志级别：%q", s)
}

// SetLevel 运行时调整日志级别
func SetLevel(l slog.Level) { level.Set(l) }

// Level 当前日志级别
func Level() slog.Level { return level.Level() }

// New 创建日志器：终端文本输出，配置了文件时额外写入 JSON 行，两者共用同一级别
func New(cfg define.LogConfig, terminal io.Writer) (*slog.Logger, io.Closer, error) {
	l, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	level.Set(l)

	handlers := []slog.Handler{
		slog.NewTextHandler(terminal, &slog.HandlerOptions{Level: level}),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("打开日志文件失败：%w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		closer = file
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Setup 创建日志器并设为默认
func Setup(cfg define.LogConfig) (io.Closer, error) {
	logger, closer, err := New(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
