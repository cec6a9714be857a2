package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"animatronic/cli"
	"animatronic/clock"
	"animatronic/driver"
	"animatronic/logs"
	"animatronic/ramp"
	"animatronic/servo"
)

const (
	moveMs = 800
	holdMs = 300
	tick   = 20 * time.Millisecond
)

// sweepPositions 每个舵机依次经过的位置
var sweepPositions = []float64{0, -1, 0, 1, 0}

func main() {
	cfg, names, err := cli.ParseArgs(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 配置错误: %v\n", err)
		os.Exit(2)
	}

	closer, err := logs.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 日志初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	drv, err := driver.CreateDriver(cfg.Driver)
	if err != nil {
		slog.Error("❌ 创建舵机驱动失败", "error", err)
		os.Exit(1)
	}
	defer drv.Close()

	clk := clock.NewSystem()
	rig, err := servo.BuildRig(cfg.Servos, drv, clk)
	if err != nil {
		slog.Error("❌ 创建舵机组失败", "error", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		names = rig.Names()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("🧪 开始舵机扫动测试", "driver", drv.Name(), "servos", names)
	if err := sweep(ctx, rig, names, sleeper(ctx)); err != nil {
		slog.Error("❌ 扫动测试中断", "error", err)
		rig.ApplyToAll(func(s *servo.Servo) { s.Hold(0) })
		os.Exit(1)
	}
	slog.Info("✅ 扫动测试完成")
}

func sleeper(ctx context.Context) func(time.Duration) {
	return func(d time.Duration) {
		select {
		case <-ctx.Done():
		case <-time.After(d):
		}
	}
}

// sweep 逐个把舵机从中位扫到两端再回中位，驱动写入失败时返回错误
func sweep(ctx context.Context, rig *servo.Rig, names []string, wait func(time.Duration)) error {
	for _, name := range names {
		s, err := rig.Get(name)
		if err != nil {
			return err
		}
		cal := s.Calibration()
		slog.Info("🔄 扫动舵机", "servo", name, "channel", s.Channel(), "minUs", cal.MinUs, "maxUs", cal.MaxUs)

		for _, position := range sweepPositions {
			s.SetTarget(position, moveMs, ramp.Default)
			for s.Ramping() {
				if err := ctx.Err(); err != nil {
					return err
				}
				wait(tick)
				s.Update()
			}
			if count, lastErr := s.Errors(); count > 0 {
				return fmt.Errorf("舵机 %s 写入失败 %d 次：%w", name, count, lastErr)
			}
			wait(holdMs * time.Millisecond)
		}
	}
	return nil
}
