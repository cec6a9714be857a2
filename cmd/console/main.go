package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"animatronic/cli"
	"animatronic/console"
	"animatronic/define"
	"animatronic/engine"
	"animatronic/logs"
)

func usage() {
	fmt.Fprintln(os.Stderr, "终端录制控制台")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  animatronic-console [flags] record <name>   录制新动画")
	fmt.Fprintln(os.Stderr, "  animatronic-console [flags] edit <name>     编辑已有动画")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "flags 与 animatronic 服务相同，终端被占用时日志只写入 -log-file")
}

func main() {
	cfg, args, err := cli.ParseArgs(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 配置错误: %v\n", err)
		os.Exit(2)
	}
	if len(args) != 2 || (args[0] != "record" && args[0] != "edit") {
		usage()
		os.Exit(2)
	}
	edit, name := args[0] == "edit", args[1]

	logger, closer, err := logs.New(cfg.Log, io.Discard)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 日志初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	// 录制时不自动播放启动动画和音轨
	cfg.Startup = ""
	cfg.Audio.StartupTrack = 0

	if err := run(cfg, name, edit); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *define.Config, name string, edit bool) error {
	e, res, err := engine.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go e.Run(ctx)
	defer func() {
		stop()
		<-e.Stopped()
	}()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("创建终端失败：%w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("初始化终端失败：%w", err)
	}
	defer screen.Fini()

	panel := console.New(screen, name, e.Rig().Names())
	if _, err := e.BeginRecording(ctx, name, edit, panel); err != nil {
		return err
	}

	err = panel.Run(ctx, e)
	if errors.Is(err, console.ErrInterrupted) || errors.Is(err, context.Canceled) {
		abortErr := e.AbortRecording(context.Background())
		if abortErr != nil && !errors.Is(abortErr, engine.ErrNoSession) && !errors.Is(abortErr, engine.ErrStopped) {
			slog.Warn("⚠️ 中止录制失败", "error", abortErr)
		}
		return nil
	}
	return err
}
