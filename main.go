package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"animatronic/api"
	"animatronic/cli"
	"animatronic/driver"
	"animatronic/engine"
	"animatronic/logs"
)

func main() {
	cfg := cli.ParseConfig()

	closer, err := logs.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 日志初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	slog.Info("🔧 服务配置",
		"driver", cfg.Driver.Kind,
		"drivers", driver.SupportedDrivers(),
		"servos", len(cfg.Servos),
		"animations", cfg.Storage.Dir,
		"audio", cfg.Audio.Enabled,
		"tickMs", cfg.TickMs)

	e, res, err := engine.FromConfig(cfg)
	if err != nil {
		slog.Error("❌ 引擎初始化失败", "error", err)
		os.Exit(1)
	}
	defer res.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Run(ctx); err != nil {
			slog.Error("❌ 主循环异常退出", "error", err)
			stop()
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	server := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(e, cfg.Server),
	}

	go func() {
		slog.Info("🌐 动画控制服务已启动", "addr", "http://"+addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("❌ 服务启动失败", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("🛑 正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("⚠️ HTTP 服务关闭超时", "error", err)
	}
	<-e.Stopped()
	slog.Info("👋 服务已退出")
}
