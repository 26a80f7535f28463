package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"marketplace-client-go/config"
	"marketplace-client-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	watchConfig := flag.Bool("watchConfig", false, "监听配置文件变更并记录")
	flag.Parse()

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("初始化容器失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("构建组件失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动失败: %v", err)
	}
	logger := c.Logger()
	logger.Info("order client started")

	// systemd 就绪通知；非 systemd 环境下是空操作
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdogLoop(ctx, c)

	if *watchConfig {
		go func() {
			w := config.Watcher{Path: *cfgPath}
			_ = w.Start(ctx, func(cfg config.AppConfig) {
				logger.Info("config reloaded; restart to apply gateway changes")
			})
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	logger.Info("shutting down")
	cancel()
	if err := c.Stop(); err != nil {
		logger.Sugar().Errorf("shutdown error: %v", err)
	}
}

// watchdogLoop 按 systemd 要求的周期上报存活；健康检查失败时不上报，
// 交由 watchdog 重启进程。
func watchdogLoop(ctx context.Context, c *container.Container) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Health() == nil {
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}
}
