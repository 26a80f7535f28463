package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestWatcherStopsOnCancel(t *testing.T) {
	path := writeConfig(t, "gateway:\n  baseURL: https://api.example.com\n")
	w := Watcher{Path: path, Cooldown: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Start(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestWatcherTriggersOnChange(t *testing.T) {
	path := writeConfig(t, "gateway:\n  baseURL: https://api.example.com\n")

	w := Watcher{Path: path, Cooldown: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan AppConfig, 1)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case ch <- cfg:
			default:
			}
		})
	}()

	// 给watcher一点时间建立监听
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("gateway:\n  baseURL: https://changed.example.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-ch:
		if cfg.Gateway.BaseURL != "https://changed.example.com" {
			t.Fatalf("stale config delivered: %q", cfg.Gateway.BaseURL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected update callback")
	}
}

func TestWatcherKeepsOldConfigOnBadReload(t *testing.T) {
	path := writeConfig(t, "gateway:\n  baseURL: https://api.example.com\n")

	w := Watcher{Path: path, Cooldown: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan AppConfig, 1)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case ch <- cfg:
			default:
			}
		})
	}()

	time.Sleep(50 * time.Millisecond)
	// 写入无法通过校验的配置：不回调
	if err := os.WriteFile(path, []byte("gateway:\n  baseURL: ftp://bad\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-ch:
		t.Fatalf("invalid config must not be delivered: %+v", cfg.Gateway)
	case <-time.After(300 * time.Millisecond):
	}
}
