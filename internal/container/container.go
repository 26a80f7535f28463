package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-client-go/config"
	"marketplace-client-go/gateway"
	"marketplace-client-go/infrastructure/alert"
	"marketplace-client-go/infrastructure/logger"
	"marketplace-client-go/localdata"
	"marketplace-client-go/monitor"
	"marketplace-client-go/order"
	"marketplace-client-go/payment"
)

// Container 依赖注入容器，管理所有组件的生命周期。
// 全局单例在这里被显式组装代替：进程里只有组合根持有一个 Manager。
type Container struct {
	cfg *config.AppConfig

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	// 外部协作方
	restClient    *gateway.RESTClient
	paymentWatch  *payment.Watcher
	paymentStream *payment.StreamClient
	sender        *payment.Sender
	flags         *localdata.FlagStore

	// 核心服务
	orderManager *order.Manager

	metricsServer *monitor.Server

	lifecycle *LifecycleManager
}

// New 创建新的Container实例
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return &Container{
		cfg:       &cfg,
		lifecycle: NewLifecycleManager(),
	}, nil
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	c.buildCollaborators()
	c.buildCoreServices()
	c.registerLifecycleComponents()
	return nil
}

func (c *Container) buildInfrastructure() error {
	log, err := logger.New(c.cfg.Logger)
	if err != nil {
		return err
	}
	c.logger = log
	c.monitor = monitor.New(monitor.Config{Namespace: c.cfg.Metrics.Namespace})
	c.metricsServer = monitor.NewServer(c.cfg.Metrics.Addr, c.monitor)

	channels := []alert.Channel{alert.NewLogChannel("log", log)}
	if c.cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookChannel("webhook", c.cfg.Alert.WebhookURL))
	}
	c.alerts = alert.NewManager(channels, time.Duration(c.cfg.Alert.ThrottleSeconds)*time.Second)
	return nil
}

func (c *Container) buildCollaborators() {
	c.restClient = &gateway.RESTClient{
		BaseURL:    c.cfg.Gateway.BaseURL,
		APIKey:     c.cfg.Gateway.APIKey,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(c.cfg.Gateway.RateLimit, c.cfg.Gateway.RateBurst),
		Recorder:   c.monitor,
	}
	c.paymentWatch = payment.NewWatcher(time.Duration(c.cfg.Payment.ConfirmTimeoutSec) * time.Second)
	if c.cfg.Payment.StreamEndpoint != "" {
		c.paymentStream = payment.NewStreamClient(c.cfg.Payment.StreamEndpoint, c.paymentWatch)
	}
	c.sender = payment.NewSender(c.cfg.Payment.ServiceURL, c.paymentWatch)
	c.flags = localdata.NewFlagStore(c.cfg.Store.Path)
}

func (c *Container) buildCoreServices() {
	c.orderManager = order.NewManager(
		c.restClient,
		c.flags,
		c.paymentWatch,
		c.sender,
		c.monitor,
		c.logger,
		order.Config{FlowTimeout: time.Duration(c.cfg.Payment.FlowTimeoutSec) * time.Second},
	)
	c.orderManager.SetMetrics(c.monitor)

	// 失败订单转告警；观察者由容器持有，进程内常驻
	c.orderManager.AddOrderObserver(&order.FuncObserver{Fn: func(o *order.Order) {
		if o == nil || o.Status != order.StatusFailed {
			return
		}
		reason := ""
		if o.Error != nil {
			reason = o.Error.Message
		}
		c.alerts.OrderFailed(o.OrderID, reason)
	}})
}

func (c *Container) registerLifecycleComponents() {
	c.lifecycle.Register("order-manager", c.orderManager)
	if c.paymentStream != nil {
		c.lifecycle.Register("payment-stream", c.paymentStream)
	}
	c.lifecycle.Register("metrics-server", c.metricsServer)
	c.lifecycle.Register("gauge-sampler", newGaugeSampler(c.orderManager, c.monitor, 5*time.Second))
}

// Start 启动所有组件
func (c *Container) Start(ctx context.Context) error {
	return c.lifecycle.StartAll(ctx)
}

// Stop 停止所有组件
func (c *Container) Stop() error {
	err := c.lifecycle.StopAll()
	if c.paymentWatch != nil {
		c.paymentWatch.Stop()
	}
	if c.logger != nil {
		_ = c.logger.Close()
	}
	return err
}

// Health 容器整体健康状态
func (c *Container) Health() error {
	return c.lifecycle.CheckHealth()
}

// OrderManager 暴露编排器给上层调用方
func (c *Container) OrderManager() *order.Manager { return c.orderManager }

// Logger 暴露日志器
func (c *Container) Logger() *logger.Logger { return c.logger }

// Config 暴露配置
func (c *Container) Config() *config.AppConfig { return c.cfg }

// gaugeSampler 周期性导出编排器的计数指标
type gaugeSampler struct {
	manager  *order.Manager
	monitor  *monitor.Monitor
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newGaugeSampler(m *order.Manager, mon *monitor.Monitor, interval time.Duration) *gaugeSampler {
	return &gaugeSampler{manager: m, monitor: mon, interval: interval}
}

func (g *gaugeSampler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	g.cancel = cancel
	g.done = make(chan struct{})
	g.mu.Unlock()

	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				g.monitor.SetPendingOrders(g.manager.PendingOrderCount())
				g.monitor.SetPaymentObservers(g.manager.PaymentObserverRefCount())
			}
		}
	}()
	return nil
}

func (g *gaugeSampler) Stop() error {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (g *gaugeSampler) Health() error { return nil }
