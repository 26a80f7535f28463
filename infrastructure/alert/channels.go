package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marketplace-client-go/infrastructure/logger"
)

// LogChannel 结构化日志告警通道
type LogChannel struct {
	log  *logger.Logger
	name string
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	return &LogChannel{log: log, name: name}
}

// Send 发送告警到日志
func (c *LogChannel) Send(alert Alert) error {
	fields := map[string]interface{}{
		"level":    alert.Level,
		"order_id": alert.OrderID,
	}
	for k, v := range alert.Fields {
		fields[k] = v
	}
	c.log.WithFields(fields).Warn(alert.Message)
	return nil
}

// Name 返回通道名称
func (c *LogChannel) Name() string { return c.name }

// WebhookChannel 把告警POST到外部webhook
type WebhookChannel struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhookChannel 创建webhook告警通道
func NewWebhookChannel(name, url string) *WebhookChannel {
	return &WebhookChannel{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Send 发送告警到webhook
func (c *WebhookChannel) Send(alert Alert) error {
	payload, err := json.Marshal(map[string]interface{}{
		"level":     alert.Level,
		"message":   alert.Message,
		"order_id":  alert.OrderID,
		"timestamp": alert.Timestamp.UTC().Format(time.RFC3339),
		"fields":    alert.Fields,
	})
	if err != nil {
		return err
	}
	resp, err := c.client.Post(c.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

// Name 返回通道名称
func (c *WebhookChannel) Name() string { return c.name }

// MockChannel 模拟告警通道（用于测试）
type MockChannel struct {
	name      string
	alerts    []Alert
	shouldErr bool
}

// NewMockChannel 创建模拟告警通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name, alerts: make([]Alert, 0)}
}

// Send 记录告警（用于测试验证）
func (c *MockChannel) Send(alert Alert) error {
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

// Name 返回通道名称
func (c *MockChannel) Name() string { return c.name }

// Alerts 获取所有接收到的告警
func (c *MockChannel) Alerts() []Alert { return c.alerts }

// SetShouldError 设置是否返回错误
func (c *MockChannel) SetShouldError(v bool) { c.shouldErr = v }

// Count 返回接收到的告警数量
func (c *MockChannel) Count() int { return len(c.alerts) }
