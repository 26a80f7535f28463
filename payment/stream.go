package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// streamMessage 支付服务结果流的线格式。
type streamMessage struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Direction     string `json:"direction"`
	Status        string `json:"status"` // success / failed
	Reason        string `json:"reason,omitempty"`
}

// StreamClient 通过 WebSocket 订阅支付服务的结果流并交给 Watcher 分发。
// 仅提供最小骨架：连接 + 读取 + 断线重连；解析失败的消息丢弃并计数。
type StreamClient struct {
	Endpoint      string
	Dialer        *websocket.Dialer
	ReconnectWait time.Duration
	ReadTimeout   time.Duration

	sink *Watcher

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	healthy bool
	dropped int64
}

func NewStreamClient(endpoint string, sink *Watcher) *StreamClient {
	return &StreamClient{
		Endpoint:      endpoint,
		Dialer:        websocket.DefaultDialer,
		ReconnectWait: 3 * time.Second,
		ReadTimeout:   60 * time.Second,
		sink:          sink,
	}
}

// Start 启动后台读取循环。
func (c *StreamClient) Start(ctx context.Context) error {
	if c.Endpoint == "" {
		return fmt.Errorf("payment stream endpoint required")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()
	go c.run(runCtx)
	return nil
}

// Stop 停止读取循环并等待其退出。
func (c *StreamClient) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Health 连接健康状态。
func (c *StreamClient) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.healthy {
		return fmt.Errorf("payment stream disconnected")
	}
	return nil
}

func (c *StreamClient) run(ctx context.Context) {
	defer close(c.done)
	for {
		if err := c.readOnce(ctx); err != nil {
			c.setHealthy(false)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.ReconnectWait):
		}
	}
}

func (c *StreamClient) readOnce(ctx context.Context) error {
	conn, _, err := c.Dialer.DialContext(ctx, c.Endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.setHealthy(true)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		if c.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := parseStreamMessage(raw)
		if err != nil {
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
			continue
		}
		c.sink.Deliver(ev)
	}
}

func (c *StreamClient) setHealthy(v bool) {
	c.mu.Lock()
	c.healthy = v
	c.mu.Unlock()
}

func parseStreamMessage(raw []byte) (Event, error) {
	var msg streamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{}, err
	}
	if msg.OrderID == "" {
		return Event{}, fmt.Errorf("payment message without order_id")
	}
	amount := decimal.Zero
	if msg.Amount != "" {
		parsed, err := decimal.NewFromString(msg.Amount)
		if err != nil {
			return Event{}, fmt.Errorf("bad amount %q: %w", msg.Amount, err)
		}
		amount = parsed
	}
	return Event{
		OrderID:       msg.OrderID,
		TransactionID: msg.TransactionID,
		Amount:        amount,
		Direction:     Direction(msg.Direction),
		Succeeded:     msg.Status == "success",
		FailureReason: msg.Reason,
	}, nil
}
