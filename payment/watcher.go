package payment

import (
	"sync"
	"time"
)

// TimedOutReason 超时补发事件携带的失败原因，消费方依赖该字面量。
const TimedOutReason = "timed out"

// Watcher 跟踪等待支付结果的订单。被跟踪的订单保证最终会收到一个事件：
// 要么是支付服务推送的真实结果，要么在期限内无结果时补发一条超时失败。
type Watcher struct {
	*Multicaster

	timeout time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewWatcher(timeout time.Duration) *Watcher {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Watcher{
		Multicaster: NewMulticaster(),
		timeout:     timeout,
		timers:      make(map[string]*time.Timer),
	}
}

// Track 开始跟踪订单；到期仍未收到结果时补发超时失败事件。
// 对同一订单重复调用只会重置期限。
func (w *Watcher) Track(orderID string, direction Direction) {
	if orderID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[orderID]; ok {
		t.Stop()
	}
	w.timers[orderID] = time.AfterFunc(w.timeout, func() {
		w.expire(orderID, direction)
	})
}

func (w *Watcher) expire(orderID string, direction Direction) {
	w.mu.Lock()
	_, tracked := w.timers[orderID]
	delete(w.timers, orderID)
	w.mu.Unlock()
	if !tracked {
		return
	}
	w.Emit(Event{
		OrderID:       orderID,
		Direction:     direction,
		Succeeded:     false,
		FailureReason: TimedOutReason,
	})
}

// Deliver 投递一条真实支付结果并取消对应的超时定时器。
func (w *Watcher) Deliver(ev Event) {
	w.mu.Lock()
	if t, ok := w.timers[ev.OrderID]; ok {
		t.Stop()
		delete(w.timers, ev.OrderID)
	}
	w.mu.Unlock()
	w.Emit(ev)
}

// Stop 取消所有在途定时器。停止后不再补发超时事件。
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}
