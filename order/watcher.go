package order

import "sync"

// Observer 接收订单状态变更回调。注册/注销以接口值判等。
type Observer interface {
	OnOrderChanged(*Order)
}

// FuncObserver 把函数适配为 Observer；请以指针注册以保证身份稳定。
type FuncObserver struct {
	Fn func(*Order)
}

func (f *FuncObserver) OnOrderChanged(o *Order) {
	if f.Fn != nil {
		f.Fn(o)
	}
}

// Watcher 单槽位的订单发布通道：保存最近一次发布的订单并广播给所有
// 观察者。后注册的观察者不会收到历史值；两次发布之间只保证发布方的
// 程序序。
type Watcher struct {
	mu        sync.RWMutex
	latest    *Order
	observers []Observer
}

func NewWatcher() *Watcher {
	return &Watcher{observers: make([]Observer, 0)}
}

// Publish 覆盖当前值并同步通知所有观察者。
func (w *Watcher) Publish(o *Order) {
	w.mu.Lock()
	w.latest = o
	snapshot := make([]Observer, len(w.observers))
	copy(snapshot, w.observers)
	w.mu.Unlock()

	for _, obs := range snapshot {
		obs.OnOrderChanged(o)
	}
}

// Latest 返回最近发布的订单，可能为 nil。
func (w *Watcher) Latest() *Order {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

// AddObserver 注册观察者，重复注册不生效。
func (w *Watcher) AddObserver(o Observer) {
	if o == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.observers {
		if existing == o {
			return
		}
	}
	w.observers = append(w.observers, o)
}

// RemoveObserver 注销观察者。
func (w *Watcher) RemoveObserver(o Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.observers {
		if existing == o {
			w.observers = append(w.observers[:i], w.observers[i+1:]...)
			return
		}
	}
}

// OpenOrderObserver 接收当前未完结订单句柄的变更。
type OpenOrderObserver interface {
	OnOpenOrderChanged(*OpenOrder)
}

// OpenOrderCell 保存"当前正在进行的订单"句柄的可观察单槽缓存。
// 写入方竞争时以最后写入为准，读取方总能看到完整快照。
type OpenOrderCell struct {
	mu        sync.RWMutex
	value     *OpenOrder
	observers []OpenOrderObserver
}

func NewOpenOrderCell() *OpenOrderCell {
	return &OpenOrderCell{observers: make([]OpenOrderObserver, 0)}
}

// Set 替换缓存值（nil 表示清空）并通知观察者。
func (c *OpenOrderCell) Set(o *OpenOrder) {
	c.mu.Lock()
	c.value = o
	snapshot := make([]OpenOrderObserver, len(c.observers))
	copy(snapshot, c.observers)
	c.mu.Unlock()

	for _, obs := range snapshot {
		obs.OnOpenOrderChanged(o)
	}
}

// Get 返回当前缓存的未完结订单，可能为 nil。
func (c *OpenOrderCell) Get() *OpenOrder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *OpenOrderCell) AddObserver(o OpenOrderObserver) {
	if o == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.observers {
		if existing == o {
			return
		}
	}
	c.observers = append(c.observers, o)
}

func (c *OpenOrderCell) RemoveObserver(o OpenOrderObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.observers {
		if existing == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}
