package payment

import "sync"

// Observer 接收支付事件回调。注册/注销以接口值判等，调用方应传入稳定的指针。
type Observer interface {
	OnPaymentEvent(Event)
}

// FuncObserver 把函数适配为 Observer；请以指针注册以保证身份稳定。
type FuncObserver struct {
	Fn func(Event)
}

func (f *FuncObserver) OnPaymentEvent(ev Event) {
	if f.Fn != nil {
		f.Fn(ev)
	}
}

// Multicaster 一个轻量事件分发器：单条订阅复用给多个观察者。
type Multicaster struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewMulticaster() *Multicaster {
	return &Multicaster{observers: make([]Observer, 0)}
}

// AddObserver 注册观察者，重复注册同一观察者不生效。
func (m *Multicaster) AddObserver(o Observer) {
	if o == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.observers {
		if existing == o {
			return
		}
	}
	m.observers = append(m.observers, o)
}

// RemoveObserver 注销观察者；未注册时为空操作。
func (m *Multicaster) RemoveObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.observers {
		if existing == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// Emit 将事件广播给当前所有观察者。回调在调用方 goroutine 内同步执行。
func (m *Multicaster) Emit(ev Event) {
	m.mu.RLock()
	snapshot := make([]Observer, len(m.observers))
	copy(snapshot, m.observers)
	m.mu.RUnlock()

	for _, o := range snapshot {
		o.OnPaymentEvent(ev)
	}
}

// ObserverCount 当前观察者数量，仅用于测试与指标。
func (m *Multicaster) ObserverCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}
