package order

import (
	"sync"
	"testing"
)

func TestWatcherPublishAndLatest(t *testing.T) {
	w := NewWatcher()
	if w.Latest() != nil {
		t.Fatalf("fresh watcher should hold nothing")
	}

	var got []*Order
	obs := &FuncObserver{Fn: func(o *Order) { got = append(got, o) }}
	w.AddObserver(obs)

	first := &Order{OrderID: "a", Status: StatusPending}
	second := &Order{OrderID: "a", Status: StatusCompleted}
	w.Publish(first)
	w.Publish(second)

	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("observer missed publishes: %v", got)
	}
	if w.Latest() != second {
		t.Fatalf("latest should be the last publish")
	}
}

func TestWatcherLateObserverSeesNothing(t *testing.T) {
	w := NewWatcher()
	w.Publish(&Order{OrderID: "a"})

	called := false
	w.AddObserver(&FuncObserver{Fn: func(*Order) { called = true }})
	if called {
		t.Fatalf("registration must not replay history")
	}
	if w.Latest() == nil {
		t.Fatalf("latest still readable")
	}
}

func TestWatcherDuplicateAndRemove(t *testing.T) {
	w := NewWatcher()
	var n int
	obs := &FuncObserver{Fn: func(*Order) { n++ }}

	w.AddObserver(obs)
	w.AddObserver(obs) // 重复注册无效
	w.Publish(&Order{OrderID: "a"})
	if n != 1 {
		t.Fatalf("duplicate registration delivered twice: %d", n)
	}

	w.RemoveObserver(obs)
	w.Publish(&Order{OrderID: "b"})
	if n != 1 {
		t.Fatalf("removed observer still notified: %d", n)
	}
}

func TestWatcherConcurrentPublish(t *testing.T) {
	w := NewWatcher()
	var mu sync.Mutex
	count := 0
	w.AddObserver(&FuncObserver{Fn: func(*Order) {
		mu.Lock()
		count++
		mu.Unlock()
	}})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Publish(&Order{OrderID: "x"})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 20 {
		t.Fatalf("expected 20 notifications, got %d", count)
	}
}

func TestOpenOrderCell(t *testing.T) {
	c := NewOpenOrderCell()
	if c.Get() != nil {
		t.Fatalf("fresh cell should be empty")
	}

	var seen []*OpenOrder
	obs := openOrderRecorder{seen: &seen}
	c.AddObserver(&obs)

	open := &OpenOrder{ID: "order-1"}
	c.Set(open)
	if c.Get() != open {
		t.Fatalf("cell did not keep the value")
	}
	c.Set(nil)
	if c.Get() != nil {
		t.Fatalf("cell not cleared")
	}

	if len(seen) != 2 || seen[0] != open || seen[1] != nil {
		t.Fatalf("observer missed changes: %v", seen)
	}

	c.RemoveObserver(&obs)
	c.Set(open)
	if len(seen) != 2 {
		t.Fatalf("removed observer still notified")
	}
}

type openOrderRecorder struct {
	seen *[]*OpenOrder
}

func (r *openOrderRecorder) OnOpenOrderChanged(o *OpenOrder) {
	*r.seen = append(*r.seen, o)
}
